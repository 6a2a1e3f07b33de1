// Command lineidx builds a line index for a text file, or uses one to print
// a range of lines without reading the file from the start.
//
// Logging:
//   - The base logger is created here with the --log-level level
//   - It reaches the library through lineidx.Config, never slog.SetDefault
//   - The default level is warn, so successful runs print nothing to stderr
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jpl-au/lineidx"
	"github.com/jpl-au/lineidx/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v.\n", err)
		return 1
	}
	return 0
}

// options holds the flags shared by every subcommand.
type options struct {
	logLevel    string
	readBuffer  int
	writeBuffer int
	noSync      bool
}

func (o *options) config(stderr io.Writer) (lineidx.Config, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return lineidx.Config{}, fmt.Errorf("%w: %w", lineidx.ErrUsage, err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return lineidx.Config{
		ReadBuffer:  o.readBuffer,
		WriteBuffer: o.writeBuffer,
		NoSync:      o.noSync,
		Logger:      logger,
	}, nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	var (
		file, idx, encoding, hashName string
		start, take                   uint32
		literal, manifest             bool
	)

	rootCmd := &cobra.Command{
		Use:   "lineidx --file PATH --idx PATH [--take N --start N]",
		Short: "Index a text file by line and fetch line ranges",
		Long: `Without --take, lineidx reads --file once and writes a line index to --idx.
With --take and --start, it uses --idx to print --take lines of --file
beginning at line --start (zero indexed).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var req lineidx.Request
			if flags.Changed("start") {
				req.Start = &start
			}
			if flags.Changed("take") {
				req.Take = &take
			}
			if err := req.Validate(); err != nil {
				return err
			}

			cfg, err := opts.config(stderr)
			if err != nil {
				return err
			}
			if encoding != "" {
				cfg.Logger.Debug("encoding option has no effect", "encoding", encoding)
			}

			if !req.Fetching() {
				alg, err := lineidx.ParseAlgorithm(hashName)
				if err != nil {
					return err
				}
				cfg.HashAlgorithm = alg
				cfg.Manifest = manifest
				return lineidx.Build(file, idx, cfg)
			}

			if literal {
				cfg.Addressing = lineidx.EndOffset
			}
			out := bufio.NewWriter(stdout)
			if _, err := lineidx.Copy(out, file, idx, *req.Start, *req.Take, cfg); err != nil {
				out.Flush()
				return err
			}
			return out.Flush()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.IntVar(&opts.readBuffer, "read-buffer", 0, "source read buffer in bytes (default 64KiB)")
	pf.IntVar(&opts.writeBuffer, "write-buffer", 0, "index write buffer in bytes (default 64KiB)")
	pf.BoolVar(&opts.noSync, "no-sync", false, "do not fsync the index before publishing it")

	f := rootCmd.Flags()
	f.StringVar(&file, "file", "", "text file to index, or to fetch lines from")
	f.StringVar(&idx, "idx", "", "output path of the created index, or the index to use for fetching")
	f.StringVar(&encoding, "encoding", "", "text encoding (accepted for compatibility, not used)")
	f.Uint32Var(&take, "take", 0, "number of lines to fetch, starting at --start")
	f.Uint32Var(&start, "start", 0, "first line to fetch, zero indexed; required with --take")
	f.BoolVar(&literal, "literal", false, "seek to the end offset of --start, as older tooling did")
	f.BoolVar(&manifest, "manifest", false, "write a <idx>.json manifest for verify")
	f.StringVar(&hashName, "hash", "xxh3", "manifest fingerprint hash: xxh3, fnv or blake2b")
	_ = rootCmd.MarkFlagRequired("file")
	_ = rootCmd.MarkFlagRequired("idx")

	rootCmd.AddCommand(
		newStatCmd(stdout),
		newVerifyCmd(opts, stdout, stderr),
		newWatchCmd(opts, stderr),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(stdout, version)
			},
		},
	)
	return rootCmd
}

func newStatCmd(stdout io.Writer) *cobra.Command {
	var idx string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stat --idx PATH",
		Short: "Print the record count and bounds of an index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := lineidx.Stat(idx)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.Marshal(st)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(stdout, "%s\n", data)
				return err
			}
			_, err = fmt.Fprintf(stdout, "index:   %s\nrecords: %d\nbytes:   %d\nfirst:   %d\nlast:    %d\n",
				st.Index, st.Records, st.Bytes, st.First, st.Last)
			return err
		},
	}
	cmd.Flags().StringVar(&idx, "idx", "", "index file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	_ = cmd.MarkFlagRequired("idx")
	return cmd
}

func newVerifyCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var file, idx string

	cmd := &cobra.Command{
		Use:   "verify --file PATH --idx PATH",
		Short: "Check that an index matches its source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(stderr)
			if err != nil {
				return err
			}
			rep, err := lineidx.Verify(file, idx, cfg)
			if err != nil {
				return err
			}
			checked := "no manifest"
			if rep.Manifest != nil {
				checked = "manifest " + lineidx.AlgorithmName(rep.Manifest.Algorithm) + " " + rep.Manifest.Fingerprint
			}
			_, err = fmt.Fprintf(stdout, "ok: %d lines, %d bytes, %s\n", rep.Records, rep.SourceSize, checked)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "source text file")
	cmd.Flags().StringVar(&idx, "idx", "", "index file")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("idx")
	return cmd
}

func newWatchCmd(opts *options, stderr io.Writer) *cobra.Command {
	var file, idx, hashName string
	var manifest bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch --file PATH --idx PATH",
		Short: "Rebuild the index whenever the source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(stderr)
			if err != nil {
				return err
			}
			if cfg.HashAlgorithm, err = lineidx.ParseAlgorithm(hashName); err != nil {
				return err
			}
			cfg.Manifest = manifest
			cfg.Settle = settle

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return lineidx.Watch(ctx, file, idx, cfg, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "text file to watch")
	f.StringVar(&idx, "idx", "", "index to keep current")
	f.BoolVar(&manifest, "manifest", false, "write a <idx>.json manifest on every rebuild")
	f.StringVar(&hashName, "hash", "xxh3", "manifest fingerprint hash: xxh3, fnv or blake2b")
	f.DurationVar(&settle, "settle", 100*time.Millisecond, "quiet period before rebuilding")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("idx")
	return cmd
}
