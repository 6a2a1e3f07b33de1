// Retriever tests.
//
// The default addressing seeks to the start of the requested line: 0 for
// line 0, otherwise the record of the line before. EndOffset keeps the
// older behaviour of seeking to the record of the requested line itself,
// which lands one line later. Both are tested against the same fixture so
// the difference is explicit.
package lineidx

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildFixture writes content, indexes it and returns both paths.
func buildFixture(t *testing.T, content string) (string, string) {
	t.Helper()
	src, idx := writeSource(t, content)
	if err := Build(src, idx, Config{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return src, idx
}

func TestFetchScenario(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	tests := []struct {
		name        string
		start, take uint32
		mode        Addressing
		want        []string
	}{
		{"start offset line 0", 0, 1, StartOffset, []string{"aaa\n"}},
		{"start offset line 1", 1, 1, StartOffset, []string{"bb\n"}},
		{"start offset line 2", 2, 1, StartOffset, []string{"c\n"}},
		{"start offset all", 0, 3, StartOffset, []string{"aaa\n", "bb\n", "c\n"}},
		{"end offset line 0", 0, 1, EndOffset, []string{"bb\n"}},
		{"end offset line 1", 1, 1, EndOffset, []string{"c\n"}},
		{"end offset last line", 2, 1, EndOffset, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fetch(src, idx, tt.start, tt.take, Config{Addressing: tt.mode})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Fetch(%d, %d) = %q, want %q", tt.start, tt.take, got, tt.want)
			}
		})
	}
}

// TestFetchRoundTrip fetches every line of a generated source one at a
// time and compares it to the line as written.
func TestFetchRoundTrip(t *testing.T) {
	var want []string
	for i := 0; i < 200; i++ {
		want = append(want, fmt.Sprintf("%d:%s\n", i, strings.Repeat("z", i%40)))
	}
	src, idx := buildFixture(t, strings.Join(want, ""))

	for k := range want {
		got, err := Fetch(src, idx, uint32(k), 1, Config{ReadBuffer: minBuffer})
		if err != nil {
			t.Fatalf("Fetch(%d): %v", k, err)
		}
		if len(got) != 1 || got[0] != want[k] {
			t.Fatalf("Fetch(%d) = %q, want %q", k, got, want[k])
		}
	}
}

// TestFetchShortTake verifies that asking for more lines than remain
// returns the remainder without an error.
func TestFetchShortTake(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	got, err := Fetch(src, idx, 1, 10, Config{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 || got[0] != "bb\n" || got[1] != "c\n" {
		t.Errorf("Fetch(1, 10) = %q, want [\"bb\\n\" \"c\\n\"]", got)
	}
}

// TestFetchTakeZero verifies that take 0 returns nothing but still
// validates the start line against the index.
func TestFetchTakeZero(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	got, err := Fetch(src, idx, 2, 0, Config{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch(2, 0) = %q, want empty", got)
	}

	if _, err := Fetch(src, idx, 3, 0, Config{}); !errors.Is(err, ErrIndexRead) {
		t.Errorf("Fetch(3, 0) error = %v, want ErrIndexRead", err)
	}
}

// TestFetchUnterminatedFinalLine verifies that the last line comes back
// without a terminator when the source has none.
func TestFetchUnterminatedFinalLine(t *testing.T) {
	src, idx := buildFixture(t, "one\ntwo")

	got, err := Fetch(src, idx, 1, 1, Config{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0] != "two" {
		t.Errorf("Fetch(1, 1) = %q, want [\"two\"]", got)
	}
}

// TestFetchLongLine verifies a line larger than the read buffer is
// returned intact.
func TestFetchLongLine(t *testing.T) {
	long := strings.Repeat("L", 5000) + "\n"
	src, idx := buildFixture(t, "short\n"+long+"tail\n")

	got, err := Fetch(src, idx, 1, 1, Config{ReadBuffer: 64})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0] != long {
		t.Errorf("long line came back with %d bytes, want %d", len(strings.Join(got, "")), len(long))
	}
}

func TestFetchOutOfRange(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	for _, mode := range []Addressing{StartOffset, EndOffset} {
		for _, start := range []uint32{3, 4, 1 << 31} {
			if _, err := Fetch(src, idx, start, 1, Config{Addressing: mode}); !errors.Is(err, ErrIndexRead) {
				t.Errorf("Fetch(%d) mode %d error = %v, want ErrIndexRead", start, mode, err)
			}
		}
	}
}

// TestFetchEmptyIndex verifies that nothing can be fetched from the index
// of an empty file, not even line 0.
func TestFetchEmptyIndex(t *testing.T) {
	src, idx := buildFixture(t, "")

	if _, err := Fetch(src, idx, 0, 1, Config{}); !errors.Is(err, ErrIndexRead) {
		t.Errorf("Fetch error = %v, want ErrIndexRead", err)
	}
}

// TestFetchOffsetBeyondSource verifies that an index pointing past the
// end of a (since truncated) source is a seek error, not a silent empty
// result.
func TestFetchOffsetBeyondSource(t *testing.T) {
	src, _ := writeSource(t, "ab\n")
	idx := writeIndex(t, 3, 100, 200)

	if _, err := Fetch(src, idx, 2, 1, Config{}); !errors.Is(err, ErrSeek) {
		t.Errorf("Fetch error = %v, want ErrSeek", err)
	}
}

// TestFetchOffsetOverflow verifies that a record above MaxInt64 cannot be
// used as a signed seek offset.
func TestFetchOffsetOverflow(t *testing.T) {
	src, _ := writeSource(t, "ab\n")
	idx := writeIndex(t, 1<<63, 1<<63+1)

	if _, err := Fetch(src, idx, 1, 1, Config{}); !errors.Is(err, ErrSeek) {
		t.Errorf("Fetch error = %v, want ErrSeek", err)
	}
}

func TestFetchMissingFiles(t *testing.T) {
	src, idx := buildFixture(t, "a\n")
	dir := t.TempDir()

	if _, err := Fetch(filepath.Join(dir, "nope"), idx, 0, 1, Config{}); !errors.Is(err, ErrFile) {
		t.Errorf("missing source error = %v, want ErrFile", err)
	}
	if _, err := Fetch(src, filepath.Join(dir, "nope.idx"), 0, 1, Config{}); !errors.Is(err, ErrFile) {
		t.Errorf("missing index error = %v, want ErrFile", err)
	}
}

func TestCopy(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	var out bytes.Buffer
	n, err := Copy(&out, src, idx, 0, 2, Config{})
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != 2 || out.String() != "aaa\nbb\n" {
		t.Errorf("Copy = (%d, %q), want (2, %q)", n, out.String(), "aaa\nbb\n")
	}
}

// TestCopyOutputError verifies that a failing destination is reported as
// ErrOutput, not as a problem with the source.
func TestCopyOutputError(t *testing.T) {
	src, idx := buildFixture(t, "aaa\nbb\nc\n")

	_, err := Copy(failingWriter{}, src, idx, 0, 2, Config{})
	if !errors.Is(err, ErrOutput) {
		t.Errorf("Copy error = %v, want ErrOutput", err)
	}
	if errors.Is(err, ErrRead) {
		t.Errorf("Copy error %v should not be ErrRead", err)
	}
}

func TestRequestValidate(t *testing.T) {
	one := uint32(1)

	tests := []struct {
		name     string
		req      Request
		wantErr  bool
		fetching bool
	}{
		{"neither", Request{}, false, false},
		{"both", Request{Start: &one, Take: &one}, false, true},
		{"take without start", Request{Take: &one}, true, true},
		{"start without take", Request{Start: &one}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUsage) {
				t.Errorf("Validate() error = %v, want ErrUsage", err)
			}
			if tt.req.Fetching() != tt.fetching {
				t.Errorf("Fetching() = %v, want %v", tt.req.Fetching(), tt.fetching)
			}
		})
	}
}

func BenchmarkFetch(b *testing.B) {
	dir := b.TempDir()
	var sb strings.Builder
	for i := 0; i < 100000; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	src := filepath.Join(dir, "bench.txt")
	idx := filepath.Join(dir, "bench.idx")
	if err := os.WriteFile(src, []byte(sb.String()), 0644); err != nil {
		b.Fatal(err)
	}
	if err := Build(src, idx, Config{NoSync: true}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Fetch(src, idx, uint32(i%100000), 10, Config{}); err != nil {
			b.Fatal(err)
		}
	}
}
