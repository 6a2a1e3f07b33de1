// Low-level read primitives for newline-delimited sources.
//
// A line is every byte up to and including '\n', or the trailing run of
// bytes before EOF when the file does not end with a newline. line never
// holds more than one bufio buffer of a line in memory: a line longer than
// the buffer is passed on in buffer-sized pieces.
package lineidx

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// line consumes the next line from r, writes its bytes to w and returns
// the line length. It returns (0, io.EOF) only when no bytes remain; an
// unterminated final line is returned with a nil error. Errors from w are
// wrapped in ErrOutput so callers can tell them from read failures.
func line(r *bufio.Reader, w io.Writer) (int64, error) {
	var n int64
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 {
			if _, werr := w.Write(chunk); werr != nil {
				return n, fmt.Errorf("%w: %w", ErrOutput, werr)
			}
			n += int64(len(chunk))
		}

		switch err {
		case nil:
			return n, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		default:
			return n, err
		}
	}
}

func size(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
