package irc

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/opd-ai/xdccget/limits"
	"golang.org/x/text/encoding"
)

// LineReader reassembles newline-terminated lines from an unframed byte
// stream. It is not safe for concurrent use; the owning goroutine holds the
// accumulation buffer exclusively.
type LineReader struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	encoding encoding.Encoding
	err      error

	// discarding is set while skipping the tail of an over-long line.
	discarding bool
}

// LineReaderOption configures a LineReader.
type LineReaderOption func(*LineReader)

// WithChunkSize sets how many bytes are requested from the source per read.
// Values below 1 are ignored.
func WithChunkSize(n int) LineReaderOption {
	return func(lr *LineReader) {
		if n >= 1 {
			lr.chunk = make([]byte, n)
		}
	}
}

// WithEncoding decodes each line through enc instead of UTF-8.
func WithEncoding(enc encoding.Encoding) LineReaderOption {
	return func(lr *LineReader) {
		lr.encoding = enc
	}
}

// NewLineReader creates a LineReader over r.
func NewLineReader(r io.Reader, opts ...LineReaderOption) *LineReader {
	lr := &LineReader{
		r:     r,
		chunk: make([]byte, limits.DefaultLineChunk),
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// ReadLine blocks until a complete line is buffered and returns it with its
// "\n" terminator. A line longer than limits.MaxLineLength fails once with
// limits.ErrLineTooLong; its bytes are skipped through the next "\n" and the
// following call continues with the next line. At end of stream it returns
// io.EOF, or io.ErrUnexpectedEOF if a partial line was left over.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		i := bytes.IndexByte(lr.buf, '\n')

		if lr.discarding {
			if i >= 0 {
				lr.buf = lr.buf[i+1:]
				lr.discarding = false
				continue
			}
			lr.buf = lr.buf[:0]
		} else if i >= 0 {
			if err := limits.ValidateLineLength(i + 1); err != nil {
				lr.buf = lr.buf[i+1:]
				return "", err
			}
			line := lr.decode(lr.buf[:i+1])
			lr.buf = lr.buf[i+1:]
			return line, nil
		} else if err := limits.ValidateLineLength(len(lr.buf)); err != nil {
			lr.buf = lr.buf[:0]
			lr.discarding = true
			return "", err
		}

		if lr.err != nil {
			if len(lr.buf) > 0 && errors.Is(lr.err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", lr.err
		}

		n, err := lr.r.Read(lr.chunk)
		if n > 0 {
			lr.buf = append(lr.buf, lr.chunk[:n]...)
		}
		if err != nil {
			lr.err = err
		}
	}
}

// Buffered returns the number of bytes held that do not yet form a line.
func (lr *LineReader) Buffered() int {
	return len(lr.buf)
}

// decode turns one raw line into text. Undecodable input contributes nothing.
func (lr *LineReader) decode(raw []byte) string {
	if lr.encoding == nil {
		return strings.ToValidUTF8(string(raw), "")
	}
	out, err := lr.encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}
