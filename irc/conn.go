package irc

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/opd-ai/xdccget/limits"
	"github.com/opd-ai/xdccget/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Conn is a line-oriented IRC control connection. It is owned by a single
// goroutine: ReadLine and Send are not safe for concurrent use.
type Conn struct {
	conn     net.Conn
	reader   *LineReader
	encoding encoding.Encoding
	remote   string
}

// NewConn wraps an established connection. enc may be nil for UTF-8;
// chunkSize of 0 selects limits.DefaultLineChunk.
func NewConn(conn net.Conn, enc encoding.Encoding, chunkSize int) *Conn {
	if chunkSize <= 0 {
		chunkSize = limits.DefaultLineChunk
	}
	return &Conn{
		conn:     conn,
		reader:   NewLineReader(conn, WithChunkSize(chunkSize), WithEncoding(enc)),
		encoding: enc,
		remote:   conn.RemoteAddr().String(),
	}
}

// ReadLine returns the next line received from the server, terminator included.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.reader.ReadLine()
	if err != nil {
		if errors.Is(err, limits.ErrLineTooLong) {
			return "", err
		}
		return "", transport.NewOpError("read", c.remote, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Conn.ReadLine",
		"line":     strings.TrimRight(line, "\r\n"),
	}).Debug("Received line")

	return line, nil
}

// Send writes line followed by CRLF.
func (c *Conn) Send(line string) error {
	payload := line + "\r\n"
	if c.encoding != nil {
		encoded, err := c.encoding.NewEncoder().String(payload)
		if err != nil {
			return fmt.Errorf("failed to encode line: %w", err)
		}
		payload = encoded
	}

	if _, err := c.conn.Write([]byte(payload)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Conn.Send",
			"remote":   c.remote,
			"error":    err.Error(),
		}).Error("Failed to write line")
		return transport.NewOpError("write", c.remote, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Conn.Send",
		"line":     line,
	}).Debug("Sent line")

	return nil
}

// Close shuts the connection down in both directions.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the server address.
func (c *Conn) RemoteAddr() string {
	return c.remote
}

// LookupEncoding resolves an IANA charset name. Empty, "utf-8" and "utf8"
// return a nil encoding, which selects the built-in UTF-8 handling.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}
