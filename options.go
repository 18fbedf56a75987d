package xdccget

import (
	"fmt"
	"time"

	"github.com/opd-ai/xdccget/limits"
	"github.com/opd-ai/xdccget/progress"
	"github.com/opd-ai/xdccget/transport"
)

// DefaultQuitMessage is sent with QUIT when the session ends.
const DefaultQuitMessage = "my job is done here!"

// Options contains configuration options for a Session.
type Options struct {
	// Dir is where received files are written.
	Dir string

	// Proxy routes the control and transfer connections. Nil dials directly.
	Proxy *transport.ProxyConfig
	// Dialer overrides Proxy and DialTimeout when set.
	Dialer      transport.Dialer
	DialTimeout time.Duration

	// StallTimeout aborts a transfer that receives nothing for this long.
	// Zero disables stall detection.
	StallTimeout time.Duration

	ChunkSize     int
	LineChunkSize int

	// Charset names the IANA encoding of the control connection. Empty means UTF-8.
	Charset string

	QuitMessage string

	// SendAcks enables 4-byte DCC acknowledgements on transfer connections.
	SendAcks bool

	Reporter progress.Reporter
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Dir:           ".",
		DialTimeout:   30 * time.Second,
		ChunkSize:     limits.DefaultTransferChunk,
		LineChunkSize: limits.DefaultLineChunk,
		QuitMessage:   DefaultQuitMessage,
		Reporter:      progress.Nop(),
	}
}

// validate checks the numeric options.
func (o *Options) validate() error {
	if err := limits.ValidateChunkSize(o.ChunkSize); err != nil {
		return fmt.Errorf("%w: transfer %w", ErrInvalidArgument, err)
	}
	if err := limits.ValidateChunkSize(o.LineChunkSize); err != nil {
		return fmt.Errorf("%w: line %w", ErrInvalidArgument, err)
	}
	if o.DialTimeout < 0 || o.StallTimeout < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidArgument)
	}
	return nil
}
