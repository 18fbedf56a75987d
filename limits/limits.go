// Package limits provides centralized size limits for the XDCC client.
// This ensures consistent validation across the control connection, the
// transfer engine and the command line.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxLineLength is the longest control-connection line accepted, terminator included.
	// IRC caps plain lines at 512 bytes; the extra room covers IRCv3 message tags.
	MaxLineLength = 8192

	// MaxFileNameLength is the maximum allowed file name length in bytes.
	// The value (255) matches typical filesystem limits.
	MaxFileNameLength = 255

	// DefaultTransferChunk is the read size used by a DCC receive loop.
	DefaultTransferChunk = 4096

	// MaxTransferChunk bounds the per-read buffer of a DCC receive loop (1MB).
	MaxTransferChunk = 1024 * 1024

	// DefaultLineChunk is the read size used when framing control-connection lines.
	DefaultLineChunk = 512
)

var (
	// ErrEmpty indicates an empty value was provided
	ErrEmpty = errors.New("empty value")

	// ErrLineTooLong indicates a control-connection line exceeds MaxLineLength
	ErrLineTooLong = errors.New("line too long")

	// ErrFileNameTooLong indicates a file name exceeds MaxFileNameLength
	ErrFileNameTooLong = errors.New("file name too long")

	// ErrChunkSize indicates a read chunk size outside 1..MaxTransferChunk
	ErrChunkSize = errors.New("invalid chunk size")
)

// ValidateLineLength validates the length of a framed line against MaxLineLength.
func ValidateLineLength(n int) error {
	if n > MaxLineLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrLineTooLong, n, MaxLineLength)
	}
	return nil
}

// ValidateFileName validates a file name against MaxFileNameLength.
// Returns an error with context if the name is empty or exceeds the limit.
func ValidateFileName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("%w: file name", ErrEmpty)
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrFileNameTooLong, len(name), MaxFileNameLength)
	}
	return nil
}

// ValidateChunkSize validates a read buffer size.
func ValidateChunkSize(size int) error {
	if size < 1 || size > MaxTransferChunk {
		return fmt.Errorf("%w: %d not in 1..%d", ErrChunkSize, size, MaxTransferChunk)
	}
	return nil
}
