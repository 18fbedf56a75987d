// Package limits provides centralized size constants and validation functions
// for the XDCC client.
//
// # Limits
//
//   - MaxLineLength (8192 bytes): the longest control-connection line the line
//     framer will buffer. Longer lines are rejected with ErrLineTooLong no matter
//     how the bytes were chunked on the wire.
//
//   - MaxFileNameLength (255 bytes): the longest file name accepted from a DCC
//     SEND offer.
//
//   - DefaultTransferChunk / MaxTransferChunk: read buffer sizes for the DCC
//     receive loop.
//
//   - DefaultLineChunk: read size for the control-connection line framer.
//
// # Validation Functions
//
//	if err := limits.ValidateFileName(name); err != nil {
//	    // ErrEmpty or ErrFileNameTooLong
//	}
//
// All errors wrap one of the package sentinels and can be checked with errors.Is.
package limits
