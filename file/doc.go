// Package file implements the receive side of DCC file transfers, the
// downloads an XDCC bot starts after a pack request.
//
// # Overview
//
// The file package provides two primary components:
//
//   - Transfer: connects out to the peer named in a DCC SEND offer, streams
//     the declared number of bytes into a local file and tracks progress
//   - Manager: runs many transfers concurrently and provides the barrier that
//     waits for all of them
//
// # File Transfers
//
//	transfer := file.NewTransfer(1, "episode.mkv", 104857600, "203.0.113.7:5000")
//
//	transfer.OnProgress(func(received uint64) {
//	    progress := float64(received) / float64(104857600) * 100
//	    fmt.Printf("Progress: %.2f%%\n", progress)
//	})
//
//	if err := transfer.Run(ctx, dialer, "downloads"); err != nil {
//	    log.Fatal(err)
//	}
//
// A transfer reads in chunks of ChunkSize bytes and writes each chunk before
// the next read, so the file contents equal the bytes received in arrival
// order. Reading stops once the declared size is reached even if the peer
// keeps the connection open. Bytes past the declared size are discarded.
//
// Offered file names are validated with ValidateFileName. Names that contain
// path separators or refer to the directory itself are rejected with
// ErrDirectoryTraversal before anything is created or dialed.
//
// # Managing Transfers
//
//	manager := file.NewManager(dialer, "downloads", reporter)
//	manager.Start(ctx, offer.FileName, offer.Size, offer.Addr())
//	...
//	for _, result := range manager.Wait() {
//	    if !result.OK() {
//	        log.Printf("%s: %v", result.FileName, result.Err)
//	    }
//	}
//
// A failed transfer never affects its siblings. Wait returns once every
// started transfer has reached a terminal state.
//
// # Errors
//
//   - ErrFileIO: the destination could not be created or written
//   - ErrShortTransfer: the peer closed before the declared size arrived
//   - ErrTransferStalled: no data arrived within the stall timeout
//   - transport.ErrConnection: any dial or read failure on the peer socket
//
// # Thread Safety
//
// Transfer accessors and Manager methods are safe for concurrent use.
package file
