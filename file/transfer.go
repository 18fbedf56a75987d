package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opd-ai/xdccget/limits"
	"github.com/opd-ai/xdccget/transport"
	"github.com/sirupsen/logrus"
)

// ErrDirectoryTraversal indicates a file name that would escape the download directory.
var ErrDirectoryTraversal = errors.New("path contains directory traversal")

// ErrFileIO indicates the destination file could not be created or written.
var ErrFileIO = errors.New("file i/o error")

// ErrShortTransfer indicates the peer closed the connection before the declared size was received.
var ErrShortTransfer = errors.New("peer closed connection before transfer completed")

// ErrTransferStalled indicates that a transfer has not received data within the timeout period.
var ErrTransferStalled = errors.New("transfer stalled: no data received within timeout period")

// ErrAlreadyStarted indicates Run was called on a transfer that is not pending.
var ErrAlreadyStarted = errors.New("transfer cannot be started in current state")

// TransferState represents the current state of a file transfer.
type TransferState uint8

const (
	// TransferStatePending indicates the transfer is waiting to start.
	TransferStatePending TransferState = iota
	// TransferStateRunning indicates the transfer is in progress.
	TransferStateRunning
	// TransferStateCompleted indicates the transfer has finished successfully.
	TransferStateCompleted
	// TransferStateError indicates the transfer failed due to an error.
	TransferStateError
)

func (s TransferState) String() string {
	switch s {
	case TransferStatePending:
		return "pending"
	case TransferStateRunning:
		return "running"
	case TransferStateCompleted:
		return "completed"
	case TransferStateError:
		return "error"
	default:
		return fmt.Sprintf("TransferState(%d)", uint8(s))
	}
}

// ChunkSize is the default read size in bytes.
const ChunkSize = limits.DefaultTransferChunk

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

var defaultTimeProvider TimeProvider = DefaultTimeProvider{}

// Stats is a snapshot of transfer progress.
type Stats struct {
	State       TransferState
	Transferred uint64
	FileSize    uint64
	Speed       float64 // bytes per second
	Remaining   time.Duration
}

// Transfer represents one DCC receive operation.
type Transfer struct {
	ID          uint32
	FileName    string
	FileSize    uint64
	PeerAddr    string
	Path        string
	State       TransferState
	StartTime   time.Time
	Transferred uint64
	Error       error

	progressCallback func(uint64)
	completeCallback func(error)

	mu            sync.Mutex
	lastChunkTime time.Time
	transferSpeed float64       // bytes per second
	stallTimeout  time.Duration // 0 disables stall detection
	chunkSize     int
	sendAcks      bool
	timeProvider  TimeProvider
}

// NewTransfer creates a pending transfer for an offer of fileSize bytes
// served at peerAddr.
func NewTransfer(id uint32, fileName string, fileSize uint64, peerAddr string) *Transfer {
	logrus.WithFields(logrus.Fields{
		"function":    "NewTransfer",
		"transfer_id": id,
		"file_name":   fileName,
		"file_size":   fileSize,
		"peer":        peerAddr,
	}).Debug("Creating new file transfer")

	tp := defaultTimeProvider
	return &Transfer{
		ID:            id,
		FileName:      fileName,
		FileSize:      fileSize,
		PeerAddr:      peerAddr,
		State:         TransferStatePending,
		lastChunkTime: tp.Now(),
		chunkSize:     ChunkSize,
		timeProvider:  tp,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (t *Transfer) SetTimeProvider(tp TimeProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeProvider = tp
	t.lastChunkTime = tp.Now()
}

// SetChunkSize sets the read buffer size.
func (t *Transfer) SetChunkSize(size int) error {
	if err := limits.ValidateChunkSize(size); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunkSize = size
	return nil
}

// SetStallTimeout configures the longest wait for a single read. Set to 0 to
// disable stall detection.
func (t *Transfer) SetStallTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stallTimeout = timeout
}

// SetSendAcks enables the classic DCC acknowledgement: after every read the
// receiver sends the total received so far as a 4-byte big-endian integer.
func (t *Transfer) SetSendAcks(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendAcks = enabled
}

// OnProgress sets a callback invoked after every chunk with the running total.
// This method is safe for concurrent use.
func (t *Transfer) OnProgress(callback func(uint64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progressCallback = callback
}

// OnComplete sets a callback invoked once when the transfer finishes.
// This method is safe for concurrent use.
func (t *Transfer) OnComplete(callback func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completeCallback = callback
}

// ValidateFileName checks that an offered name is a plain file name that
// stays inside the download directory.
func ValidateFileName(name string) (string, error) {
	if err := limits.ValidateFileName(name); err != nil {
		return "", err
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return "", ErrDirectoryTraversal
	}
	return name, nil
}

// Run performs the transfer: it creates the destination file in dir, dials
// the peer and reads until exactly FileSize bytes have been written. The
// peer connection and file are closed before Run returns. Cancelling ctx
// aborts a blocked read.
func (t *Transfer) Run(ctx context.Context, dialer transport.Dialer, dir string) (err error) {
	if err := t.begin(); err != nil {
		return err
	}
	defer func() { t.complete(err) }()

	name, err := ValidateFileName(t.FileName)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "Transfer.Run",
			"transfer_id": t.ID,
			"file_name":   t.FileName,
			"error":       err.Error(),
		}).Error("File name validation failed")
		return err
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	t.mu.Lock()
	t.Path = path
	t.mu.Unlock()

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrFileIO, closeErr)
		}
	}()

	conn, err := dialer.DialContext(ctx, "tcp", t.PeerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := t.receive(ctx, conn, f); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}
	return nil
}

// begin moves a pending transfer to running.
func (t *Transfer) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != TransferStatePending {
		logrus.WithFields(logrus.Fields{
			"function":      "Transfer.Run",
			"transfer_id":   t.ID,
			"current_state": t.State,
		}).Error("Transfer cannot be started in current state")
		return ErrAlreadyStarted
	}

	t.State = TransferStateRunning
	t.StartTime = t.timeProvider.Now()
	t.lastChunkTime = t.StartTime

	logrus.WithFields(logrus.Fields{
		"function":    "Transfer.Run",
		"transfer_id": t.ID,
		"file_name":   t.FileName,
		"file_size":   t.FileSize,
		"peer":        t.PeerAddr,
	}).Info("Starting file transfer")

	return nil
}

// receive copies FileSize bytes from conn to w in arrival order. It stops as
// soon as the declared size is reached rather than waiting for the peer to
// close, and discards anything the peer sends past that size.
func (t *Transfer) receive(ctx context.Context, conn net.Conn, w io.Writer) error {
	t.mu.Lock()
	buf := make([]byte, t.chunkSize)
	stallTimeout := t.stallTimeout
	sendAcks := t.sendAcks
	t.mu.Unlock()

	if t.FileSize == 0 {
		t.recordProgress(0)
		return nil
	}

	var ack [4]byte
	for {
		if stallTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(stallTimeout)); err != nil {
				return transport.NewOpError("read", t.PeerAddr, err)
			}
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if remaining := t.FileSize - t.transferred(); uint64(n) > remaining {
				chunk = buf[:remaining]
			}
			if _, err := w.Write(chunk); err != nil {
				return fmt.Errorf("%w: %w", ErrFileIO, err)
			}
			total := t.recordProgress(uint64(len(chunk)))

			if sendAcks {
				binary.BigEndian.PutUint32(ack[:], uint32(total))
				if _, err := conn.Write(ack[:]); err != nil {
					return transport.NewOpError("ack", t.PeerAddr, err)
				}
			}

			if total >= t.FileSize {
				return nil
			}
		}

		if readErr != nil {
			return t.readError(ctx, readErr)
		}
	}
}

func (t *Transfer) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logrus.WithFields(logrus.Fields{
			"function":    "Transfer.receive",
			"transfer_id": t.ID,
			"file_name":   t.FileName,
			"transferred": t.transferred(),
			"file_size":   t.FileSize,
		}).Warn("Transfer stalled: no data received within timeout period")
		return transport.NewOpError("read", t.PeerAddr, ErrTransferStalled)
	}

	if errors.Is(err, io.EOF) {
		return transport.NewOpError("read", t.PeerAddr,
			fmt.Errorf("%w: received %d of %d bytes", ErrShortTransfer, t.transferred(), t.FileSize))
	}

	return transport.NewOpError("read", t.PeerAddr, err)
}

func (t *Transfer) transferred() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Transferred
}

// recordProgress adds n bytes to the running total, updates the speed
// estimate and invokes the progress callback outside the lock.
func (t *Transfer) recordProgress(n uint64) uint64 {
	t.mu.Lock()
	t.Transferred += n
	t.updateTransferSpeed(n)
	total := t.Transferred
	callback := t.progressCallback
	t.mu.Unlock()

	if callback != nil {
		callback(total)
	}
	return total
}

// complete records the final state and notifies the completion callback.
func (t *Transfer) complete(err error) {
	t.mu.Lock()
	if err != nil {
		t.State = TransferStateError
		t.Error = err
	} else {
		t.State = TransferStateCompleted
	}
	callback := t.completeCallback
	elapsed := t.timeProvider.Since(t.StartTime)
	t.mu.Unlock()

	fields := logrus.Fields{
		"function":    "Transfer.complete",
		"transfer_id": t.ID,
		"file_name":   t.FileName,
		"transferred": t.transferred(),
		"file_size":   t.FileSize,
		"elapsed":     elapsed,
	}
	if err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("File transfer failed")
	} else {
		logrus.WithFields(fields).Info("File transfer completed")
	}

	if callback != nil {
		callback(err)
	}
}

// updateTransferSpeed calculates the current transfer speed. Caller holds mu.
func (t *Transfer) updateTransferSpeed(chunkSize uint64) {
	now := t.timeProvider.Now()
	duration := t.timeProvider.Since(t.lastChunkTime).Seconds()

	if duration > 0 {
		instantSpeed := float64(chunkSize) / duration

		// Exponential moving average with alpha = 0.3
		if t.transferSpeed == 0 {
			t.transferSpeed = instantSpeed
		} else {
			t.transferSpeed = 0.7*t.transferSpeed + 0.3*instantSpeed
		}
	}

	t.lastChunkTime = now
}

// GetState returns the current state.
func (t *Transfer) GetState() TransferState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}

// GetError returns the failure cause, or nil.
func (t *Transfer) GetError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Error
}

// GetPath returns the destination path once the file has been created.
func (t *Transfer) GetPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Path
}

// GetProgress returns the current progress of the transfer as a percentage.
func (t *Transfer) GetProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FileSize == 0 {
		if t.State == TransferStateCompleted {
			return 100.0
		}
		return 0.0
	}

	return float64(t.Transferred) / float64(t.FileSize) * 100.0
}

// GetSpeed returns the current transfer speed in bytes per second.
func (t *Transfer) GetSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferSpeed
}

// GetEstimatedTimeRemaining returns the estimated time remaining for the transfer.
func (t *Transfer) GetEstimatedTimeRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining()
}

func (t *Transfer) remaining() time.Duration {
	if t.State != TransferStateRunning || t.transferSpeed <= 0 {
		return 0
	}

	bytesRemaining := t.FileSize - t.Transferred
	secondsRemaining := float64(bytesRemaining) / t.transferSpeed

	return time.Duration(secondsRemaining * float64(time.Second))
}

// GetStats returns a consistent snapshot of the transfer.
func (t *Transfer) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		State:       t.State,
		Transferred: t.Transferred,
		FileSize:    t.FileSize,
		Speed:       t.transferSpeed,
		Remaining:   t.remaining(),
	}
}
