package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/xdccget/progress"
	"github.com/opd-ai/xdccget/transport"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of one transfer.
type Result struct {
	ID          uint32
	FileName    string
	Path        string
	Size        uint64
	Transferred uint64
	Err         error
}

// OK reports whether the transfer completed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Manager runs transfers concurrently, one goroutine each, and provides the
// completion barrier for all of them.
type Manager struct {
	dialer       transport.Dialer
	dir          string
	reporter     progress.Reporter
	chunkSize    int
	stallTimeout time.Duration
	sendAcks     bool

	transfers []*Transfer
	wg        sync.WaitGroup
	mu        sync.RWMutex
}

// NewManager creates a manager that dials peers with dialer, writes into dir
// and reports through reporter. A nil reporter discards progress.
func NewManager(dialer transport.Dialer, dir string, reporter progress.Reporter) *Manager {
	if reporter == nil {
		reporter = progress.Nop()
	}
	if dir == "" {
		dir = "."
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewManager",
		"dir":      dir,
	}).Debug("Creating new file transfer manager")

	return &Manager{
		dialer:    dialer,
		dir:       dir,
		reporter:  reporter,
		chunkSize: ChunkSize,
	}
}

// SetChunkSize sets the read size applied to transfers started afterwards.
func (m *Manager) SetChunkSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = size
}

// SetStallTimeout sets the stall timeout applied to transfers started afterwards.
func (m *Manager) SetStallTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stallTimeout = timeout
}

// SetSendAcks toggles DCC acknowledgements for transfers started afterwards.
func (m *Manager) SetSendAcks(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendAcks = enabled
}

// Start launches a transfer in its own goroutine and returns immediately.
// Transfers are numbered from 1 in start order.
func (m *Manager) Start(ctx context.Context, fileName string, fileSize uint64, peerAddr string) *Transfer {
	m.mu.Lock()
	id := uint32(len(m.transfers) + 1)
	transfer := NewTransfer(id, fileName, fileSize, peerAddr)
	if err := transfer.SetChunkSize(m.chunkSize); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Manager.Start",
			"chunk_size": m.chunkSize,
			"error":      err.Error(),
		}).Warn("Invalid chunk size, using default")
	}
	transfer.SetStallTimeout(m.stallTimeout)
	transfer.SetSendAcks(m.sendAcks)
	m.transfers = append(m.transfers, transfer)
	m.mu.Unlock()

	tracker := m.reporter.Track(id, fileName, fileSize)
	transfer.OnProgress(tracker.Update)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := transfer.Run(ctx, m.dialer, m.dir)
		tracker.Done(err)
	}()

	logrus.WithFields(logrus.Fields{
		"function":    "Manager.Start",
		"transfer_id": id,
		"file_name":   fileName,
		"file_size":   fileSize,
		"peer":        peerAddr,
	}).Info("Transfer spawned")

	return transfer
}

// Spawned returns the number of transfers started so far.
func (m *Manager) Spawned() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transfers)
}

// GetTransfer retrieves a transfer by ID.
func (m *Manager) GetTransfer(id uint32) (*Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id == 0 || int(id) > len(m.transfers) {
		return nil, fmt.Errorf("transfer not found: %d", id)
	}
	return m.transfers[id-1], nil
}

// Wait blocks until every started transfer has finished, successfully or not,
// and returns their results in start order.
func (m *Manager) Wait() []Result {
	m.wg.Wait()

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, len(m.transfers))
	for _, t := range m.transfers {
		stats := t.GetStats()
		results = append(results, Result{
			ID:          t.ID,
			FileName:    t.FileName,
			Path:        t.GetPath(),
			Size:        t.FileSize,
			Transferred: stats.Transferred,
			Err:         t.GetError(),
		})
	}
	return results
}
