package file

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/xdccget/progress"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// pipeDialer hands out the client side of a net.Pipe and runs serve on the
// peer side.
type pipeDialer struct {
	serve func(conn net.Conn)
	err   error
	dials int
	mu    sync.Mutex
}

func (d *pipeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	client, server := net.Pipe()
	go d.serve(server)
	return client, nil
}

// servePartial writes data in writes of the given sizes (cycled) and then
// holds the connection open until the receiver closes it.
func servePartial(data []byte, sizes ...int) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		pos, i := 0, 0
		for pos < len(data) {
			n := sizes[i%len(sizes)]
			i++
			if pos+n > len(data) {
				n = len(data) - pos
			}
			if _, err := conn.Write(data[pos : pos+n]); err != nil {
				return
			}
			pos += n
		}
		io.Copy(io.Discard, conn)
	}
}

// startPeer runs a loopback DCC sender. With cutAt >= 0 it sends only that
// many bytes and then drops the connection.
func startPeer(t *testing.T, data []byte, cutAt int) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if cutAt >= 0 {
			conn.Write(data[:cutAt])
			return
		}
		conn.Write(data)
		io.Copy(io.Discard, conn)
	}()

	return ln.Addr().String()
}

// recordingReporter captures every update for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	names   map[uint32]string
	updates map[uint32][]uint64
	done    map[uint32]error
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		names:   make(map[uint32]string),
		updates: make(map[uint32][]uint64),
		done:    make(map[uint32]error),
	}
}

func (r *recordingReporter) Track(id uint32, name string, total uint64) progress.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
	return &recordingTracker{r: r, id: id}
}

func (r *recordingReporter) Wait() {}

type recordingTracker struct {
	r  *recordingReporter
	id uint32
}

func (t *recordingTracker) Update(n uint64) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.updates[t.id] = append(t.r.updates[t.id], n)
}

func (t *recordingTracker) Done(err error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.done[t.id] = err
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + i/7)
	}
	return data
}
