package xdccget

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/xdccget/limits"
	"github.com/opd-ai/xdccget/progress"
)

// loopbackIP is 127.0.0.1 encoded as a DCC address.
const loopbackIP = 2130706433

// pack is one file the fake bot serves.
type pack struct {
	name  string
	data  []byte
	cutAt int // bytes sent before the peer drops; -1 sends everything
}

// fakeIRCServer plays both the IRC server and the XDCC bot on a loopback
// listener. It serves a single client.
type fakeIRCServer struct {
	t       *testing.T
	ln      net.Listener
	channel string
	packs   []pack

	// Script tweaks.
	pingToken      string
	repeatJoin     bool
	preJoinOffer   bool
	malformedOffer bool
	longLine       bool
	dropAfter      int // close the control connection after this many offers; 0 never

	mu       sync.Mutex
	received []string
	done     chan struct{}
}

func newFakeIRCServer(t *testing.T, channel string, packs ...pack) *fakeIRCServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeIRCServer{
		t:         t,
		ln:        ln,
		channel:   channel,
		packs:     packs,
		pingToken: "123456",
		done:      make(chan struct{}),
	}
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeIRCServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *fakeIRCServer) start() {
	go s.serve()
}

// Received returns every line the client sent, terminators removed.
func (s *fakeIRCServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// waitDone blocks until the client connection has ended.
func (s *fakeIRCServer) waitDone() {
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.t.Error("fake IRC server did not finish")
	}
}

func (s *fakeIRCServer) serve() {
	defer close(s.done)

	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	readLine := func() (string, bool) {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", false
		}
		line = strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.received = append(s.received, line)
		s.mu.Unlock()
		return line, true
	}
	send := func(format string, args ...any) {
		fmt.Fprintf(conn, format+"\r\n", args...)
	}

	var nick string
	for i := 0; i < 2; i++ {
		line, ok := readLine()
		if !ok {
			return
		}
		if strings.HasPrefix(line, "NICK ") {
			nick = strings.TrimPrefix(line, "NICK ")
		}
	}

	send(":irc.test.net NOTICE * :*** Looking up your hostname...")
	if s.preJoinOffer {
		send(":bot!~bot@host PRIVMSG %s :\x01DCC SEND early.bin %d 1 10\x01", nick, loopbackIP)
	}
	send("PING :%s", s.pingToken)

	for {
		line, ok := readLine()
		if !ok {
			return
		}
		if strings.HasPrefix(line, "JOIN ") {
			break
		}
	}

	send(":%s!~%s@host JOIN :#%s", nick, nick, s.channel)
	if s.repeatJoin {
		send(":%s!~%s@host JOIN :#%s", nick, nick, s.channel)
		send("PING :%s", s.pingToken)
	}
	if s.longLine {
		send(":irc.test.net 372 %s :%s", nick, strings.Repeat("x", limits.MaxLineLength*2))
	}
	if s.malformedOffer {
		send(":bot!~bot@host PRIVMSG %s :\x01DCC SEND bad.bin %d 70000 10\x01", nick, loopbackIP)
	}

	for i := 0; i < len(s.packs); {
		line, ok := readLine()
		if !ok {
			return
		}
		if !strings.Contains(line, ":xdcc send #") {
			continue
		}

		p := s.packs[i]
		port := s.startPeer(p)
		send(":bot!~bot@host PRIVMSG %s :\x01DCC SEND \"%s\" %d %d %d\x01", nick, p.name, loopbackIP, port, len(p.data))
		i++

		if s.dropAfter > 0 && i == s.dropAfter {
			// Consume the outstanding requests so the close is a clean FIN.
			for j := i; j < len(s.packs); j++ {
				if _, ok := readLine(); !ok {
					return
				}
			}
			return
		}
	}

	for {
		if _, ok := readLine(); !ok {
			return
		}
	}
}

// startPeer runs the DCC sender for p and returns its port.
func (s *fakeIRCServer) startPeer(p pack) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		s.t.Errorf("listen: %v", err)
		return 0
	}
	s.t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if p.cutAt >= 0 {
			conn.Write(p.data[:p.cutAt])
			return
		}
		conn.Write(p.data)
		io.Copy(io.Discard, conn)
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func newPack(name string, size int) pack {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + len(name))
	}
	return pack{name: name, data: data, cutAt: -1}
}

// countingReporter records completion signals.
type countingReporter struct {
	mu    sync.Mutex
	done  map[uint32]error
	names map[uint32]string
}

func newCountingReporter() *countingReporter {
	return &countingReporter{
		done:  make(map[uint32]error),
		names: make(map[uint32]string),
	}
}

func (r *countingReporter) Track(id uint32, name string, total uint64) progress.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
	return &countingTracker{r: r, id: id}
}

func (r *countingReporter) Wait() {}

func (r *countingReporter) completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.done)
}

type countingTracker struct {
	r  *countingReporter
	id uint32
}

func (t *countingTracker) Update(uint64) {}

func (t *countingTracker) Done(err error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.done[t.id] = err
}
