package xdccget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/opd-ai/xdccget/file"
	"github.com/opd-ai/xdccget/irc"
	"github.com/opd-ai/xdccget/limits"
	"github.com/opd-ai/xdccget/progress"
	"github.com/opd-ai/xdccget/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
)

// State is the position of a session in its lifecycle.
type State uint8

const (
	// StateConnecting: dialing the server and registering.
	StateConnecting State = iota
	// StateLoggedIn: registration sent, waiting for the first keepalive.
	StateLoggedIn
	// StateAwaitingJoin: JOIN sent, waiting for the server to confirm it.
	StateAwaitingJoin
	// StateJoined: pack requests sent, spawning a transfer per offer.
	StateJoined
	// StateAwaitingAllTransfers: every requested offer has a transfer.
	StateAwaitingAllTransfers
	// StateClosing: leaving the server.
	StateClosing
	// StateDone: all transfers have finished.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLoggedIn:
		return "logged-in"
	case StateAwaitingJoin:
		return "awaiting-join"
	case StateJoined:
		return "joined"
	case StateAwaitingAllTransfers:
		return "awaiting-all-transfers"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Session drives one XDCC download: it owns the control connection, reacts
// to server lines and hands each offer to a file.Manager.
//
// A Session is single use. Run must be called at most once.
type Session struct {
	id       string
	req      Request
	opts     *Options
	dialer   transport.Dialer
	encoding encoding.Encoding
	manager  *file.Manager
	reporter progress.Reporter
	log      *logrus.Entry

	// Owned by the Run goroutine.
	joinSent bool
	joined   bool

	mu    sync.RWMutex
	state State
}

// NewSession validates req and opts and prepares a session. A nil opts uses
// NewOptions.
func NewSession(req Request, opts *Options) (*Session, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if req.Bot == "" || len(req.Packages) == 0 {
		return nil, fmt.Errorf("%w: request needs a bot and at least one package", ErrInvalidArgument)
	}
	if req.Server == "" || req.Channel == "" || req.Nickname == "" {
		return nil, fmt.Errorf("%w: request is missing server, channel or nickname", ErrInvalidArgument)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	enc, err := irc.LookupEncoding(opts.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	dialer := opts.Dialer
	if dialer == nil {
		netDialer, err := transport.NewDialer(opts.Proxy, opts.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		dialer = netDialer
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Nop()
	}

	manager := file.NewManager(dialer, opts.Dir, reporter)
	manager.SetChunkSize(opts.ChunkSize)
	manager.SetStallTimeout(opts.StallTimeout)
	manager.SetSendAcks(opts.SendAcks)

	id := uuid.NewString()
	s := &Session{
		id:       id,
		req:      req,
		opts:     opts,
		dialer:   dialer,
		encoding: enc,
		manager:  manager,
		reporter: reporter,
		log:      logrus.WithField("session_id", id),
		state:    StateConnecting,
	}

	s.log.WithFields(logrus.Fields{
		"function": "NewSession",
		"server":   req.Server,
		"channel":  req.Channel,
		"nickname": req.Nickname,
		"bot":      req.Bot,
		"packages": req.Packages,
	}).Debug("Session created")

	return s, nil
}

// ID returns the session correlation id used in log fields.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Session.setState",
		"from":     prev.String(),
		"to":       state.String(),
	}).Debug("Session state changed")
}

// Run connects, requests every pack and returns once every spawned transfer
// has finished. A control-connection failure is returned as an error, but
// only after the transfers that were already spawned have finished; the
// summary is returned in both cases.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	s.log.WithFields(logrus.Fields{
		"function":  "Session.Run",
		"server":    s.req.Server,
		"requested": len(s.req.Packages),
	}).Info("Starting session")

	runErr := s.control(ctx)

	results := s.manager.Wait()
	s.reporter.Wait()
	s.setState(StateDone)

	summary := &Summary{
		SessionID: s.id,
		Requested: len(s.req.Packages),
		Results:   results,
	}

	fields := logrus.Fields{
		"function":  "Session.Run",
		"requested": summary.Requested,
		"spawned":   len(results),
		"completed": summary.Completed(),
		"failed":    summary.Failed(),
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
		s.log.WithFields(fields).Error("Session ended with error")
	} else {
		s.log.WithFields(fields).Info("Session finished")
	}

	return summary, runErr
}

// control runs the control connection from dial to close.
func (s *Session) control(ctx context.Context) error {
	s.setState(StateConnecting)

	raw, err := s.dialer.DialContext(ctx, "tcp", s.req.Server)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", s.req.Server, err)
	}
	conn := irc.NewConn(raw, s.encoding, s.opts.LineChunkSize)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := s.login(conn); err != nil {
		return s.controlError(ctx, err)
	}

	if err := s.loop(ctx, conn); err != nil {
		return s.controlError(ctx, err)
	}

	s.setState(StateClosing)
	if err := conn.Send(irc.Quit(s.opts.QuitMessage)); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Session.control",
			"error":    err.Error(),
		}).Warn("Failed to send QUIT")
	}
	return nil
}

func (s *Session) controlError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("control connection: %w", err)
}

func (s *Session) login(conn *irc.Conn) error {
	if err := conn.Send(irc.Nick(s.req.Nickname)); err != nil {
		return err
	}
	if err := conn.Send(irc.User(s.req.Nickname)); err != nil {
		return err
	}
	s.setState(StateLoggedIn)
	return nil
}

// loop reads lines until an offer has been accepted for every requested
// pack.
func (s *Session) loop(ctx context.Context, conn *irc.Conn) error {
	requested := len(s.req.Packages)
	for s.manager.Spawned() < requested {
		line, err := conn.ReadLine()
		if errors.Is(err, limits.ErrLineTooLong) {
			s.log.WithFields(logrus.Fields{
				"function": "Session.loop",
				"error":    err.Error(),
			}).Warn("Skipping over-long control line")
			continue
		}
		if err != nil {
			return err
		}
		if err := s.handle(ctx, conn, irc.Classify(line)); err != nil {
			return err
		}
	}

	s.setState(StateAwaitingAllTransfers)
	return nil
}

// handle applies every rule the event satisfies, in keepalive, join, offer
// order.
func (s *Session) handle(ctx context.Context, conn *irc.Conn, ev irc.Event) error {
	if ev.Keepalive {
		if err := conn.Send(ev.Reply); err != nil {
			return err
		}
		if !s.joinSent {
			if err := conn.Send(irc.Join(s.req.Channel)); err != nil {
				return err
			}
			s.joinSent = true
			s.setState(StateAwaitingJoin)
		}
	}

	if ev.Joined && s.joinSent && !s.joined && strings.EqualFold(ev.Channel, s.req.Channel) {
		if err := s.requestPackages(conn); err != nil {
			return err
		}
		s.joined = true
		s.setState(StateJoined)
	}

	if ev.OfferErr != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Session.handle",
			"error":    ev.OfferErr.Error(),
		}).Warn("Ignoring malformed DCC SEND offer")
		return nil
	}

	if ev.Offer != nil {
		s.acceptOffer(ctx, ev.Offer)
	}
	return nil
}

func (s *Session) requestPackages(conn *irc.Conn) error {
	for _, pkg := range s.req.Packages {
		if err := conn.Send(irc.XDCCSend(s.req.Bot, pkg)); err != nil {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"function": "Session.requestPackages",
			"bot":      s.req.Bot,
			"package":  pkg,
		}).Info("Requested package")
	}
	return nil
}

func (s *Session) acceptOffer(ctx context.Context, offer *irc.Offer) {
	fields := logrus.Fields{
		"function":  "Session.acceptOffer",
		"file_name": offer.FileName,
		"file_size": offer.Size,
		"peer":      offer.Addr(),
	}

	if !s.joined {
		s.log.WithFields(fields).Warn("Ignoring DCC SEND offer received before join")
		return
	}
	if s.manager.Spawned() >= len(s.req.Packages) {
		s.log.WithFields(fields).Warn("Ignoring unrequested DCC SEND offer")
		return
	}

	s.log.WithFields(fields).Info("Accepted DCC SEND offer")
	s.manager.Start(ctx, offer.FileName, offer.Size, offer.Addr())
}
