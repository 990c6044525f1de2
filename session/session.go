// Package session implements the client-side Session handle: one channel's
// lifecycle, its data stream, and the control records routed to it by the
// owning Client.
package session

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/transport"
)

// State mirrors Session.state: opening -> active -> closed.
type State int

const (
	StateOpening State = iota
	StateActive
	StateClosed
)

// ErrClosed is returned by write/resize/signal operations attempted after
// the Session has transitioned to StateClosed.
var ErrClosed = errors.New("session: closed")

// ControlSender is the narrow slice of Client a Session needs to emit its
// own control records (RESIZE, SIGNAL, CLOSE); it lets Session stay
// decoupled from the full Client type.
type ControlSender interface {
	SendControl(rec proto.Record) error
}

// Session is the client-side handle for one channel.
type Session struct {
	channelID uint32
	kind      proto.ChannelKind
	sender    ControlSender
	stream    transport.Stream

	onData  func([]byte)
	onClose func()
	onExit  func(code int32)

	mu       sync.Mutex
	state    State
	exitCode *int32

	closeOnce sync.Once
	readDone  chan struct{}
}

// New constructs a Session bound to stream and starts its background read
// pump. onData is invoked for each non-empty inbound chunk, in wire order;
// onClose fires exactly once when the Session transitions to StateClosed
// for any reason.
func New(channelID uint32, kind proto.ChannelKind, sender ControlSender, stream transport.Stream, onData func([]byte), onClose func(), onExit func(code int32)) *Session {
	s := &Session{
		channelID: channelID,
		kind:      kind,
		sender:    sender,
		stream:    stream,
		onData:    onData,
		onClose:   onClose,
		onExit:    onExit,
		state:     StateActive,
		readDone:  make(chan struct{}),
	}
	go s.readPump()
	return s
}

// ID is the decimal form of the channel id.
func (s *Session) ID() string {
	return strconv.FormatUint(uint64(s.channelID), 10)
}

// ChannelID returns the numeric channel id.
func (s *Session) ChannelID() uint32 { return s.channelID }

// Kind reports the channel kind this Session wraps.
func (s *Session) Kind() proto.ChannelKind { return s.kind }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ExitCode returns the exit code delivered by an EXIT record, if any.
func (s *Session) ExitCode() (int32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exitCode == nil {
		return 0, false
	}
	return *s.exitCode, true
}

// Write encodes text as UTF-8 (Go strings already are) and writes to the
// outbound half. Fails with ErrClosed once the Session is closed.
func (s *Session) Write(p []byte) (int, error) {
	if s.State() == StateClosed {
		return 0, ErrClosed
	}
	n, err := s.stream.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "session: write")
	}
	return n, nil
}

// WriteString is a convenience wrapper over Write for text input.
func (s *Session) WriteString(text string) (int, error) {
	return s.Write([]byte(text))
}

// Resize emits a RESIZE control record for pty channels; for any other
// kind it sends nothing and returns nil.
func (s *Session) Resize(cols, rows uint32) error {
	if s.State() == StateClosed {
		return ErrClosed
	}
	if s.kind != proto.KindPTY {
		return nil
	}
	return s.sender.SendControl(proto.NewResize(s.channelID, cols, rows))
}

// Signal emits a SIGNAL control record carrying a symbolic signal name
// (e.g. "SIGINT").
func (s *Session) Signal(name string) error {
	if s.State() == StateClosed {
		return ErrClosed
	}
	return s.sender.SendControl(proto.NewSignal(s.channelID, name))
}

// Close is idempotent: it best-effort-sends CLOSE for this channel,
// cancels the inbound read pump, closes the outbound writer, and fires
// onClose exactly once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.sender.SendControl(proto.NewClose(s.channelID))
		_ = s.stream.Close()
		s.transitionClosed()
	})
	return nil
}

// transitionClosed flips state to StateClosed and fires onClose exactly
// once, regardless of which path (user Close, server CLOSE, EOF, transport
// error) triggered it.
func (s *Session) transitionClosed() {
	s.mu.Lock()
	already := s.state == StateClosed
	s.state = StateClosed
	s.mu.Unlock()
	if !already && s.onClose != nil {
		s.onClose()
	}
}

// HandleControl processes a control record routed to this channel by the
// Client: EXIT sets the exit code and fires onExit; CLOSE transitions
// to closed; RESIZE acknowledgments are informational; unknown
// channel-scoped opcodes are ignored.
func (s *Session) HandleControl(rec proto.Record) {
	switch r := rec.(type) {
	case *proto.Exit:
		s.mu.Lock()
		code := r.Code
		s.exitCode = &code
		s.mu.Unlock()
		if s.onExit != nil {
			s.onExit(r.Code)
		}
	case *proto.Close:
		// Server-initiated close: stop accepting further writes and run
		// the same teardown user Close() would, without re-sending CLOSE.
		s.closeOnce.Do(func() {
			_ = s.stream.Close()
			s.transitionClosed()
		})
	case *proto.Resize:
		// informational acknowledgment only
	default:
		// unknown channel-scoped opcode: ignored
	}
}

// readPump continuously reads the inbound half and delivers each non-empty
// chunk to onData, in wire order. Termination for any reason (EOF, error,
// Close()) transitions the Session to closed if it isn't already.
func (s *Session) readPump() {
	defer close(s.readDone)
	buf := make([]byte, 32*1024)
	for {
		n, err := s.stream.Read(buf)
		if n > 0 && s.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onData(chunk)
		}
		if err != nil {
			s.closeOnce.Do(func() {
				_ = s.stream.Close()
				s.transitionClosed()
			})
			return
		}
	}
}
