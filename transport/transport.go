// Package transport implements the abstract transport contract and its two
// concrete implementations: a native multi-stream transport layered on
// KCP+smux, and a single-socket transport that self-multiplexes virtual
// streams over one message-oriented connection.
package transport

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/xtaci/wsh/proto"
)

// State mirrors the transport state machine:
// disconnected -> connecting -> connected -> closed.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by SendControl/OpenStream when the transport
// is not in StateConnected.
var ErrNotConnected = errors.New("transport: not connected")

// ErrClosed names the closed-transport condition. Neither implementation
// returns it: SendControl and OpenStream report ErrNotConnected in every
// state other than StateConnected, StateClosed included.
var ErrClosed = errors.New("transport: closed")

// Stream is a bidirectional byte stream backing one Session's data half
// pair. Close is idempotent. A NativeStream stream releases both halves on
// Close; a SingleSocket virtual stream only half-closes its write side, and
// its read side ends when the peer closes or the transport fails.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	// ID is the stream's transport-local identifier: the smux stream id for
	// NativeStream, or the virtual stream id for SingleSocket.
	ID() uint32
}

// EventSink receives transport-level events. It is supplied at construction
// by the owning Client, replacing the ambient mutable callback slots the
// original design used with an explicit interface.
type EventSink interface {
	OnControl(rec proto.Record)
	OnStreamOpen(s Stream)
	OnClose()
	OnError(err error)
}

// Transport is the contract both implementations satisfy.
type Transport interface {
	Connect(ctx context.Context, url string) error
	Close() error
	SendControl(rec proto.Record) error
	OpenStream(ctx context.Context) (Stream, error)
	State() State
}
