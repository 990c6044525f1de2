// Package wsh implements the top-level Client orchestrator: connect and
// authenticate, multiplex Sessions over one Transport, keepalive,
// cancellation, reverse mode, file transfer and the remote-tools bridge.
package wsh

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/xtaci/wsh/crypto"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/session"
	"github.com/xtaci/wsh/transport"
)

// State mirrors the Client lifecycle:
// disconnected -> connecting -> connected -> authenticated -> closed.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
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
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultKeepaliveInterval is the default PING period.
const DefaultKeepaliveInterval = 30 * time.Second

// Credentials selects pubkey or password authentication for Connect.
// Exactly one of KeyPair or Password should be set.
type Credentials struct {
	KeyPair  *crypto.KeyPair
	Password string
}

func (c Credentials) method() proto.AuthMethod {
	if c.KeyPair != nil {
		return proto.AuthPubkey
	}
	return proto.AuthPassword
}

// ConnectOptions configures Client.Connect.
type ConnectOptions struct {
	URL         string
	Username    string
	Credentials Credentials
	Features    []string
	Timeout     time.Duration
	Transport   *transport.Options // optional hint; Sink is always overwritten
}

// Client is the top-level orchestrator: one Transport, its negotiated
// Sessions, and the handshake/keepalive/routing state around them.
type Client struct {
	mu       sync.Mutex
	state    State
	tr       transport.Transport
	sessions map[uint32]*session.Session
	waiters  *waiterTable

	nextChannelID uint32
	correlator    uint64

	pendingInboundStreams map[uint32]transport.Stream

	sessionID   string
	resumeToken []byte
	features    []string

	username string
	creds    Credentials

	keepaliveInterval time.Duration
	keepaliveStop     chan struct{}
	lastSeen          atomic.Value // time.Time

	onClose          func()
	onError          func(error)
	onReverseConnect func(*proto.ReverseConnect)
	onClipboard      func(string)
	onRelayMessage   func(proto.Record)
	onGatewayMessage func(proto.Record)

	disconnectOnce sync.Once
}

// NewClient creates a quiescent, disconnected Client.
func NewClient() *Client {
	return &Client{
		state:             StateDisconnected,
		sessions:          make(map[uint32]*session.Session),
		waiters:           newWaiterTable(),
		nextChannelID:     1,
		keepaliveInterval: DefaultKeepaliveInterval,
	}
}

// OnDisconnect registers the callback fired exactly once when the Client
// transitions to StateClosed. Named distinctly from the transport.EventSink
// method OnClose, which Client also implements with a different signature.
func (c *Client) OnDisconnect(fn func())                         { c.onClose = fn }
func (c *Client) OnTransportError(fn func(error))                 { c.onError = fn }
func (c *Client) OnReverseConnect(fn func(*proto.ReverseConnect)) { c.onReverseConnect = fn }
func (c *Client) OnClipboard(fn func(string))                     { c.onClipboard = fn }
func (c *Client) OnRelayMessage(fn func(proto.Record))            { c.onRelayMessage = fn }
func (c *Client) OnGatewayMessage(fn func(proto.Record))          { c.onGatewayMessage = fn }

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// SessionID returns the server-assigned connection identifier, valid once
// authenticated.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResumeToken returns the opaque token from AUTH_OK, usable by a later
// Client instance to resume this session after a reconnect.
func (c *Client) ResumeToken() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.resumeToken...)
}

// ServerFeatures returns the feature list the server advertised in
// SERVER_HELLO.
func (c *Client) ServerFeatures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.features...)
}

// ListSessions returns the currently tracked Sessions keyed by channel id.
func (c *Client) ListSessions() map[uint32]*session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint32]*session.Session, len(c.sessions))
	for k, v := range c.sessions {
		out[k] = v
	}
	return out
}

func (c *Client) requireAuthenticated() error {
	if c.State() != StateAuthenticated {
		return &ClosedError{What: "client (not authenticated)"}
	}
	return nil
}

// Connect drives the Client through the connect/handshake/authenticate
// sequence. Failure at any step closes the transport, rejects all pending
// waiters, and returns the triggering error.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) (err error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	c.username = opts.Username
	c.creds = opts.Credentials
	c.features = opts.Features

	trOpts := transport.Options{Sink: c}
	if opts.Transport != nil {
		trOpts.Compress = opts.Transport.Compress
		trOpts.DataShard = opts.Transport.DataShard
		trOpts.ParityShard = opts.Transport.ParityShard
		trOpts.SmuxVersion = opts.Transport.SmuxVersion
	}

	tr, err := transport.ForURL(opts.URL, trOpts)
	if err != nil {
		return errors.Wrap(err, "wsh: select transport")
	}
	c.mu.Lock()
	c.tr = tr
	c.mu.Unlock()

	c.setState(StateConnecting)
	defer func() {
		if err != nil {
			c.failConnect(err)
		}
	}()

	if err = tr.Connect(ctx, opts.URL); err != nil {
		return &TransportError{Cause: err}
	}
	c.setState(StateConnected)

	method := opts.Credentials.method()
	if err = tr.SendControl(proto.NewHello(opts.Username, opts.Features, method)); err != nil {
		return &TransportError{Cause: err}
	}

	rec, err := c.waitFor("handshake", opts.Timeout, proto.SERVER_HELLO, proto.CHALLENGE, proto.AUTH_FAIL)
	if err != nil {
		return err
	}
	if fail, ok := rec.(*proto.AuthFail); ok {
		return &AuthFailed{Reason: fail.Reason}
	}

	var tentativeSessionID string
	var challengeRec *proto.Challenge

	switch r := rec.(type) {
	case *proto.ServerHello:
		tentativeSessionID = r.SessionID
		c.mu.Lock()
		c.features = r.Features
		c.mu.Unlock()

		if method == proto.AuthPassword {
			if err = tr.SendControl(proto.NewAuthPassword(opts.Credentials.Password)); err != nil {
				return &TransportError{Cause: err}
			}
		} else {
			next, err2 := c.waitFor("auth", opts.Timeout, proto.CHALLENGE, proto.AUTH_OK, proto.AUTH_FAIL)
			if err2 != nil {
				return err2
			}
			switch n := next.(type) {
			case *proto.AuthFail:
				return &AuthFailed{Reason: n.Reason}
			case *proto.Challenge:
				challengeRec = n
			case *proto.AuthOK:
				// The server pre-trusted this key and skipped the challenge
				// round trip. Accept it rather than reject, but log loudly
				// since it means the transcript binding never happened.
				log.Printf("wsh: warning: server issued AUTH_OK without a CHALLENGE for pubkey auth (pre-trusted key policy)")
				return c.finishAuth(n)
			}
		}
	case *proto.Challenge:
		challengeRec = r
	}

	if challengeRec != nil {
		if method != proto.AuthPubkey {
			return errors.New("wsh: server sent CHALLENGE for non-pubkey auth")
		}
		transcript := crypto.BuildTranscript(proto.ProtocolVersion, tentativeSessionID, challengeRec.Nonce, nil)
		sig := opts.Credentials.KeyPair.Sign(transcript)
		raw, rerr := opts.Credentials.KeyPair.ExportRaw()
		if rerr != nil {
			return errors.Wrap(rerr, "wsh: export public key for auth")
		}
		if err = tr.SendControl(proto.NewAuthPubkey(sig, raw)); err != nil {
			return &TransportError{Cause: err}
		}
	}

	final, err := c.waitFor("auth-result", opts.Timeout, proto.AUTH_OK, proto.AUTH_FAIL)
	if err != nil {
		return err
	}
	if fail, ok := final.(*proto.AuthFail); ok {
		return &AuthFailed{Reason: fail.Reason}
	}
	ok, _ := final.(*proto.AuthOK)
	return c.finishAuth(ok)
}

func (c *Client) finishAuth(ok *proto.AuthOK) error {
	c.mu.Lock()
	c.sessionID = ok.SessionID
	c.resumeToken = ok.Token
	c.mu.Unlock()
	c.setState(StateAuthenticated)
	c.startKeepalive()
	return nil
}

// failConnect tears down a partially-established connection attempt: close
// the transport, reject pending waiters, leave the client disconnected
// rather than "closed" so the caller can retry with a fresh Client.
func (c *Client) failConnect(cause error) {
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	c.waiters.rejectAll(cause)
	if tr != nil {
		_ = tr.Close()
	}
	c.setState(StateDisconnected)
}

// Disconnect stops keepalive, transitions to closed, closes every Session
// concurrently ignoring errors, closes the transport, and rejects every
// pending waiter with a single terminal error. Idempotent.
func (c *Client) Disconnect() error {
	c.disconnectOnce.Do(func() {
		c.stopKeepalive()
		c.setState(StateClosed)

		c.mu.Lock()
		sessions := make([]*session.Session, 0, len(c.sessions))
		for _, s := range c.sessions {
			sessions = append(sessions, s)
		}
		c.sessions = make(map[uint32]*session.Session)
		tr := c.tr
		c.mu.Unlock()

		var wg sync.WaitGroup
		for _, s := range sessions {
			wg.Add(1)
			go func(s *session.Session) {
				defer wg.Done()
				_ = s.Close()
			}(s)
		}
		wg.Wait()

		if tr != nil {
			_ = tr.Close()
		}
		c.waiters.rejectAll(&ClosedError{What: "client"})
		if c.onClose != nil {
			c.onClose()
		}
	})
	return nil
}

// waitFor registers a waiter for opcodes and blocks until it resolves or
// times out.
func (c *Client) waitFor(label string, timeout time.Duration, opcodes ...proto.Opcode) (proto.Record, error) {
	w := c.waiters.register(label, opcodes, timeout)
	res := <-w.resume
	return res.rec, res.err
}

func (c *Client) nextCorrelator() uint64 {
	return atomic.AddUint64(&c.correlator, 1)
}

func (c *Client) nextChannel() uint32 {
	return atomic.AddUint32(&c.nextChannelID, 1) - 1
}
