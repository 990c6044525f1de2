package wsh

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/session"
)

// DefaultOpenTimeout bounds how long openSession waits for OPEN_OK/OPEN_FAIL.
const DefaultOpenTimeout = 15 * time.Second

// OpenOptions configures openSession.
type OpenOptions struct {
	Kind    proto.ChannelKind
	Command string
	Cols    uint32
	Rows    uint32
	Env     map[string]string
	Timeout time.Duration

	OnData  func([]byte)
	OnClose func()
	OnExit  func(code int32)
}

// openSession sends OPEN, waits for the matching OPEN_OK/OPEN_FAIL, opens a
// transport data stream for the new channel and wraps it in a Session. The
// tentative id in the OPEN record is only a correlator for this exchange:
// OPEN_OK's own channel_id is the canonical one and supersedes it, so the
// Session is keyed and addressed under the server's id from here on. A late
// OPEN_OK arriving after the wait has already timed out is dropped by the
// routing rules rather than spawning a stray Session.
func (c *Client) openSession(ctx context.Context, opts OpenOptions) (*session.Session, error) {
	if err := c.requireAuthenticated(); err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOpenTimeout
	}

	tentativeID := c.nextChannel()
	if err := c.sendControl(proto.NewOpen(tentativeID, opts.Kind, opts.Command, opts.Cols, opts.Rows, opts.Env)); err != nil {
		return nil, &TransportError{Cause: err}
	}

	rec, err := c.waitFor("open", opts.Timeout, proto.OPEN_OK, proto.OPEN_FAIL)
	if err != nil {
		return nil, err
	}
	if fail, ok := rec.(*proto.OpenFail); ok {
		return nil, &OpenFailed{Reason: fail.Reason}
	}
	ok, isOK := rec.(*proto.OpenOK)
	if !isOK {
		return nil, errors.Errorf("wsh: unexpected response to OPEN: %T", rec)
	}
	channelID := ok.ChannelID

	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return nil, &ClosedError{What: "client"}
	}

	stream, err := tr.OpenStream(ctx)
	if err != nil {
		_ = c.sendControl(proto.NewClose(channelID))
		return nil, &TransportError{Cause: err}
	}

	s := session.New(channelID, opts.Kind, c, stream, opts.OnData, func() {
		c.mu.Lock()
		delete(c.sessions, channelID)
		c.mu.Unlock()
		if opts.OnClose != nil {
			opts.OnClose()
		}
	}, opts.OnExit)
	c.mu.Lock()
	c.sessions[channelID] = s
	c.mu.Unlock()
	return s, nil
}

// OpenPTY opens an interactive pty channel running command (empty for the
// default shell) at the given terminal size.
func (c *Client) OpenPTY(ctx context.Context, command string, cols, rows uint32, env map[string]string, onData func([]byte)) (*session.Session, error) {
	return c.openSession(ctx, OpenOptions{Kind: proto.KindPTY, Command: command, Cols: cols, Rows: rows, Env: env, OnData: onData})
}

// OpenExec opens a one-shot, non-interactive exec channel.
func (c *Client) OpenExec(ctx context.Context, opts OpenOptions) (*session.Session, error) {
	opts.Kind = proto.KindExec
	return c.openSession(ctx, opts)
}

// OpenFile opens a file-transfer channel; command is "upload:<path>" or
// "download:<path>" per the remote tool convention.
func (c *Client) OpenFile(ctx context.Context, opts OpenOptions) (*session.Session, error) {
	opts.Kind = proto.KindFile
	return c.openSession(ctx, opts)
}
