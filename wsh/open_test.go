package wsh

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/transport"
)

// pipeStream is a minimal transport.Stream backed by an in-memory pipe, so
// openSession's data-stream half can be exercised without a real transport.
type pipeStream struct {
	r  io.ReadCloser
	w  io.WriteCloser
	id uint32
}

func (p *pipeStream) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeStream) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeStream) Close() error {
	_ = p.w.Close()
	return p.r.Close()
}
func (p *pipeStream) ID() uint32 { return p.id }

func newPipeStream(id uint32) *pipeStream {
	r, w := io.Pipe()
	return &pipeStream{r: r, w: w, id: id}
}

// fakeStreamTransport is fakeTransport with OpenStream wired to hand back a
// real Stream, for exercising the full openSession flow end to end.
type fakeStreamTransport struct {
	fakeTransport
	stream *pipeStream
}

func (f *fakeStreamTransport) OpenStream(ctx context.Context) (transport.Stream, error) {
	return f.stream, nil
}

// TestOpenSessionUsesServerAssignedChannelID exercises the ordinary case
// where the server assigns a channel id different from the client's
// tentative proposal: the Session must be keyed and addressed under the
// server's id, since that is the id every later EXIT/CLOSE will carry.
func TestOpenSessionUsesServerAssignedChannelID(t *testing.T) {
	c := NewClient()
	tr := &fakeStreamTransport{stream: newPipeStream(99)}
	c.tr = tr
	c.setState(StateAuthenticated)

	const serverChannelID = uint32(777)

	type openResult struct {
		channelID uint32
		err       error
	}
	openDone := make(chan openResult, 1)
	go func() {
		s, err := c.openSession(context.Background(), OpenOptions{Kind: proto.KindExec, Command: "true"})
		if err != nil {
			openDone <- openResult{err: err}
			return
		}
		openDone <- openResult{channelID: s.ChannelID()}
	}()

	// Give openSession time to register its waiter before the reply lands.
	time.Sleep(10 * time.Millisecond)
	c.OnControl(proto.NewOpenOK(serverChannelID))

	res := <-openDone
	if res.err != nil {
		t.Fatalf("openSession: %v", res.err)
	}
	if res.channelID != serverChannelID {
		t.Fatalf("Session.ChannelID() = %d, want the server-assigned %d", res.channelID, serverChannelID)
	}

	c.mu.Lock()
	sess, keyed := c.sessions[serverChannelID]
	c.mu.Unlock()
	if !keyed {
		t.Fatal("session table is not keyed under the server-assigned channel id")
	}

	// An EXIT carrying the server's id must route to this Session rather
	// than miss the lookup because the table was still keyed by the
	// discarded tentative id.
	c.OnControl(proto.NewExit(serverChannelID, 7))
	code, ok := sess.ExitCode()
	if !ok || code != 7 {
		t.Fatalf("Session.ExitCode() = (%d, %v), want (7, true)", code, ok)
	}
}
