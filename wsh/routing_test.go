package wsh

import (
	"context"
	"testing"
	"time"

	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/transport"
)

// fakeTransport records every control record sent through it; it never
// actually connects anywhere.
type fakeTransport struct {
	sent []proto.Record
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error { return nil }
func (f *fakeTransport) Close() error                                  { return nil }
func (f *fakeTransport) SendControl(rec proto.Record) error {
	f.sent = append(f.sent, rec)
	return nil
}
func (f *fakeTransport) OpenStream(ctx context.Context) (transport.Stream, error) {
	return nil, transport.ErrNotConnected
}
func (f *fakeTransport) State() transport.State { return transport.StateConnected }

func newTestClient() (*Client, *fakeTransport) {
	c := NewClient()
	tr := &fakeTransport{}
	c.tr = tr
	c.setState(StateAuthenticated)
	return c, tr
}

func TestOnControlRespondsToPingWithPong(t *testing.T) {
	c, tr := newTestClient()
	c.OnControl(proto.NewPing(42))

	if len(tr.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(tr.sent))
	}
	pong, ok := tr.sent[0].(*proto.Pong)
	if !ok {
		t.Fatalf("expected *proto.Pong, got %T", tr.sent[0])
	}
	if pong.Correlator != 42 {
		t.Fatalf("Correlator = %d, want 42", pong.Correlator)
	}
}

func TestOnControlPrefersPendingWaiterOverRouting(t *testing.T) {
	c, tr := newTestClient()
	w := c.waiters.register("auth-result", []proto.Opcode{proto.AUTH_OK, proto.AUTH_FAIL}, defaultTestTimeout)

	c.OnControl(proto.NewAuthOK("sess-1", []byte("token")))

	res := <-w.resume
	if res.err != nil {
		t.Fatalf("waiter got error %v", res.err)
	}
	if len(tr.sent) != 0 {
		t.Fatal("a record claimed by a waiter must not also fall through to routing")
	}
}

func TestOnControlDeliversGatewayMessage(t *testing.T) {
	c, _ := newTestClient()
	var got proto.Record
	c.OnGatewayMessage(func(rec proto.Record) { got = rec })

	msg := proto.NewInformational(proto.GATEWAY_MESSAGE, map[string]interface{}{"kind": "ssh-proxy"})
	c.OnControl(msg)

	if got == nil || got.Opcode() != proto.GATEWAY_MESSAGE {
		t.Fatalf("expected the gateway callback to receive the record, got %+v", got)
	}
}

func TestOnCloseIsIdempotentAfterDisconnect(t *testing.T) {
	c, _ := newTestClient()
	closed := make(chan struct{})
	c.OnDisconnect(func() { close(closed) })

	if err := c.Disconnect(); err != nil {
		t.Fatal(err)
	}
	<-closed

	// A transport-initiated OnClose arriving after a local Disconnect must
	// not panic or attempt a second teardown.
	c.OnClose()
}

const defaultTestTimeout = 2 * time.Second
