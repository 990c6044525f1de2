package wsh

import (
	"testing"
	"time"

	"github.com/xtaci/wsh/proto"
)

func TestWaiterTableSingleOpcodeFIFO(t *testing.T) {
	tbl := newWaiterTable()
	w1 := tbl.register("first", []proto.Opcode{proto.PONG}, time.Second)
	w2 := tbl.register("second", []proto.Opcode{proto.PONG}, time.Second)

	if !tbl.dispatch(proto.NewPong(1)) {
		t.Fatal("expected dispatch to find a waiter")
	}
	select {
	case res := <-w1.resume:
		if res.err != nil || res.rec.Opcode() != proto.PONG {
			t.Fatalf("first waiter got %+v", res)
		}
	default:
		t.Fatal("first registered waiter should have resolved before the second")
	}

	if !tbl.dispatch(proto.NewPong(2)) {
		t.Fatal("expected second dispatch to find the remaining waiter")
	}
	select {
	case res := <-w2.resume:
		if res.err != nil {
			t.Fatalf("second waiter got %+v", res)
		}
	default:
		t.Fatal("second waiter should have resolved")
	}
}

func TestWaiterTableMultiOpcodeFirstMatchWins(t *testing.T) {
	tbl := newWaiterTable()
	w := tbl.register("handshake", []proto.Opcode{proto.SERVER_HELLO, proto.CHALLENGE, proto.AUTH_FAIL}, time.Second)

	if !tbl.dispatch(proto.NewChallenge([]byte("nonce"))) {
		t.Fatal("expected the multi-opcode waiter to accept CHALLENGE")
	}
	res := <-w.resume
	if res.err != nil || res.rec.Opcode() != proto.CHALLENGE {
		t.Fatalf("got %+v", res)
	}
}

func TestWaiterTableUnmatchedDispatchReturnsFalse(t *testing.T) {
	tbl := newWaiterTable()
	tbl.register("auth-result", []proto.Opcode{proto.AUTH_OK, proto.AUTH_FAIL}, time.Second)

	if tbl.dispatch(proto.NewPong(1)) {
		t.Fatal("PONG should not satisfy an AUTH_OK/AUTH_FAIL waiter")
	}
}

func TestWaiterTableTimeout(t *testing.T) {
	tbl := newWaiterTable()
	w := tbl.register("ping", []proto.Opcode{proto.PONG}, 10*time.Millisecond)

	res := <-w.resume
	if res.err == nil {
		t.Fatal("expected a TimeoutError")
	}
	if _, ok := res.err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T", res.err)
	}

	// The timed-out waiter must have removed itself so a later dispatch
	// for the same opcode doesn't find a stale entry.
	if tbl.dispatch(proto.NewPong(1)) {
		t.Fatal("dispatch should find nothing after the waiter timed out")
	}
}

func TestWaiterTableRejectAll(t *testing.T) {
	tbl := newWaiterTable()
	w1 := tbl.register("a", []proto.Opcode{proto.AUTH_OK}, time.Second)
	w2 := tbl.register("b", []proto.Opcode{proto.SERVER_HELLO, proto.CHALLENGE}, time.Second)

	cause := &ClosedError{What: "client"}
	tbl.rejectAll(cause)

	for _, w := range []*waiter{w1, w2} {
		res := <-w.resume
		if res.err != cause {
			t.Fatalf("got %+v, want %v", res, cause)
		}
	}
}
