package session

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/xtaci/wsh/proto"
)

type fakeStream struct {
	mu      sync.Mutex
	toRead  [][]byte
	readErr error
	written bytes.Buffer
	closed  bool
}

func (f *fakeStream) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.toRead) == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		f.mu.Lock()
	}
	chunk := f.toRead[0]
	f.toRead = f.toRead[1:]
	n := copy(p, chunk)
	return n, nil
}

func (f *fakeStream) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.readErr = io.EOF
	return nil
}

func (f *fakeStream) ID() uint32 { return 7 }

type fakeSender struct {
	mu  sync.Mutex
	out []proto.Record
}

func (s *fakeSender) SendControl(rec proto.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, rec)
	return nil
}

func TestSessionWriteAndClose(t *testing.T) {
	stream := &fakeStream{}
	sender := &fakeSender{}
	closed := make(chan struct{})

	s := New(7, proto.KindExec, sender, stream, nil, func() { close(closed) }, nil)

	if _, err := s.WriteString("hello"); err != nil {
		t.Fatal(err)
	}
	if stream.written.String() != "hello" {
		t.Fatalf("written = %q", stream.written.String())
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("onClose did not fire")
	}

	if s.State() != StateClosed {
		t.Fatal("expected closed state")
	}
	if _, err := s.WriteString("more"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	// Close must be idempotent and onClose must fire exactly once.
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSessionOnCloseFiresOnceOnEOF(t *testing.T) {
	stream := &fakeStream{readErr: io.EOF}
	sender := &fakeSender{}
	var closeCount int
	var mu sync.Mutex
	done := make(chan struct{})

	New(7, proto.KindExec, sender, stream, nil, func() {
		mu.Lock()
		closeCount++
		mu.Unlock()
		close(done)
	}, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onClose did not fire on EOF")
	}

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if closeCount != 1 {
		t.Fatalf("onClose fired %d times, want 1", closeCount)
	}
}

func TestSessionHandleExitRecord(t *testing.T) {
	stream := &fakeStream{readErr: errors.New("no more data")}
	sender := &fakeSender{}
	var gotCode int32 = -1
	codeCh := make(chan int32, 1)

	s := New(7, proto.KindExec, sender, stream, nil, nil, func(code int32) {
		codeCh <- code
	})

	s.HandleControl(proto.NewExit(7, 0))
	select {
	case gotCode = <-codeCh:
	case <-time.After(time.Second):
		t.Fatal("onExit did not fire")
	}
	if gotCode != 0 {
		t.Fatalf("exit code = %d, want 0", gotCode)
	}
	code, ok := s.ExitCode()
	if !ok || code != 0 {
		t.Fatalf("ExitCode() = (%d, %v)", code, ok)
	}
}

func TestSessionResizeIgnoredForNonPTY(t *testing.T) {
	stream := &fakeStream{readErr: errors.New("eof")}
	sender := &fakeSender{}
	s := New(7, proto.KindExec, sender, stream, nil, nil, nil)

	if err := s.Resize(80, 24); err != nil {
		t.Fatal(err)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.out) != 0 {
		t.Fatalf("expected no RESIZE sent for exec kind, got %d records", len(sender.out))
	}
}
