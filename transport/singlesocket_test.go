package transport

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/wire"
)

type recordingSink struct {
	controls chan proto.Record
	opens    chan Stream
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		controls: make(chan proto.Record, 16),
		opens:    make(chan Stream, 16),
	}
}

func (s *recordingSink) OnControl(rec proto.Record) { s.controls <- rec }
func (s *recordingSink) OnStreamOpen(st Stream)      { s.opens <- st }
func (s *recordingSink) OnClose()                    {}
func (s *recordingSink) OnError(err error)           {}

// wsEchoServer upgrades every request to a real WebSocket connection and
// hands the resulting *websocket.Conn to a test over connCh, letting tests
// speak the four-frame scheme directly against a genuine peer rather than a
// raw TCP stream -- SingleSocket now requires an actual handshake.
func wsEchoServer(t *testing.T) (addr string, connCh chan *websocket.Conn, closeFn func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	connCh = make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- conn
	}))
	addr = "ws" + srv.URL[len("http"):]
	return addr, connCh, srv.Close
}

func TestSingleSocketControlRoundTrip(t *testing.T) {
	addr, connCh, closeSrv := wsEchoServer(t)
	defer closeSrv()

	sink := newRecordingSink()
	sock := NewSingleSocket(Options{Sink: sink})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sock.Connect(ctx, addr); err != nil {
		t.Fatal(err)
	}
	defer sock.Close()

	serverConn := <-connCh
	defer serverConn.Close()

	if err := sock.SendControl(proto.NewPing(42)); err != nil {
		t.Fatal(err)
	}

	msgType, msg, err := serverConn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want BinaryMessage", msgType)
	}
	if len(msg) < frameHeaderSize {
		t.Fatalf("message too short for frame header: %d bytes", len(msg))
	}
	if msg[0] != frameControl {
		t.Fatalf("frame type = 0x%02x, want CONTROL", msg[0])
	}
	if id := binary.BigEndian.Uint32(msg[1:5]); id != controlStreamID {
		t.Fatalf("stream id = %d, want 0", id)
	}
}

func TestSingleSocketStreamDataRoundTrip(t *testing.T) {
	addr, connCh, closeSrv := wsEchoServer(t)
	defer closeSrv()

	sink := newRecordingSink()
	sock := NewSingleSocket(Options{Sink: sink})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sock.Connect(ctx, addr); err != nil {
		t.Fatal(err)
	}
	defer sock.Close()

	serverConn := <-connCh
	defer serverConn.Close()

	st, err := sock.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// drain the OPEN_STREAM announcement
	if _, _, err := serverConn.ReadMessage(); err != nil {
		t.Fatal(err)
	}

	if _, err := st.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	_, msg, err := serverConn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg[0] != frameData {
		t.Fatalf("frame type = 0x%02x, want DATA", msg[0])
	}
	if id := binary.BigEndian.Uint32(msg[1:5]); id != st.ID() {
		t.Fatalf("stream id = %d, want %d", id, st.ID())
	}
	if payload := string(msg[frameHeaderSize:]); payload != "hello" {
		t.Fatalf("payload = %q, want %q", payload, "hello")
	}

	// feed a DATA frame back and confirm it surfaces on the stream's Read.
	reply := make([]byte, frameHeaderSize+len("world"))
	reply[0] = frameData
	binary.BigEndian.PutUint32(reply[1:5], st.ID())
	copy(reply[frameHeaderSize:], "world")
	if err := serverConn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 16)
	n, err := st.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("read %q, want %q", buf[:n], "world")
	}
}

func TestSingleSocketBackPressurePausesReadLoop(t *testing.T) {
	addr, connCh, closeSrv := wsEchoServer(t)
	defer closeSrv()

	sink := newRecordingSink()
	sock := NewSingleSocket(Options{Sink: sink})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sock.Connect(ctx, addr); err != nil {
		t.Fatal(err)
	}
	defer sock.Close()

	serverConn := <-connCh
	defer serverConn.Close()

	st, err := sock.OpenStream(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := serverConn.ReadMessage(); err != nil { // OPEN_STREAM
		t.Fatal(err)
	}

	// Saturate the stream's inbound queue so the read loop parks in
	// waitForDrain instead of consuming the next control frame. The bytes go
	// out as maxFramePayload-sized DATA frames, since a larger message would
	// exceed the socket's read limit.
	big := make([]byte, virtualStreamQueueCap)
	for off := 0; off < len(big); off += maxFramePayload {
		chunk := big[off : off+maxFramePayload]
		dataFrame := make([]byte, frameHeaderSize+len(chunk))
		dataFrame[0] = frameData
		binary.BigEndian.PutUint32(dataFrame[1:5], st.ID())
		copy(dataFrame[frameHeaderSize:], chunk)
		if err := serverConn.WriteMessage(websocket.BinaryMessage, dataFrame); err != nil {
			t.Fatal(err)
		}
	}

	// Give the read loop a moment to feed the saturating frames and block.
	time.Sleep(50 * time.Millisecond)

	pingFrame, err := encodeControlFrame(proto.NewPing(7))
	if err != nil {
		t.Fatal(err)
	}
	if err := serverConn.WriteMessage(websocket.BinaryMessage, pingFrame); err != nil {
		t.Fatal(err)
	}

	select {
	case <-sink.controls:
		t.Fatal("control frame delivered before the saturated stream drained")
	case <-time.After(100 * time.Millisecond):
	}

	// Draining the stream should unblock the read loop and let the queued
	// control frame through.
	buf := make([]byte, len(big))
	if _, err := st.Read(buf); err != nil {
		t.Fatal(err)
	}

	select {
	case rec := <-sink.controls:
		if _, ok := rec.(*proto.Ping); !ok {
			t.Fatalf("got %T, want *proto.Ping", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("control frame never delivered after drain")
	}
}

func encodeControlFrame(rec proto.Record) ([]byte, error) {
	payload, err := wire.Frame(nil, rec.ToWire())
	if err != nil {
		return nil, err
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	frame[0] = frameControl
	binary.BigEndian.PutUint32(frame[1:5], controlStreamID)
	copy(frame[frameHeaderSize:], payload)
	return frame, nil
}
