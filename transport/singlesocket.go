package transport

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/wire"
)

// Frame type tags for the single-socket scheme.
const (
	frameControl     byte = 0x01
	frameData        byte = 0x02
	frameOpenStream  byte = 0x03
	frameCloseStream byte = 0x04
)

const controlStreamID uint32 = 0

// frameHeaderSize is the fixed [type][stream id] prefix of every message;
// it carries no length field because each WebSocket message already is one
// frame -- the underlying socket preserves message boundaries for us.
const frameHeaderSize = 1 + 4

// maxFramePayload bounds a single frame's payload: writeData splits larger
// writes into DATA frames of at most this size. It also sizes the inbound
// read limit so a misbehaving peer can't force unbounded buffering.
const maxFramePayload = 1 << 20

// SingleSocket multiplexes virtual streams over one message-oriented
// WebSocket connection using a four-frame scheme: it reuses no external
// multiplexing library, defining its own frame types instead, but reuses
// github.com/gorilla/websocket for the underlying message-oriented socket
// itself rather than inventing message framing on top of a raw byte stream.
// Every outbound message is exactly one [type][stream id][payload] frame;
// WriteMessage/ReadMessage give each call its own boundary, so there is no
// length prefix to compute or reassemble.
type SingleSocket struct {
	opts EventSink
	comp bool

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	nextLocalID uint32 // odd ids, allocated by us
	streams     map[uint32]*virtualStream

	writeMu sync.Mutex

	decoder *wire.StreamDecoder

	closeOnce sync.Once
}

// NewSingleSocket constructs a SingleSocket transport bound to opts.Sink.
func NewSingleSocket(opts Options) *SingleSocket {
	return &SingleSocket{
		opts:        opts.Sink,
		comp:        opts.Compress,
		state:       StateDisconnected,
		streams:     make(map[uint32]*virtualStream),
		nextLocalID: 1,
		decoder:     wire.NewStreamDecoder(),
	}
}

func (s *SingleSocket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SingleSocket) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Connect performs an actual WebSocket handshake against addr (after
// normalizing a "wsh://" scheme to "wss://"; gorilla's dialer only
// understands ws/wss).
func (s *SingleSocket) Connect(ctx context.Context, addr string) error {
	s.setState(StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, NormalizeURL(addr), nil)
	if err != nil {
		s.setState(StateDisconnected)
		return errors.Wrap(err, "transport: websocket dial")
	}
	conn.SetReadLimit(maxFramePayload + frameHeaderSize)
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)

	go s.readLoop()
	return nil
}

// stripScheme strips a recognized URL scheme prefix, used by NativeStream to
// turn a dial URL into the bare host:port kcp.DialWithOptions expects.
func stripScheme(url string) string {
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://", "wsh://"} {
		if len(url) > len(scheme) && url[:len(scheme)] == scheme {
			return url[len(scheme):]
		}
	}
	return url
}

func (s *SingleSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		s.mu.Lock()
		conn := s.conn
		streams := make([]*virtualStream, 0, len(s.streams))
		for _, vs := range s.streams {
			streams = append(streams, vs)
		}
		s.mu.Unlock()
		for _, vs := range streams {
			vs.closeRead()
		}
		if conn != nil {
			err = conn.Close()
		}
		if s.opts != nil {
			s.opts.OnClose()
		}
	})
	return err
}

func (s *SingleSocket) fail(err error) {
	if s.opts != nil {
		s.opts.OnError(err)
	}
	s.Close()
}

// SendControl writes rec as a length-prefixed wire record inside a CONTROL
// frame on stream 0.
func (s *SingleSocket) SendControl(rec proto.Record) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	payload, err := wire.Frame(nil, rec.ToWire())
	if err != nil {
		return errors.Wrap(err, "transport: encode control record")
	}
	return s.writeFrame(frameControl, controlStreamID, payload)
}

// OpenStream allocates the next odd local stream id and announces it with
// an OPEN_STREAM frame.
func (s *SingleSocket) OpenStream(ctx context.Context) (Stream, error) {
	if s.State() != StateConnected {
		return nil, ErrNotConnected
	}
	id := atomic.AddUint32(&s.nextLocalID, 2) - 2
	vs := newVirtualStream(id, s)
	s.mu.Lock()
	s.streams[id] = vs
	s.mu.Unlock()

	if err := s.writeFrame(frameOpenStream, id, nil); err != nil {
		s.mu.Lock()
		delete(s.streams, id)
		s.mu.Unlock()
		return nil, err
	}
	return s.maybeCompress(vs), nil
}

func (s *SingleSocket) maybeCompress(vs *virtualStream) Stream {
	if !s.comp {
		return vs
	}
	return &idStream{CompStream: *NewCompStream(vs), id: vs.id}
}

// idStream adapts CompStream (whose ID() requires the wrapped type to
// implement Stream) to carry the virtual stream's id directly, since
// virtualStream does implement Stream already but embedding loses the
// concrete method set needed for a clean ID() override.
type idStream struct {
	CompStream
	id uint32
}

func (i *idStream) ID() uint32 { return i.id }

func (s *SingleSocket) writeData(id uint32, p []byte) (int, error) {
	if id == controlStreamID {
		return 0, errors.New("transport: stream id 0 is reserved for control frames")
	}
	for off := 0; off < len(p); {
		end := off + maxFramePayload
		if end > len(p) {
			end = len(p)
		}
		if err := s.writeFrame(frameData, id, p[off:end]); err != nil {
			return off, err
		}
		off = end
	}
	return len(p), nil
}

func (s *SingleSocket) sendCloseStream(id uint32) error {
	if s.State() != StateConnected {
		return nil
	}
	return s.writeFrame(frameCloseStream, id, nil)
}

// writeFrame sends one WebSocket binary message carrying [type][stream
// id][payload]. No length field is needed: WriteMessage gives the peer's
// ReadMessage this exact payload back as one message, so message boundaries
// on the wire already delimit the frame.
func (s *SingleSocket) writeFrame(typ byte, id uint32, payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame := make([]byte, frameHeaderSize+len(payload))
	frame[0] = typ
	binary.BigEndian.PutUint32(frame[1:5], id)
	copy(frame[frameHeaderSize:], payload)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrap(err, "transport: write frame")
	}
	return nil
}

// readLoop reads one WebSocket message per frame and demultiplexes them:
// CONTROL frames are decoded and dispatched via OnControl, DATA frames are
// queued into the matching virtual stream, OPEN_STREAM frames construct and
// surface a new peer-initiated stream, CLOSE_STREAM marks a stream's read
// side closed. When a DATA frame saturates its virtual stream's queue, this
// loop blocks until that stream drains before reading the next message --
// since this is the only goroutine reading the socket, that pause is the
// "stop reading from the socket" back-pressure the scheme relies on.
func (s *SingleSocket) readLoop() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			s.fail(errors.Wrap(err, "transport: read message"))
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if len(msg) < frameHeaderSize {
			s.fail(errors.New("transport: message shorter than frame header"))
			return
		}
		typ := msg[0]
		id := binary.BigEndian.Uint32(msg[1:5])
		payload := msg[frameHeaderSize:]
		if len(payload) > maxFramePayload {
			s.fail(errors.Errorf("transport: frame payload %d exceeds limit", len(payload)))
			return
		}

		switch typ {
		case frameControl:
			if id != controlStreamID {
				s.fail(errors.New("transport: control frame on non-zero stream"))
				return
			}
			values, err := s.decoder.Feed(payload)
			if err != nil {
				s.fail(errors.Wrap(err, "transport: decode control stream"))
				return
			}
			for _, v := range values {
				rec, err := proto.DecodeRecord(v)
				if err != nil {
					if s.opts != nil {
						s.opts.OnError(err)
					}
					continue
				}
				if s.opts != nil {
					s.opts.OnControl(rec)
				}
			}
		case frameData:
			if id == controlStreamID {
				s.fail(errors.New("transport: data frame on stream 0"))
				return
			}
			s.mu.Lock()
			vs := s.streams[id]
			s.mu.Unlock()
			if vs != nil && !vs.feed(payload) {
				vs.waitForDrain()
			}
		case frameOpenStream:
			vs := newVirtualStream(id, s)
			s.mu.Lock()
			s.streams[id] = vs
			s.mu.Unlock()
			if s.opts != nil {
				s.opts.OnStreamOpen(s.maybeCompress(vs))
			}
		case frameCloseStream:
			s.mu.Lock()
			vs := s.streams[id]
			s.mu.Unlock()
			if vs != nil {
				vs.closeRead()
			}
		default:
			s.fail(errors.Errorf("transport: unknown frame type 0x%02x", typ))
			return
		}
	}
}
