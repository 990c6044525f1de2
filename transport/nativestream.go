package transport

import (
	"context"
	"sync"
	"time"

	kcp "github.com/xtaci/kcp-go/v5"
	"github.com/xtaci/smux"

	"github.com/pkg/errors"
	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/wire"
)

// defaultDataShard/defaultParityShard are the reed-solomon forward-error-
// correction defaults for the underlying KCP session.
const (
	defaultDataShard   = 10
	defaultParityShard = 3
)

// NativeStream implements the native-stream transport: a KCP session
// (reliable delivery over UDP with forward error correction) carrying an
// smux multiplexer, whose first stream is reserved as the control stream
// and whose later streams carry raw Session data.
type NativeStream struct {
	opts EventSink
	comp bool

	dataShard, parityShard int
	smuxVersion            int

	mu      sync.Mutex
	state   State
	session *smux.Session
	control *smux.Stream

	decoder *wire.StreamDecoder

	closeOnce sync.Once
}

// NewNativeStream constructs a NativeStream transport bound to opts.Sink.
func NewNativeStream(opts Options) *NativeStream {
	ds, ps := opts.DataShard, opts.ParityShard
	if ds == 0 && ps == 0 {
		ds, ps = defaultDataShard, defaultParityShard
	}
	sv := opts.SmuxVersion
	if sv == 0 {
		sv = 2
	}
	return &NativeStream{
		opts:         opts.Sink,
		comp:         opts.Compress,
		dataShard:    ds,
		parityShard:  ps,
		smuxVersion:  sv,
		state:        StateDisconnected,
		decoder:      wire.NewStreamDecoder(),
	}
}

func (n *NativeStream) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *NativeStream) setState(st State) {
	n.mu.Lock()
	n.state = st
	n.mu.Unlock()
}

// Connect dials addr with kcp.DialWithOptions (unencrypted at the KCP layer
// -- confidentiality and integrity come from the Ed25519-authenticated
// session above, not from KCP's optional block cipher), then layers smux on
// top and opens the first stream as the control stream.
func (n *NativeStream) Connect(ctx context.Context, addr string) error {
	n.setState(StateConnecting)

	target := stripScheme(addr)
	kcpConn, err := kcp.DialWithOptions(target, nil, n.dataShard, n.parityShard)
	if err != nil {
		n.setState(StateDisconnected)
		return errors.Wrap(err, "transport: kcp dial")
	}
	kcpConn.SetStreamMode(true)
	kcpConn.SetWriteDelay(false)
	kcpConn.SetNoDelay(1, 20, 2, 1)

	cfg := smux.DefaultConfig()
	cfg.Version = n.smuxVersion
	cfg.KeepAliveInterval = 10 * time.Second
	if err := smux.VerifyConfig(cfg); err != nil {
		n.setState(StateDisconnected)
		return errors.Wrap(err, "transport: invalid smux config")
	}

	sess, err := smux.Client(kcpConn, cfg)
	if err != nil {
		n.setState(StateDisconnected)
		return errors.Wrap(err, "transport: smux client")
	}

	control, err := sess.OpenStream()
	if err != nil {
		sess.Close()
		n.setState(StateDisconnected)
		return errors.Wrap(err, "transport: open control stream")
	}

	n.mu.Lock()
	n.session = sess
	n.control = control
	n.mu.Unlock()
	n.setState(StateConnected)

	go n.controlReadLoop(control)
	go n.acceptLoop(sess)
	return nil
}

func (n *NativeStream) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.setState(StateClosed)
		n.mu.Lock()
		sess := n.session
		n.mu.Unlock()
		if sess != nil {
			err = sess.Close()
		}
		if n.opts != nil {
			n.opts.OnClose()
		}
	})
	return err
}

func (n *NativeStream) fail(err error) {
	if n.opts != nil {
		n.opts.OnError(err)
	}
	n.Close()
}

// SendControl frames rec and writes it to the control stream.
func (n *NativeStream) SendControl(rec proto.Record) error {
	if n.State() != StateConnected {
		return ErrNotConnected
	}
	n.mu.Lock()
	control := n.control
	n.mu.Unlock()

	payload, err := wire.Frame(nil, rec.ToWire())
	if err != nil {
		return errors.Wrap(err, "transport: encode control record")
	}
	if _, err := control.Write(payload); err != nil {
		return errors.Wrap(err, "transport: write control stream")
	}
	return nil
}

// OpenStream opens a new smux stream for a Session's data.
func (n *NativeStream) OpenStream(ctx context.Context) (Stream, error) {
	if n.State() != StateConnected {
		return nil, ErrNotConnected
	}
	n.mu.Lock()
	sess := n.session
	n.mu.Unlock()

	s, err := sess.OpenStream()
	if err != nil {
		return nil, errors.Wrap(err, "transport: open stream")
	}
	return n.wrap(s), nil
}

func (n *NativeStream) wrap(s *smux.Stream) Stream {
	ns := &smuxStream{s}
	if !n.comp {
		return ns
	}
	return &idStream{CompStream: *NewCompStream(ns), id: uint32(s.ID())}
}

// smuxStream is *smux.Stream under the transport.Stream name; smux's own
// ID() already returns uint32, so embedding is enough to satisfy the
// interface.
type smuxStream struct {
	*smux.Stream
}

// controlReadLoop feeds the streaming decoder from the control stream and
// dispatches each decoded record, in wire order, until the stream errs out.
func (n *NativeStream) controlReadLoop(control *smux.Stream) {
	buf := make([]byte, 32*1024)
	for {
		nRead, err := control.Read(buf)
		if nRead > 0 {
			values, ferr := n.decoder.Feed(buf[:nRead])
			if ferr != nil {
				n.fail(errors.Wrap(ferr, "transport: decode control stream"))
				return
			}
			for _, v := range values {
				rec, derr := proto.DecodeRecord(v)
				if derr != nil {
					if n.opts != nil {
						n.opts.OnError(derr)
					}
					continue
				}
				if n.opts != nil {
					n.opts.OnControl(rec)
				}
			}
		}
		if err != nil {
			n.fail(errors.Wrap(err, "transport: control stream closed"))
			return
		}
	}
}

// acceptLoop surfaces peer-initiated smux streams via OnStreamOpen.
func (n *NativeStream) acceptLoop(sess *smux.Session) {
	for {
		s, err := sess.AcceptStream()
		if err != nil {
			n.fail(errors.Wrap(err, "transport: accept stream"))
			return
		}
		if n.opts != nil {
			n.opts.OnStreamOpen(n.wrap(s))
		}
	}
}
