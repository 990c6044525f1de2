package wsh

import (
	"log"

	"github.com/xtaci/wsh/proto"
	"github.com/xtaci/wsh/transport"
)

// Client satisfies transport.EventSink: the Transport delivers every decoded
// control record, newly opened inbound stream, close and error here rather
// than through ambient callback slots.
var _ transport.EventSink = (*Client)(nil)

// OnControl is the transport's single entry point for decoded records. It
// first offers the record to any pending waiter (handshake, open, mcp call,
// ...); only a record no waiter accepts reaches the routing rules.
func (c *Client) OnControl(rec proto.Record) {
	if c.waiters.dispatch(rec) {
		return
	}
	c.routeRecord(rec)
}

// routeRecord applies the four routing rules in priority order: gateway
// range, relay-forwardable (only while acting as a registered reverse
// peer), channel-scoped delivery to a tracked Session, and finally
// transport-level handling.
func (c *Client) routeRecord(rec proto.Record) {
	op := rec.Opcode()

	if proto.IsGatewayOpcode(op) {
		if c.onGatewayMessage != nil {
			c.onGatewayMessage(rec)
		}
		return
	}

	if proto.RelayForwardable[op] && c.onRelayMessage != nil {
		c.onRelayMessage(rec)
		return
	}

	if proto.ChannelScoped[op] {
		if id, ok := recordChannelID(rec); ok {
			c.mu.Lock()
			s := c.sessions[id]
			if op == proto.CLOSE {
				delete(c.sessions, id)
			}
			c.mu.Unlock()
			if s != nil {
				s.HandleControl(rec)
				return
			}
		}
	}

	c.handleTransportLevel(rec)
}

// handleTransportLevel implements routing rule 4: everything not claimed by
// a waiter, the gateway, a relay consumer or a tracked Session.
func (c *Client) handleTransportLevel(rec proto.Record) {
	switch r := rec.(type) {
	case *proto.Ping:
		_ = c.sendControl(proto.NewPong(r.Correlator))
	case *proto.Pong:
		c.recordPong()
	case *proto.ErrorRecord:
		if c.onError != nil {
			c.onError(&TransportError{Cause: errString(r.Message)})
		}
	case *proto.Shutdown:
		log.Printf("wsh: server shutdown: %s", r.Reason)
		go c.Disconnect()
	case *proto.IdleWarning:
		c.sendUnsolicitedPing()
	case *proto.ReverseConnect:
		if c.onReverseConnect != nil {
			c.onReverseConnect(r)
		}
	case *proto.Clipboard:
		if c.onClipboard != nil {
			c.onClipboard(r.Text)
		}
	case *proto.Informational:
		// PRESENCE, CONTROL_CHANGED, METRICS, and any guest/share/compression
		// record: no default client action.
	default:
		// unrecognized at the transport level: dropped.
	}
}

// OnStreamOpen records a data stream the peer opened without a prior local
// OpenStream call in pendingInboundStreams, keyed by stream id. Nothing in
// this package reads that table: openSession opens its own stream, and
// relay-forwarded records go to the onRelayMessage handler unpaired.
func (c *Client) OnStreamOpen(s transport.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingInboundStreams == nil {
		c.pendingInboundStreams = make(map[uint32]transport.Stream)
	}
	c.pendingInboundStreams[s.ID()] = s
}

// OnClose fires when the transport itself tears down (peer hangup, network
// failure) without a local Disconnect call having run first.
func (c *Client) OnClose() {
	if c.State() == StateClosed {
		return
	}
	go c.Disconnect()
}

// OnError reports a transport-level error to the registered callback, if
// any.
func (c *Client) OnError(err error) {
	if c.onError != nil {
		c.onError(&TransportError{Cause: err})
	}
}

func (c *Client) sendControl(rec proto.Record) error {
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return &ClosedError{What: "client"}
	}
	return tr.SendControl(rec)
}

// SendControl lets a Session emit its own control records (RESIZE, SIGNAL,
// CLOSE) through the Client's transport; Session depends only on this
// narrow method via session.ControlSender.
func (c *Client) SendControl(rec proto.Record) error {
	return c.sendControl(rec)
}

// recordChannelID extracts the channel id from any channel-scoped record.
func recordChannelID(rec proto.Record) (uint32, bool) {
	switch r := rec.(type) {
	case *proto.Resize:
		return r.ChannelID, true
	case *proto.Signal:
		return r.ChannelID, true
	case *proto.Exit:
		return r.ChannelID, true
	case *proto.Close:
		return r.ChannelID, true
	case *proto.Open:
		return r.ChannelID, true
	case *proto.OpenOK:
		return r.ChannelID, true
	case *proto.OpenFail:
		return r.ChannelID, true
	default:
		return 0, false
	}
}

type errString string

func (e errString) Error() string { return string(e) }
