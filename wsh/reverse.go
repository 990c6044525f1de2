package wsh

import (
	"time"

	"github.com/xtaci/wsh/crypto"
	"github.com/xtaci/wsh/proto"
)

// DefaultReverseTimeout bounds RegisterReverse and ListPeers.
const DefaultReverseTimeout = 15 * time.Second

// RegisterReverse announces this Client as a reverse peer, advertising
// capabilities under the identity of keyPair, and arms onRelayMessage so
// relay-forwarded OPEN/MCP_DISCOVER/MCP_CALL/CLOSE/RESIZE/SIGNAL records
// reach the caller's handler instead of falling through to the default
// transport-level routing.
func (c *Client) RegisterReverse(username string, capabilities []string, keyPair *crypto.KeyPair, handler func(proto.Record)) error {
	if err := c.requireAuthenticated(); err != nil {
		return err
	}
	raw, err := keyPair.ExportRaw()
	if err != nil {
		return err
	}
	c.onRelayMessage = handler
	return c.sendControl(proto.NewReverseRegister(username, capabilities, raw))
}

// ListPeers requests the set of currently registered reverse peers.
func (c *Client) ListPeers() ([]proto.Peer, error) {
	if err := c.requireAuthenticated(); err != nil {
		return nil, err
	}
	if err := c.sendControl(proto.NewReverseList()); err != nil {
		return nil, &TransportError{Cause: err}
	}
	rec, err := c.waitFor("reverse-list", DefaultReverseTimeout, proto.REVERSE_PEERS)
	if err != nil {
		return nil, err
	}
	peers, _ := rec.(*proto.ReversePeers)
	return peers.Peers, nil
}

// ConnectToPeer requests a reverse connection to the peer identified by
// fingerprint. The server answers asynchronously via REVERSE_CONNECT,
// delivered to the OnReverseConnect callback rather than through this
// call's return value.
func (c *Client) ConnectToPeer(fingerprint string) error {
	if err := c.requireAuthenticated(); err != nil {
		return err
	}
	return c.sendControl(proto.NewReverseConnect(fingerprint))
}

// TODO: once acting as a registered reverse peer, a relay-forwarded OPEN
// should cause this Client to open a local channel and reply with OPEN_OK/
// OPEN_FAIL back through the relay -- the wire shape of that reply (same
// channel id? a distinct relay envelope?) isn't pinned down by anything
// else this Client observes, so onRelayMessage is left to the caller's
// handler rather than guessed at here.
