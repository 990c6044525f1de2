package wsh

import (
	"time"

	"github.com/xtaci/wsh/proto"
)

// startKeepalive spawns the periodic PING ticker; it is idempotent to call
// once per successful authentication.
func (c *Client) startKeepalive() {
	c.mu.Lock()
	if c.keepaliveStop != nil {
		c.mu.Unlock()
		return
	}
	c.lastSeen.Store(time.Now())
	stop := make(chan struct{})
	c.keepaliveStop = stop
	interval := c.keepaliveInterval
	c.mu.Unlock()

	go c.keepaliveLoop(interval, stop)
}

func (c *Client) stopKeepalive() {
	c.mu.Lock()
	stop := c.keepaliveStop
	c.keepaliveStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (c *Client) keepaliveLoop(interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = c.sendControl(proto.NewPing(c.nextCorrelator()))
		}
	}
}

// sendUnsolicitedPing issues an immediate PING outside the regular tick,
// in response to an IDLE_WARNING from the server.
func (c *Client) sendUnsolicitedPing() {
	_ = c.sendControl(proto.NewPing(c.nextCorrelator()))
}

// recordPong timestamps the most recent PONG seen from the peer, so a
// caller can detect a stalled keepalive by comparing against time.Now.
func (c *Client) recordPong() {
	c.lastSeen.Store(time.Now())
}

// LastSeen returns the time of the most recent PONG received. Before any
// PONG it returns the time keepalive started, and the zero time if
// keepalive has never started.
func (c *Client) LastSeen() time.Time {
	v := c.lastSeen.Load()
	if v == nil {
		return time.Time{}
	}
	return v.(time.Time)
}
