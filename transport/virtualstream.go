package transport

import (
	"io"
	"sync"
)

// virtualStreamQueueCap bounds the inbound byte queue per virtual stream:
// once full, the demultiplexer stops reading the socket (for every stream
// and for CONTROL frames) until this stream drains, providing cooperative
// back-pressure without an unbounded buffer.
const virtualStreamQueueCap = 4 << 20 // 4 MiB

// virtualStream is a multiplexed byte channel within SingleSocket.
type virtualStream struct {
	id uint32

	mu         sync.Mutex
	cond       *sync.Cond
	buf        []byte
	readClosed bool // peer sent CLOSE_STREAM or the socket died
	localClose bool // we sent CLOSE_STREAM (half-close of our write side)

	owner *SingleSocket
}

func newVirtualStream(id uint32, owner *SingleSocket) *virtualStream {
	vs := &virtualStream{id: id, owner: owner}
	vs.cond = sync.NewCond(&vs.mu)
	return vs
}

// ID returns the virtual stream id.
func (vs *virtualStream) ID() uint32 { return vs.id }

// feed appends inbound bytes from a DATA frame. Returns false if the queue
// is saturated and the caller (the demultiplexer) should apply back-pressure
// by pausing socket reads.
func (vs *virtualStream) feed(p []byte) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.readClosed {
		return true
	}
	vs.buf = append(vs.buf, p...)
	vs.cond.Broadcast()
	return len(vs.buf) < virtualStreamQueueCap
}

// waitForDrain blocks until this stream's inbound queue has room again (or
// its read side closes), the pause point the demultiplexer's single reader
// goroutine parks at when feed reports saturation. Since one goroutine reads
// the whole socket, pausing here for any one saturated stream is exactly the
// "stop reading from the socket" back-pressure the four-frame scheme needs.
func (vs *virtualStream) waitForDrain() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for len(vs.buf) >= virtualStreamQueueCap && !vs.readClosed {
		vs.cond.Wait()
	}
}

// closeRead marks the read side closed (inbound CLOSE_STREAM or transport
// failure) and wakes any blocked reader with io.EOF.
func (vs *virtualStream) closeRead() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.readClosed = true
	vs.cond.Broadcast()
}

func (vs *virtualStream) Read(p []byte) (int, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for len(vs.buf) == 0 && !vs.readClosed {
		vs.cond.Wait()
	}
	if len(vs.buf) == 0 && vs.readClosed {
		return 0, io.EOF
	}
	n := copy(p, vs.buf)
	vs.buf = vs.buf[n:]
	vs.cond.Broadcast() // wakes waitForDrain once consumption frees queue room
	return n, nil
}

func (vs *virtualStream) Write(p []byte) (int, error) {
	vs.mu.Lock()
	closed := vs.localClose
	vs.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	return vs.owner.writeData(vs.id, p)
}

// Close is idempotent: it sends CLOSE_STREAM (half-close of the local write
// side, best-effort) and marks the local side closed. The read side is only
// closed when the peer reciprocates or the transport fails.
func (vs *virtualStream) Close() error {
	vs.mu.Lock()
	if vs.localClose {
		vs.mu.Unlock()
		return nil
	}
	vs.localClose = true
	vs.mu.Unlock()
	return vs.owner.sendCloseStream(vs.id)
}
