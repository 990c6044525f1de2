package transport

import (
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// CompStream wraps an io.ReadWriteCloser with snappy framing so compression
// can sit transparently on top of either transport implementation's data
// streams. Both transports apply it to every data stream when
// Options.Compress is set; no COMPRESSION_OFFER/COMPRESSION_ACCEPT exchange
// takes place first.
type CompStream struct {
	inner io.ReadWriteCloser
	w     *snappy.Writer
	r     *snappy.Reader
}

// NewCompStream wraps inner so that Read/Write transparently snappy-decode
// and snappy-encode.
func NewCompStream(inner io.ReadWriteCloser) *CompStream {
	return &CompStream{
		inner: inner,
		w:     snappy.NewBufferedWriter(inner),
		r:     snappy.NewReader(inner),
	}
}

func (c *CompStream) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *CompStream) Write(p []byte) (int, error) {
	if _, err := c.w.Write(p); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}

func (c *CompStream) Close() error {
	return c.inner.Close()
}

func (c *CompStream) ID() uint32 {
	if s, ok := c.inner.(Stream); ok {
		return s.ID()
	}
	return 0
}
