package wire

import "encoding/binary"

const lengthPrefixSize = 4

// StreamDecoder incrementally parses a byte stream of length-prefixed,
// wire-encoded control records. Callers feed arbitrary-sized chunks;
// Feed returns every record that became complete as a result and retains any
// leftover bytes across calls, so splitting one buffer into many Feed calls
// at arbitrary boundaries yields the same record sequence as one call on the
// whole buffer.
type StreamDecoder struct {
	pending []byte
}

// NewStreamDecoder returns a StreamDecoder with no buffered bytes.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed appends chunk to the internal buffer and decodes as many complete
// [length][payload] records as are available, returning them in wire order.
func (d *StreamDecoder) Feed(chunk []byte) ([]interface{}, error) {
	if len(chunk) > 0 {
		d.pending = append(d.pending, chunk...)
	}

	var out []interface{}
	for {
		if len(d.pending) < lengthPrefixSize {
			break
		}
		n := binary.BigEndian.Uint32(d.pending[:lengthPrefixSize])
		total := lengthPrefixSize + int(n)
		if len(d.pending) < total {
			// A full length is visible but the payload is not yet; this is
			// not an error, just an incomplete record still in flight.
			break
		}
		v, consumed, err := Decode(d.pending[lengthPrefixSize:total])
		if err != nil {
			return out, err
		}
		if consumed != int(n) {
			return out, newDecodeError("record declared length %d but consumed %d", n, consumed)
		}
		out = append(out, v)
		d.pending = d.pending[total:]
	}
	return out, nil
}

// Pending reports the number of buffered-but-incomplete bytes, useful for
// diagnostics and tests.
func (d *StreamDecoder) Pending() int {
	return len(d.pending)
}
