package wire

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Encode appends the canonical wire encoding of v to dst and returns the
// extended slice. Supported Go types: nil, bool, all signed/unsigned integer
// kinds, float32/float64, string, Text, []byte, Bytes, Array, []interface{},
// Map, map[string]interface{}.
func Encode(dst []byte, v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(dst, (majorSimple<<5)|simpleNull), nil
	case bool:
		if t {
			return append(dst, (majorSimple<<5)|simpleTrue), nil
		}
		return append(dst, (majorSimple<<5)|simpleFalse), nil
	case int:
		return encodeSignedInt(dst, int64(t)), nil
	case int8:
		return encodeSignedInt(dst, int64(t)), nil
	case int16:
		return encodeSignedInt(dst, int64(t)), nil
	case int32:
		return encodeSignedInt(dst, int64(t)), nil
	case int64:
		return encodeSignedInt(dst, t), nil
	case uint:
		return encodeHead(dst, majorUint, uint64(t)), nil
	case uint8:
		return encodeHead(dst, majorUint, uint64(t)), nil
	case uint16:
		return encodeHead(dst, majorUint, uint64(t)), nil
	case uint32:
		return encodeHead(dst, majorUint, uint64(t)), nil
	case uint64:
		return encodeHead(dst, majorUint, t), nil
	case float32:
		return encodeFloat(dst, float64(t)), nil
	case float64:
		return encodeFloat(dst, t), nil
	case string:
		return encodeText(dst, t), nil
	case Text:
		return encodeText(dst, string(t)), nil
	case []byte:
		return encodeBytes(dst, t), nil
	case Bytes:
		return encodeBytes(dst, []byte(t)), nil
	case Array:
		return encodeArray(dst, []interface{}(t))
	case []interface{}:
		return encodeArray(dst, t)
	case Map:
		return encodeMap(dst, map[string]interface{}(t))
	case map[string]interface{}:
		return encodeMap(dst, t)
	default:
		return nil, errors.Errorf("wire: unsupported type %T", v)
	}
}

func encodeSignedInt(dst []byte, n int64) []byte {
	if n >= 0 {
		return encodeHead(dst, majorUint, uint64(n))
	}
	// major 1 carries -(n+1), the standard CBOR negative-integer trick, so
	// the full int64 range round-trips without a sign bit in the head.
	return encodeHead(dst, majorInt, uint64(-(n + 1)))
}

func encodeHead(dst []byte, major byte, n uint64) []byte {
	top := major << 5
	switch {
	case n < addlUint8:
		return append(dst, top|byte(n))
	case n <= math.MaxUint8:
		dst = append(dst, top|addlUint8)
		return append(dst, byte(n))
	case n <= math.MaxUint16:
		dst = append(dst, top|addlUint16)
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(n))
		return append(dst, buf[:]...)
	case n <= math.MaxUint32:
		dst = append(dst, top|addlUint32)
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(n))
		return append(dst, buf[:]...)
	default:
		dst = append(dst, top|addlUint64)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], n)
		return append(dst, buf[:]...)
	}
}

func encodeFloat(dst []byte, f float64) []byte {
	dst = append(dst, (majorSimple<<5)|simpleFloat)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
	return append(dst, buf[:]...)
}

func encodeText(dst []byte, s string) []byte {
	dst = encodeHead(dst, majorText, uint64(len(s)))
	return append(dst, s...)
}

func encodeBytes(dst []byte, b []byte) []byte {
	dst = encodeHead(dst, majorBytes, uint64(len(b)))
	return append(dst, b...)
}

func encodeArray(dst []byte, a []interface{}) ([]byte, error) {
	dst = encodeHead(dst, majorArray, uint64(len(a)))
	var err error
	for _, item := range a {
		dst, err = Encode(dst, item)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// encodeMap emits keys in sorted order. The wire object model makes no
// ordering guarantee to decoders, but a deterministic emission order keeps
// encode output reproducible across runs, which matters for transcript-style
// hashing elsewhere in the protocol and for tests.
func encodeMap(dst []byte, m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dst = encodeHead(dst, majorMap, uint64(len(m)))
	var err error
	for _, k := range keys {
		dst = encodeText(dst, k)
		dst, err = Encode(dst, m[k])
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// Frame appends a big-endian 32-bit length prefix followed by the canonical
// encoding of v, the framing used for control records.
func Frame(dst []byte, v interface{}) ([]byte, error) {
	payload, err := Encode(nil, v)
	if err != nil {
		return nil, err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, payload...), nil
}
