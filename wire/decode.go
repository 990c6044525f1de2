package wire

import (
	"encoding/binary"
	"math"
)

// Decode parses exactly one wire value from the head of buf and returns it
// along with the number of bytes consumed. It fails with a *DecodeError on
// truncated input or an unknown major type.
func Decode(buf []byte) (interface{}, int, error) {
	v, n, err := decodeValue(buf)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

func decodeValue(buf []byte) (interface{}, int, error) {
	if len(buf) == 0 {
		return nil, 0, newDecodeError("empty input")
	}
	head := buf[0]
	major := head >> 5
	addl := head & 0x1F

	switch major {
	case majorUint:
		n, sz, err := decodeUint(buf, addl)
		if err != nil {
			return nil, 0, err
		}
		return n, sz, nil
	case majorInt:
		n, sz, err := decodeUint(buf, addl)
		if err != nil {
			return nil, 0, err
		}
		return -int64(n) - 1, sz, nil
	case majorBytes:
		return decodeByteLike(buf, addl, false)
	case majorText:
		return decodeByteLike(buf, addl, true)
	case majorArray:
		return decodeArray(buf, addl)
	case majorMap:
		return decodeMap(buf, addl)
	case majorSimple:
		return decodeSimple(buf, addl)
	default:
		return nil, 0, newDecodeError("unknown major type %d", major)
	}
}

// decodeUint returns the consumed length *including* the head byte.
func decodeUint(buf []byte, addl byte) (uint64, int, error) {
	switch {
	case addl < addlUint8:
		return uint64(addl), 1, nil
	case addl == addlUint8:
		if len(buf) < 2 {
			return 0, 0, newDecodeError("truncated uint8 length")
		}
		return uint64(buf[1]), 2, nil
	case addl == addlUint16:
		if len(buf) < 3 {
			return 0, 0, newDecodeError("truncated uint16 length")
		}
		return uint64(binary.BigEndian.Uint16(buf[1:3])), 3, nil
	case addl == addlUint32:
		if len(buf) < 5 {
			return 0, 0, newDecodeError("truncated uint32 length")
		}
		return uint64(binary.BigEndian.Uint32(buf[1:5])), 5, nil
	case addl == addlUint64:
		if len(buf) < 9 {
			return 0, 0, newDecodeError("truncated uint64 length")
		}
		return binary.BigEndian.Uint64(buf[1:9]), 9, nil
	default:
		return 0, 0, newDecodeError("invalid additional-info %d", addl)
	}
}

func decodeByteLike(buf []byte, addl byte, text bool) (interface{}, int, error) {
	n, headLen, err := decodeUint(buf, addl)
	if err != nil {
		return nil, 0, err
	}
	total := headLen + int(n)
	if len(buf) < total {
		return nil, 0, newDecodeError("truncated string body")
	}
	body := buf[headLen:total]
	if text {
		return string(body), total, nil
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, total, nil
}

func decodeArray(buf []byte, addl byte) (interface{}, int, error) {
	count, off, err := decodeUint(buf, addl)
	if err != nil {
		return nil, 0, err
	}
	arr := make([]interface{}, 0, count)
	for i := uint64(0); i < count; i++ {
		if off >= len(buf) {
			return nil, 0, newDecodeError("truncated array element %d", i)
		}
		v, n, err := decodeValue(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		arr = append(arr, v)
		off += n
	}
	return Array(arr), off, nil
}

func decodeMap(buf []byte, addl byte) (interface{}, int, error) {
	count, off, err := decodeUint(buf, addl)
	if err != nil {
		return nil, 0, err
	}
	m := make(Map, count)
	for i := uint64(0); i < count; i++ {
		if off >= len(buf) {
			return nil, 0, newDecodeError("truncated map key %d", i)
		}
		kv, n, err := decodeValue(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		key, ok := kv.(string)
		if !ok {
			return nil, 0, newDecodeError("map key is not a text string")
		}
		off += n
		if off >= len(buf) {
			return nil, 0, newDecodeError("truncated map value for key %q", key)
		}
		val, n, err := decodeValue(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		m[key] = val
		off += n
	}
	return m, off, nil
}

func decodeSimple(buf []byte, addl byte) (interface{}, int, error) {
	switch addl {
	case simpleFalse:
		return false, 1, nil
	case simpleTrue:
		return true, 1, nil
	case simpleNull:
		return nil, 1, nil
	case simpleFloat:
		if len(buf) < 9 {
			return nil, 0, newDecodeError("truncated float")
		}
		bits := binary.BigEndian.Uint64(buf[1:9])
		return math.Float64frombits(bits), 9, nil
	default:
		return nil, 0, newDecodeError("unknown simple value %d", addl)
	}
}
