package wire

import (
	"bytes"
	"math/rand"
	"reflect"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"nil", nil, nil},
		{"true", true, true},
		{"false", false, false},
		{"small uint", uint64(5), uint64(5)},
		{"big uint", uint64(1) << 40, uint64(1) << 40},
		{"small int", int64(-1), int64(-1)},
		{"big negative", int64(-70000), int64(-70000)},
		{"float", 3.5, 3.5},
		{"text", "hello", "hello"},
		{"bytes", []byte{1, 2, 3}, []byte{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			enc, err := Encode(nil, c.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, n, err := Decode(enc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != len(enc) {
				t.Fatalf("consumed %d, want %d", n, len(enc))
			}
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %#v, want %#v", got, c.want)
			}
		})
	}
}

func TestRoundTripMapAndArray(t *testing.T) {
	in := Map{
		"a": uint64(1),
		"b": []interface{}{"x", "y", uint64(3)},
		"c": nil,
	}
	enc, err := Encode(nil, in)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d of %d bytes", n, len(enc))
	}
	m, ok := got.(Map)
	if !ok {
		t.Fatalf("got %T, want Map", got)
	}
	if m["a"] != uint64(1) {
		t.Fatalf("a = %v", m["a"])
	}
}

func TestStreamDecoderArbitraryChunking(t *testing.T) {
	var buf []byte
	records := []interface{}{
		Map{"type": uint64(1)},
		"plain text record",
		[]interface{}{uint64(1), uint64(2), uint64(3)},
	}
	for _, r := range records {
		framed, err := Frame(nil, r)
		if err != nil {
			t.Fatal(err)
		}
		buf = append(buf, framed...)
	}

	whole := NewStreamDecoder()
	wholeOut, err := whole.Feed(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(wholeOut) != len(records) {
		t.Fatalf("whole feed produced %d records, want %d", len(wholeOut), len(records))
	}

	rnd := rand.New(rand.NewSource(1))
	chunked := NewStreamDecoder()
	var chunkedOut []interface{}
	remaining := buf
	for len(remaining) > 0 {
		n := 1 + rnd.Intn(7)
		if n > len(remaining) {
			n = len(remaining)
		}
		out, err := chunked.Feed(remaining[:n])
		if err != nil {
			t.Fatal(err)
		}
		chunkedOut = append(chunkedOut, out...)
		remaining = remaining[n:]
	}

	if len(chunkedOut) != len(wholeOut) {
		t.Fatalf("chunked feed produced %d records, want %d", len(chunkedOut), len(wholeOut))
	}
	for i := range wholeOut {
		if !reflect.DeepEqual(wholeOut[i], chunkedOut[i]) {
			t.Fatalf("record %d mismatch: %#v vs %#v", i, wholeOut[i], chunkedOut[i])
		}
	}
}

func TestStreamDecoderTruncatedPayload(t *testing.T) {
	framed, err := Frame(nil, "hello")
	if err != nil {
		t.Fatal(err)
	}
	d := NewStreamDecoder()
	out, err := d.Feed(framed[:len(framed)-1])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no records yet, got %d", len(out))
	}
	if d.Pending() == 0 {
		t.Fatal("expected buffered bytes")
	}
}

func TestDecodeUnknownMajorType(t *testing.T) {
	_, _, err := Decode([]byte{0xFF, 0xFF})
	if err == nil {
		t.Fatal("expected decode error")
	}
	var de *DecodeError
	if !errorsAs(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}

func errorsAs(err error, target **DecodeError) bool {
	if de, ok := err.(*DecodeError); ok {
		*target = de
		return true
	}
	return false
}

func TestEncodeMapDeterministicOrder(t *testing.T) {
	m := Map{"z": uint64(1), "a": uint64(2), "m": uint64(3)}
	first, err := Encode(nil, m)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encode(nil, m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("map encoding is not deterministic across calls")
	}
}
