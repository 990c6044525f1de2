// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package wire implements the wsh binary object model: a small, CBOR-shaped
// canonical encoding for unsigned/signed integers, floats, byte strings, text
// strings, arrays, maps with string keys, booleans and null, plus the
// length-prefixed framing used to carry control records over a byte stream.
package wire

import "fmt"

// major type tags, packed into the top 3 bits of the head byte.
const (
	majorUint byte = iota
	majorInt
	majorBytes
	majorText
	majorArray
	majorMap
	majorSimple
)

const (
	addlUint8  = 24
	addlUint16 = 25
	addlUint32 = 26
	addlUint64 = 27
)

const (
	simpleFalse byte = 20
	simpleTrue  byte = 21
	simpleNull  byte = 22
	simpleFloat byte = 27 // always followed by 8 bytes, IEEE-754 double
)

// Map is the decoded form of a wire mapping. Field order is not preserved on
// decode; Encode emits map keys in sorted order, so encoded field order is
// deterministic.
type Map map[string]interface{}

// Array is the decoded form of a wire array.
type Array []interface{}

// Bytes distinguishes a byte string from a Text string; both decode to Go
// values but need distinct wire major types.
type Bytes []byte

// Text marks a value for encoding as a text string. Plain Go strings passed
// to Encode are treated the same way, and Decode returns text strings as
// plain Go strings.
type Text string

// DecodeError reports a malformed or truncated wire value.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode error: %s", e.Reason)
}

func newDecodeError(format string, args ...interface{}) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}
