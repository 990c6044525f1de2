package crypto

import (
	"crypto/sha256"
)

// BuildTranscript computes the authentication transcript:
//
//	SHA-256(PROTOCOL_VERSION || 0x00 || session_id_utf8 || server_nonce || channel_binding?)
//
// channelBinding may be nil, in which case it contributes no bytes. The hash
// is computed over the concatenation regardless of how the caller chunked
// its inputs: sha256.New()/Write()/Sum() streams its input internally,
// so BuildTranscript(a, b, c) and a single-shot equivalent over
// append(a,b,c...) always agree.
func BuildTranscript(version, sessionID string, serverNonce, channelBinding []byte) []byte {
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0x00})
	h.Write([]byte(sessionID))
	h.Write(serverNonce)
	if channelBinding != nil {
		h.Write(channelBinding)
	}
	return h.Sum(nil)
}
