package transport

import (
	"strings"

	"github.com/pkg/errors"
)

// NormalizeURL normalizes "wsh://" to "wss://" before scheme dispatch.
func NormalizeURL(url string) string {
	if strings.HasPrefix(url, "wsh://") {
		return "wss://" + strings.TrimPrefix(url, "wsh://")
	}
	return url
}

// ForURL selects the transport implementation for a URL: "https://" selects
// NativeStream; "wss://"/"ws://" (after wsh:// is normalized) selects
// SingleSocket.
func ForURL(url string, opts Options) (Transport, error) {
	url = NormalizeURL(url)
	switch {
	case strings.HasPrefix(url, "https://"):
		return NewNativeStream(opts), nil
	case strings.HasPrefix(url, "wss://"), strings.HasPrefix(url, "ws://"):
		return NewSingleSocket(opts), nil
	default:
		return nil, errors.Errorf("transport: unsupported url scheme in %q", url)
	}
}

// Options carries the tunables both transport implementations accept. Zero
// values select reasonable defaults (see the smux/KCP config construction
// in nativestream.go).
type Options struct {
	Sink EventSink

	// Compress enables the snappy-backed CompStream wrapper on every data
	// stream, locally or peer opened; the control stream is not compressed.
	Compress bool

	// KCP/smux tuning, NativeStream only; zero uses conservative defaults.
	DataShard, ParityShard int
	SmuxVersion            int
}
