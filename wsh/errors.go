package wsh

import (
	"fmt"

	"github.com/xtaci/wsh/proto"
)

// Error kinds. Each is a distinct type so callers can distinguish them
// with errors.As even after they have been wrapped by github.com/pkg/errors
// on their way up through the call stack.

// TransportError reports that connecting, sending or receiving over the
// Transport failed.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("wsh: transport error: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// AuthFailed reports a server-supplied authentication rejection.
type AuthFailed struct {
	Reason string
}

func (e *AuthFailed) Error() string { return fmt.Sprintf("wsh: authentication failed: %s", e.Reason) }

// TimeoutError names the opcode set a waiter was watching for when its
// deadline elapsed.
type TimeoutError struct {
	Label   string
	Opcodes []proto.Opcode
}

func (e *TimeoutError) Error() string {
	names := make([]string, 0, len(e.Opcodes))
	for _, op := range e.Opcodes {
		name, ok := proto.OpcodeName(op)
		if !ok {
			name = fmt.Sprintf("0x%02x", uint8(op))
		}
		names = append(names, name)
	}
	return fmt.Sprintf("wsh: timeout waiting for %s %v", e.Label, names)
}

// OpenFailed reports that the server refused to open a channel.
type OpenFailed struct {
	Reason string
}

func (e *OpenFailed) Error() string { return fmt.Sprintf("wsh: open failed: %s", e.Reason) }

// ClosedError reports an operation attempted on an already-closed
// client/session/transport.
type ClosedError struct {
	What string
}

func (e *ClosedError) Error() string { return fmt.Sprintf("wsh: %s is closed", e.What) }
