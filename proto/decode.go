package proto

import (
	"github.com/pkg/errors"
	"github.com/xtaci/wsh/wire"
)

// DecodeRecord turns a decoded wire value (as produced by wire.Decode or
// wire.StreamDecoder) into a typed Record. It fails with ErrUnknownOpcode if
// the "type" field is missing or unrecognized.
func DecodeRecord(v interface{}) (Record, error) {
	m, ok := v.(wire.Map)
	if !ok {
		return nil, errors.New("proto: wire value is not a record map")
	}
	raw, ok := m["type"]
	if !ok {
		return nil, errors.Wrap(ErrUnknownOpcode, "missing type field")
	}
	n, ok := raw.(uint64)
	if !ok {
		return nil, errors.Wrap(ErrUnknownOpcode, "type field is not numeric")
	}
	op := Opcode(n)

	switch op {
	case HELLO:
		return &Hello{
			Version:    str(m, "version"),
			Username:   str(m, "username"),
			Features:   strs(m, "features"),
			AuthMethod: AuthMethod(str(m, "auth_method")),
		}, nil
	case SERVER_HELLO:
		return &ServerHello{SessionID: str(m, "session_id"), Features: strs(m, "features")}, nil
	case CHALLENGE:
		return &Challenge{Nonce: bytesOf(m, "nonce")}, nil
	case AUTH:
		a := &Auth{Method: AuthMethod(str(m, "auth_method"))}
		switch a.Method {
		case AuthPubkey:
			a.Signature = bytesOf(m, "signature")
			a.PublicKey = bytesOf(m, "public_key")
		case AuthPassword:
			a.Password = str(m, "password")
		}
		return a, nil
	case AUTH_OK:
		return &AuthOK{SessionID: str(m, "session_id"), Token: bytesOf(m, "token")}, nil
	case AUTH_FAIL:
		return &AuthFail{Reason: str(m, "reason")}, nil

	case OPEN:
		return &Open{
			ChannelID: uint32Of(m, "channel_id"),
			Kind:      ChannelKind(str(m, "kind")),
			Command:   str(m, "command"),
			Cols:      uint32Of(m, "cols"),
			Rows:      uint32Of(m, "rows"),
			Env:       stringMap(m, "env"),
		}, nil
	case OPEN_OK:
		return &OpenOK{ChannelID: uint32Of(m, "channel_id")}, nil
	case OPEN_FAIL:
		return &OpenFail{ChannelID: uint32Of(m, "channel_id"), Reason: str(m, "reason")}, nil
	case RESIZE:
		return &Resize{ChannelID: uint32Of(m, "channel_id"), Cols: uint32Of(m, "cols"), Rows: uint32Of(m, "rows")}, nil
	case SIGNAL:
		return &Signal{ChannelID: uint32Of(m, "channel_id"), Name: str(m, "name")}, nil
	case EXIT:
		return &Exit{ChannelID: uint32Of(m, "channel_id"), Code: int32Of(m, "code")}, nil
	case CLOSE:
		return &Close{ChannelID: uint32Of(m, "channel_id")}, nil

	case ERROR:
		return &ErrorRecord{Message: str(m, "message")}, nil
	case PING:
		return &Ping{Correlator: uint64Of(m, "correlator")}, nil
	case PONG:
		return &Pong{Correlator: uint64Of(m, "correlator")}, nil

	case RESUME:
		return &Resume{SessionID: str(m, "session_id"), Token: bytesOf(m, "token")}, nil
	case RESUME_OK:
		return &ResumeOK{SessionID: str(m, "session_id")}, nil
	case RESUME_FAIL:
		return &ResumeFail{Reason: str(m, "reason")}, nil

	case SHUTDOWN:
		return &Shutdown{Reason: str(m, "reason")}, nil
	case IDLE_WARNING:
		return &IdleWarning{}, nil
	case CLIPBOARD:
		return &Clipboard{Text: str(m, "text")}, nil

	case MCP_DISCOVER:
		return &McpDiscover{}, nil
	case MCP_TOOLS:
		var tools []ToolSpec
		if arr, ok := m["tools"].(wire.Array); ok {
			for _, item := range arr {
				tm, ok := item.(wire.Map)
				if !ok {
					continue
				}
				tools = append(tools, ToolSpec{
					Name:        str(tm, "name"),
					Description: str(tm, "description"),
					Schema:      stringMapAny(tm, "schema"),
				})
			}
		}
		return &McpTools{Tools: tools}, nil
	case MCP_CALL:
		return &McpCall{Correlator: uint64Of(m, "correlator"), Name: str(m, "name"), Args: stringMapAny(m, "args")}, nil
	case MCP_RESULT:
		isErr, _ := m["is_error"].(bool)
		return &McpResult{Correlator: uint64Of(m, "correlator"), Result: m["result"], IsError: isErr}, nil

	case REVERSE_REGISTER:
		return &ReverseRegister{
			Username:     str(m, "username"),
			Capabilities: strs(m, "capabilities"),
			PublicKey:    bytesOf(m, "public_key"),
		}, nil
	case REVERSE_LIST:
		return &ReverseList{}, nil
	case REVERSE_PEERS:
		var peers []Peer
		if arr, ok := m["peers"].(wire.Array); ok {
			for _, item := range arr {
				pm, ok := item.(wire.Map)
				if !ok {
					continue
				}
				peers = append(peers, Peer{
					Fingerprint:  str(pm, "fingerprint"),
					Username:     str(pm, "username"),
					Capabilities: strs(pm, "capabilities"),
				})
			}
		}
		return &ReversePeers{Peers: peers}, nil
	case REVERSE_CONNECT:
		return &ReverseConnect{Fingerprint: str(m, "fingerprint")}, nil

	default:
		if IsGatewayOpcode(op) || (op >= 0x80 && op <= 0x86) || op == PRESENCE || op == CONTROL_CHANGED || op == METRICS {
			fields := make(map[string]interface{}, len(m))
			for k, v := range m {
				if k == "type" {
					continue
				}
				fields[k] = v
			}
			return &Informational{Op: op, Fields: fields}, nil
		}
		return nil, errors.Wrapf(ErrUnknownOpcode, "opcode 0x%02x", uint8(op))
	}
}

func str(m wire.Map, key string) string {
	s, _ := m[key].(string)
	return s
}

func strs(m wire.Map, key string) []string {
	arr, ok := m[key].(wire.Array)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func bytesOf(m wire.Map, key string) []byte {
	b, _ := m[key].([]byte)
	return b
}

func uint64Of(m wire.Map, key string) uint64 {
	n, _ := m[key].(uint64)
	return n
}

func uint32Of(m wire.Map, key string) uint32 {
	return uint32(uint64Of(m, key))
}

func int32Of(m wire.Map, key string) int32 {
	switch n := m[key].(type) {
	case int64:
		return int32(n)
	case uint64:
		return int32(n)
	default:
		return 0
	}
}

func stringMap(m wire.Map, key string) map[string]string {
	src, ok := m[key].(wire.Map)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringMapAny(m wire.Map, key string) map[string]interface{} {
	src, ok := m[key].(wire.Map)
	if !ok {
		return nil
	}
	return map[string]interface{}(src)
}
