// Package proto holds the wsh wire schema: the opcode enum (opcode.go), the
// per-record field tables below, and the record constructors records.go
// derives from them. This file is the one hand-maintained input; opcode.go
// and records.go are its generated output.
package proto

// ProtocolVersion is the wire-level version string exchanged in HELLO and
// folded into the authentication transcript.
const ProtocolVersion = "wsh-v1"

// ChannelKind enumerates the channel kinds a Session may wrap.
type ChannelKind string

const (
	KindPTY  ChannelKind = "pty"
	KindExec ChannelKind = "exec"
	KindFile ChannelKind = "file"
	KindMeta ChannelKind = "meta"
	KindTCP  ChannelKind = "tcp"
	KindUDP  ChannelKind = "udp"
	KindJob  ChannelKind = "job"
)

// AuthMethod enumerates the handshake authentication methods.
type AuthMethod string

const (
	AuthPubkey   AuthMethod = "pubkey"
	AuthPassword AuthMethod = "password"
)

// fieldSchema documents one record field for the codegen step: its wire
// name, whether it is required, and its zero/default value when absent.
// Nothing at runtime reads this table directly; it is the declarative
// source records.go's constructors were generated from, kept as the one
// external schema rather than duplicated prose in comments.
type fieldSchema struct {
	name     string
	required bool
	def      interface{}
}

type recordSchema struct {
	opcode Opcode
	fields []fieldSchema
}

// recordSchemas is the declarative schema: per-opcode field shape, required
// flag and default. Conditional field groups (AUTH's signature+pubkey vs.
// password) are documented in the constructor itself in records.go, since
// the discriminator lives in a sibling field (auth_method) rather than in
// the type system.
var recordSchemas = []recordSchema{
	{HELLO, []fieldSchema{
		{"version", true, nil},
		{"username", true, nil},
		{"features", false, []interface{}{}},
		{"auth_method", true, nil},
	}},
	{SERVER_HELLO, []fieldSchema{
		{"session_id", true, nil},
		{"features", false, []interface{}{}},
	}},
	{CHALLENGE, []fieldSchema{
		{"nonce", true, nil},
	}},
	{AUTH, []fieldSchema{
		{"auth_method", true, nil},
		{"signature", false, nil},
		{"public_key", false, nil},
		{"password", false, nil},
	}},
	{AUTH_OK, []fieldSchema{
		{"session_id", true, nil},
		{"token", false, nil},
	}},
	{AUTH_FAIL, []fieldSchema{
		{"reason", true, ""},
	}},

	{OPEN, []fieldSchema{
		{"channel_id", true, nil},
		{"kind", true, nil},
		{"command", false, ""},
		{"cols", false, uint64(0)},
		{"rows", false, uint64(0)},
		{"env", false, map[string]interface{}{}},
	}},
	{OPEN_OK, []fieldSchema{
		{"channel_id", true, nil},
	}},
	{OPEN_FAIL, []fieldSchema{
		{"channel_id", true, nil},
		{"reason", true, ""},
	}},
	{RESIZE, []fieldSchema{
		{"channel_id", true, nil},
		{"cols", true, nil},
		{"rows", true, nil},
	}},
	{SIGNAL, []fieldSchema{
		{"channel_id", true, nil},
		{"name", true, nil},
	}},
	{EXIT, []fieldSchema{
		{"channel_id", true, nil},
		{"code", true, nil},
	}},
	{CLOSE, []fieldSchema{
		{"channel_id", true, nil},
	}},

	{ERROR, []fieldSchema{
		{"message", true, ""},
	}},
	{PING, []fieldSchema{
		{"correlator", true, nil},
	}},
	{PONG, []fieldSchema{
		{"correlator", true, nil},
	}},

	{SHUTDOWN, []fieldSchema{
		{"reason", false, ""},
	}},
	{IDLE_WARNING, nil},
	{CLIPBOARD, []fieldSchema{
		{"text", true, ""},
	}},

	{MCP_DISCOVER, nil},
	{MCP_TOOLS, []fieldSchema{
		{"tools", true, []interface{}{}},
	}},
	{MCP_CALL, []fieldSchema{
		{"correlator", true, nil},
		{"name", true, nil},
		{"args", false, map[string]interface{}{}},
	}},
	{MCP_RESULT, []fieldSchema{
		{"correlator", true, nil},
		{"result", false, nil},
		{"is_error", false, false},
	}},

	{REVERSE_REGISTER, []fieldSchema{
		{"username", true, nil},
		{"capabilities", false, []interface{}{}},
		{"public_key", true, nil},
	}},
	{REVERSE_LIST, nil},
	{REVERSE_PEERS, []fieldSchema{
		{"peers", true, []interface{}{}},
	}},
	{REVERSE_CONNECT, []fieldSchema{
		{"fingerprint", true, nil},
	}},
}

// schemaFor looks up a record's field schema by opcode. Nothing in the
// package calls it.
func schemaFor(op Opcode) (recordSchema, bool) {
	for _, s := range recordSchemas {
		if s.opcode == op {
			return s, true
		}
	}
	return recordSchema{}, false
}
