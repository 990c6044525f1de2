package proto

import (
	"testing"

	"github.com/xtaci/wsh/wire"
)

func TestOpcodesUnique(t *testing.T) {
	seen := make(map[Opcode]string)
	for op, name := range opcodeNames {
		if other, ok := seen[op]; ok {
			t.Fatalf("opcode 0x%02x used by both %q and %q", op, other, name)
		}
		seen[op] = name
	}
}

func TestOpcodeNameTotalInverse(t *testing.T) {
	for op, name := range opcodeNames {
		got, ok := OpcodeName(op)
		if !ok || got != name {
			t.Fatalf("OpcodeName(0x%02x) = (%q, %v), want (%q, true)", op, got, ok, name)
		}
	}
	if _, ok := OpcodeName(0xFF); ok {
		t.Fatal("expected unknown opcode to report ok=false")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	cases := []Record{
		NewHello("alice", []string{"tools"}, AuthPubkey),
		NewServerHello("S1", nil),
		NewChallenge([]byte("nonce")),
		NewAuthPubkey([]byte("sig"), []byte("pub")),
		NewAuthPassword("hunter2"),
		NewAuthOK("S1", []byte("token")),
		NewAuthFail("bad signature"),
		NewOpen(1, KindExec, "echo hi", 0, 0, nil),
		NewOpenOK(7),
		NewOpenFail(7, "refused"),
		NewResize(7, 80, 24),
		NewSignal(7, "SIGINT"),
		NewExit(7, 0),
		NewClose(7),
		NewError("boom"),
		NewPing(1),
		NewPong(1),
	}

	for _, rec := range cases {
		w := rec.ToWire()
		decoded, err := DecodeRecord(w)
		if err != nil {
			t.Fatalf("decode %T: %v", rec, err)
		}
		if decoded.Opcode() != rec.Opcode() {
			t.Fatalf("opcode mismatch for %T: got 0x%02x want 0x%02x", rec, decoded.Opcode(), rec.Opcode())
		}
	}
}

func TestAuthConditionalFieldGroup(t *testing.T) {
	pw := NewAuthPassword("secret")
	w := pw.ToWire()
	if _, ok := w["signature"]; ok {
		t.Fatal("password auth must not set signature")
	}
	if _, ok := w["public_key"]; ok {
		t.Fatal("password auth must not set public_key")
	}

	pk := NewAuthPubkey([]byte("sig"), []byte("pub"))
	w = pk.ToWire()
	if _, ok := w["password"]; ok {
		t.Fatal("pubkey auth must not set password")
	}
}

func TestIsValidRecord(t *testing.T) {
	w := NewPing(1).ToWire()
	if !IsValidRecord(w) {
		t.Fatal("expected valid record")
	}
	bogus := wire.Map{"type": uint64(0xEE)}
	if IsValidRecord(bogus) {
		t.Fatal("expected unknown opcode to be invalid")
	}
}

func TestGatewayAndInformationalFallThrough(t *testing.T) {
	w := wire.Map{"type": uint64(GATEWAY_MESSAGE), "kind": "bridge-offer"}
	rec, err := DecodeRecord(w)
	if err != nil {
		t.Fatal(err)
	}
	info, ok := rec.(*Informational)
	if !ok {
		t.Fatalf("got %T, want *Informational", rec)
	}
	if info.Fields["kind"] != "bridge-offer" {
		t.Fatalf("fields = %v", info.Fields)
	}
}
