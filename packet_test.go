package eio

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeTextRoundTrip(t *testing.T) {
	cases := []EnginePacket{
		NewPacket(PacketOpen, []byte(`{"sid":"abc"}`)),
		NewPacket(PacketClose, nil),
		NewPacket(PacketPing, nil),
		NewPacket(PacketPong, nil),
		NewPacket(PacketMessage, []byte("hello")),
		NewPacket(PacketUpgrade, nil),
		NewPacket(PacketNoop, nil),
	}

	for _, want := range cases {
		frame, err := EncodeText(want)
		if err != nil {
			t.Fatalf("EncodeText(%+v): %v", want, err)
		}
		got, err := DecodeText(frame)
		if err != nil {
			t.Fatalf("DecodeText(%q): %v", frame, err)
		}
		if got.Id != want.Id || !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestEncodeTextRejectsMessageBinary(t *testing.T) {
	if _, err := EncodeText(NewPacket(PacketMessageBinary, []byte{1})); err == nil {
		t.Fatal("expected error encoding PacketMessageBinary as text")
	}
}

func TestDecodeTextRejectsEmptyAndBadDigit(t *testing.T) {
	if _, err := DecodeText(nil); err == nil {
		t.Fatal("expected error on empty frame")
	}
	if _, err := DecodeText([]byte("9hello")); err == nil {
		t.Fatal("expected error on out-of-range packet id")
	}
}

func TestDecodeBinary(t *testing.T) {
	p := DecodeBinary([]byte{1, 2, 3})
	if p.Id != PacketMessageBinary || !bytes.Equal(p.Payload, []byte{1, 2, 3}) {
		t.Fatalf("unexpected packet: %+v", p)
	}
}

func TestSidGeneratorUniqueness(t *testing.T) {
	var g sidGenerator
	seen := make(map[Sid]bool)
	for i := 0; i < 1000; i++ {
		sid := g.generate()
		if seen[sid] {
			t.Fatalf("duplicate sid: %s", sid)
		}
		seen[sid] = true
	}
}
