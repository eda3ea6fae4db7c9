package eio

import "github.com/eio-go/eio/errs"

// PacketId identifies the kind of an Engine.IO packet.
type PacketId byte

const (
	PacketOpen PacketId = iota
	PacketClose
	PacketPing
	PacketPong
	PacketMessage
	PacketUpgrade
	PacketNoop
	// PacketMessageBinary carries raw bytes over a WebSocket binary frame;
	// it has no text-framing digit of its own — see DecodeBinary (EncodeText
	// rejects it).
	PacketMessageBinary
)

// EnginePacket is a single Engine.IO frame: a packet id plus its payload.
type EnginePacket struct {
	Id      PacketId
	Payload []byte
}

// NewPacket builds an EnginePacket.
func NewPacket(id PacketId, payload []byte) EnginePacket {
	return EnginePacket{Id: id, Payload: payload}
}

// EncodeText serializes a text-framed Engine.IO packet: the ASCII digit of
// the packet id followed by the payload bytes. It must not be used for
// PacketMessageBinary, which has no text framing.
func EncodeText(p EnginePacket) ([]byte, error) {
	if p.Id == PacketMessageBinary {
		return nil, errs.New(errs.InvalidPacket, "message binary has no text framing")
	}
	buf := make([]byte, 0, len(p.Payload)+1)
	buf = append(buf, '0'+byte(p.Id))
	buf = append(buf, p.Payload...)
	return buf, nil
}

// DecodeText parses a text-framed Engine.IO packet: one leading ASCII
// digit identifying the packet id, with the remainder as payload.
func DecodeText(frame []byte) (EnginePacket, error) {
	if len(frame) == 0 {
		return EnginePacket{}, errs.New(errs.InvalidPacket, "empty frame")
	}
	if frame[0] < '0' || frame[0] > '6' {
		return EnginePacket{}, errs.New(errs.InvalidPacket, "unrecognized packet id")
	}
	return EnginePacket{
		Id:      PacketId(frame[0] - '0'),
		Payload: frame[1:],
	}, nil
}

// DecodeBinary builds the EnginePacket for a WebSocket binary frame: the
// payload is carried verbatim, with no leading digit.
func DecodeBinary(frame []byte) EnginePacket {
	return EnginePacket{Id: PacketMessageBinary, Payload: frame}
}
