// Package sio implements the Socket.IO v5 packet codec: the namespaced,
// event-oriented layer multiplexed on top of Engine.IO MESSAGE frames.
//
// The package is a pure codec — it has no knowledge of transports,
// sessions, or attachment delivery timing. Attachment pairing (waiting for
// the N Engine.IO frames that follow a Binary* packet) is the caller's
// responsibility; see eio.Session.
package sio

import (
	"encoding/json"
	"strconv"

	"github.com/eio-go/eio/errs"
)

// Type identifies a Socket.IO packet's role.
type Type byte

const (
	Connect Type = iota
	Disconnect
	Event
	Ack
	ConnectError
	BinaryEvent
	BinaryAck
)

func (t Type) isBinary() bool {
	return t == BinaryEvent || t == BinaryAck
}

// Packet is a decoded or to-be-encoded Socket.IO packet.
type Packet struct {
	Type Type
	// Namespace defaults to "/" when empty.
	Namespace string
	// Event is the event name for Event/BinaryEvent packets; empty
	// otherwise.
	Event string
	// Payloads are the data array entries following Event, if any.
	Payloads []Payload
	// ID is the optional ack id.
	ID *int64
	// AttachmentCount is the number of binary attachments this packet
	// references (only meaningful for BinaryEvent/BinaryAck, and only
	// populated by Decode — attachment bytes arrive out-of-band).
	AttachmentCount int
}

func (p Packet) namespace() string {
	if p.Namespace == "" {
		return "/"
	}
	return p.Namespace
}

// Encode serializes p to its wire form. Binary attachments referenced from
// p.Payloads are returned, in the order they must be transmitted as
// subsequent Engine.IO MESSAGE/MESSAGE_BINARY frames.
func Encode(p Packet) (wire []byte, attachments [][]byte, err error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte('0'+p.Type))

	if p.Type.isBinary() {
		n := countBinary(p.Payloads)
		buf = appendInt(buf, n)
		buf = append(buf, '-')
	}

	ns := p.namespace()
	if ns != "/" {
		buf = append(buf, ns...)
		buf = append(buf, ',')
	}

	if p.ID != nil {
		buf = strconv.AppendInt(buf, *p.ID, 10)
	}

	if p.Event != "" || len(p.Payloads) > 0 {
		buf = append(buf, '[')
		if p.Event != "" {
			eventJSON, jerr := json.Marshal(p.Event)
			if jerr != nil {
				return nil, nil, errs.Wrap(errs.Serde, "encode event name", jerr)
			}
			buf = append(buf, eventJSON...)
			if len(p.Payloads) > 0 {
				buf = append(buf, ',')
			}
		}
		attachments = make([][]byte, 0, countBinary(p.Payloads))
		for i, pl := range p.Payloads {
			buf = pl.appendJSON(buf, &attachments)
			if i < len(p.Payloads)-1 {
				buf = append(buf, ',')
			}
		}
		buf = append(buf, ']')
	}

	return buf, attachments, nil
}

// countBinary counts payloads that occupy an attachment slot on the wire:
// bound binary data and still-unresolved placeholders alike, so re-encoding
// a Decode'd-but-not-yet-BindAttachments'd packet announces the same
// attachment count it was decoded with instead of silently claiming zero.
func countBinary(payloads []Payload) int {
	n := 0
	for _, p := range payloads {
		if p.kind == KindBinary || p.kind == kindPlaceholder {
			n++
		}
	}
	return n
}

// Decode parses the wire form of a Socket.IO packet. Binary payloads are
// left as unresolved placeholders; call Packet.BindAttachments once the
// AttachmentCount frames have arrived.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if len(data) == 0 {
		return p, errs.New(errs.InvalidPacket, "empty socket.io packet")
	}

	if data[0] < '0' || data[0] > '6' {
		return p, errs.New(errs.InvalidPacket, "unrecognized packet type")
	}
	p.Type = Type(data[0] - '0')
	i := 1

	if p.Type.isBinary() {
		start := i
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
		if i == start || i >= len(data) || data[i] != '-' {
			return Packet{}, errs.New(errs.InvalidPacket, "missing attachment count")
		}
		n, _ := strconv.Atoi(string(data[start:i]))
		p.AttachmentCount = n
		i++ // skip '-'
	}

	if i < len(data) && data[i] == '/' {
		start := i
		for i < len(data) && data[i] != ',' {
			i++
		}
		p.Namespace = string(data[start:i])
		if i >= len(data) || data[i] != ',' {
			return Packet{}, errs.New(errs.InvalidPacket, "missing namespace separator")
		}
		i++ // skip ','
	}

	if i < len(data) && data[i] >= '0' && data[i] <= '9' {
		start := i
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
		id, _ := strconv.ParseInt(string(data[start:i]), 10, 64)
		p.ID = &id
	}

	if i < len(data) {
		if data[i] != '[' {
			return Packet{}, errs.New(errs.InvalidPacket, "expected data array")
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(data[i:], &raw); err != nil {
			return Packet{}, errs.Wrap(errs.Serde, "decode data array", err)
		}

		elems := raw
		if (p.Type == Event || p.Type == BinaryEvent) && len(raw) > 0 {
			var ev string
			if err := json.Unmarshal(raw[0], &ev); err != nil {
				return Packet{}, errs.Wrap(errs.Serde, "decode event name", err)
			}
			p.Event = ev
			elems = raw[1:]
		}

		placeholders := 0
		for _, el := range elems {
			pl, isPlaceholder, err := decodePayload(el)
			if err != nil {
				return Packet{}, err
			}
			if isPlaceholder {
				placeholders++
			}
			p.Payloads = append(p.Payloads, pl)
		}
		if placeholders != p.AttachmentCount && p.Type.isBinary() {
			return Packet{}, errs.New(errs.InvalidPacket, "attachment count does not match placeholders")
		}
	}

	return p, nil
}

func decodePayload(raw json.RawMessage) (Payload, bool, error) {
	var asPlaceholder struct {
		Placeholder bool `json:"_placeholder"`
		Num         int  `json:"num"`
	}
	if json.Unmarshal(raw, &asPlaceholder) == nil && asPlaceholder.Placeholder {
		return Payload{kind: kindPlaceholder, placeIdx: asPlaceholder.Num}, true, nil
	}

	var asNumber float64
	if json.Unmarshal(raw, &asNumber) == nil && looksLikeNumber(raw) {
		return Number(asNumber), false, nil
	}

	var asString string
	if json.Unmarshal(raw, &asString) == nil {
		return String(asString), false, nil
	}

	// Not a placeholder, number, or JSON string (e.g. a bool, array, or
	// object value) — keep the raw JSON text so a subsequent Encode still
	// round-trips it verbatim via the isValidJSON inline path.
	return Payload{kind: KindString, str: string(raw)}, false, nil
}

func looksLikeNumber(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// BindAttachments replaces every placeholder payload with the matching
// attachment bytes, in index order. It fails with IncompletePacket if
// fewer attachments were supplied than the packet's placeholders require.
func (p *Packet) BindAttachments(attachments [][]byte) error {
	for i, pl := range p.Payloads {
		if pl.kind != kindPlaceholder {
			continue
		}
		if pl.placeIdx < 0 || pl.placeIdx >= len(attachments) {
			return errs.New(errs.IncompletePacket, "attachment index out of range")
		}
		p.Payloads[i] = Binary(attachments[pl.placeIdx])
	}
	return nil
}
