package eio

import (
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/valyala/bytebufferpool"

	"github.com/eio-go/eio/errs"
)

// transport is the per-session handle a Session drives: something that can
// carry EnginePackets in both directions over a concrete byte-stream.
type transport interface {
	send(EnginePacket)
	closeTransport()
	inbound() <-chan EnginePacket
	errors() <-chan error
}

// wsTransport carries Engine.IO frames over a WebSocket connection using
// gobwas/ws for the wire-level framing: text frames hold the digit-prefixed
// Engine.IO payload, binary frames hold MessageBinary payloads verbatim.
type wsTransport struct {
	conn net.Conn

	in     chan EnginePacket
	out    chan EnginePacket
	errch  chan error
	closer chan struct{}
	once   sync.Once
}

func newWsTransport(conn net.Conn) *wsTransport {
	t := &wsTransport{
		conn:   conn,
		in:     make(chan EnginePacket, 128),
		out:    make(chan EnginePacket, 128),
		errch:  make(chan error, 2),
		closer: make(chan struct{}),
	}
	go t.readLoop()
	go t.writeLoop()
	return t
}

func (t *wsTransport) inbound() <-chan EnginePacket { return t.in }
func (t *wsTransport) errors() <-chan error         { return t.errch }

func (t *wsTransport) send(p EnginePacket) {
	select {
	case t.out <- p:
	case <-t.closer:
	}
}

func (t *wsTransport) triggerClose() {
	t.once.Do(func() { close(t.closer) })
}

func (t *wsTransport) closeTransport() {
	t.triggerClose()
	t.conn.Close()
}

func (t *wsTransport) readLoop() {
	defer close(t.in)

	for {
		data, op, err := wsutil.ReadClientData(t.conn)
		if err != nil {
			t.pushErr(errs.Wrap(errs.Transport, "websocket read", err))
			return
		}

		switch op {
		case ws.OpText:
			pkt, derr := DecodeText(data)
			if derr != nil {
				t.pushErr(derr)
				continue
			}
			select {
			case t.in <- pkt:
			case <-t.closer:
				return
			}
		case ws.OpBinary:
			select {
			case t.in <- DecodeBinary(data):
			case <-t.closer:
				return
			}
		case ws.OpClose:
			return
		}
	}
}

func (t *wsTransport) pushErr(err error) {
	select {
	case t.errch <- err:
	default:
	}
}

func (t *wsTransport) writeLoop() {
	for {
		select {
		case p := <-t.out:
			if err := t.writePacket(p); err != nil {
				t.pushErr(errs.Wrap(errs.Transport, "websocket write", err))
				return
			}
		case <-t.closer:
			return
		}
	}
}

// writePacket frames p for the wire. Text frames are built in a pooled
// buffer, reused across writes the same way dgrr-websocket pools its
// per-connection buffered frame data.
func (t *wsTransport) writePacket(p EnginePacket) error {
	if p.Id == PacketMessageBinary {
		return wsutil.WriteServerMessage(t.conn, ws.OpBinary, p.Payload)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = append(buf.B, '0'+byte(p.Id))
	buf.B = append(buf.B, p.Payload...)
	return wsutil.WriteServerMessage(t.conn, ws.OpText, buf.B)
}
