package eio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eio-go/eio/errs"
	"github.com/eio-go/eio/sio"
)

// Session is one client's Engine.IO connection: one transport, one
// heartbeat driver, one ordered stream of frames in each direction.
//
// A Session starts disconnected; connect() marks it live and fires
// HandleOpen. From then on, emit/Send push frames out and the transport's
// inbound frames are pumped through handleIncomingPacket until the session
// disconnects, at which point HandleClose fires exactly once.
type Session struct {
	sid Sid
	opt ServerOption

	trMu sync.Mutex
	tr   transport

	connected atomic.Bool
	lastPong  atomic.Value // time.Time

	done     chan struct{}
	doneOnce sync.Once

	// attachment-pairing state (component B, driven from the EIO frame
	// stream): while awaiting > 0 every incoming frame must be a
	// Message/MessageBinary attachment body.
	awaiting  int
	collected [][]byte
	firstPkt  *EnginePacket
	pending   *sio.Packet

	onOpen   func(*Session)
	onClose  func(*Session, error)
	onData   func(*Session, []byte)
	onPacket func(*Session, EnginePacket)
	onError  func(*Session, error)

	removeFromRegistry func()
}

func newSession(sid Sid, opt ServerOption) *Session {
	s := &Session{
		sid:  sid,
		opt:  opt,
		done: make(chan struct{}),
	}
	s.lastPong.Store(time.Time{})
	return s
}

// Sid returns the session's identifier.
func (s *Session) Sid() Sid { return s.sid }

// IsConnected reports whether the session has completed its handshake and
// has not yet disconnected.
func (s *Session) IsConnected() bool { return s.connected.Load() }

func (s *Session) lastPongAt() time.Time {
	return s.lastPong.Load().(time.Time)
}

// connect attaches tr as the session's live transport, marks the session
// connected, and starts the frame pump and heartbeat driver.
func (s *Session) connect(tr transport) {
	s.trMu.Lock()
	s.tr = tr
	s.trMu.Unlock()

	s.lastPong.Store(time.Now())
	s.connected.Store(true)

	if s.onOpen != nil {
		s.onOpen(s)
	}

	go s.pump()
	startHeartbeat(s)
}

// emit pushes a single Engine.IO frame to the current transport.
func (s *Session) emit(p EnginePacket) error {
	if !s.connected.Load() {
		return errs.New(errs.IllegalActionBeforeOpen, "session is not connected")
	}
	s.trMu.Lock()
	tr := s.tr
	s.trMu.Unlock()
	if tr == nil {
		return errs.New(errs.IllegalActionBeforeOpen, "session has no transport")
	}
	tr.send(p)
	return nil
}

// Send serializes a Socket.IO packet and emits it as a Message frame
// followed by one MessageBinary frame per attachment, in order.
func (s *Session) Send(p sio.Packet) error {
	wire, attachments, err := sio.Encode(p)
	if err != nil {
		return err
	}
	if err := s.emit(NewPacket(PacketMessage, wire)); err != nil {
		return err
	}
	for _, a := range attachments {
		if err := s.emit(NewPacket(PacketMessageBinary, a)); err != nil {
			return err
		}
	}
	return nil
}

// pump drains the transport's inbound channel until it closes or the
// session is told to stop.
func (s *Session) pump() {
	tr := s.tr
	for {
		select {
		case pkt, ok := <-tr.inbound():
			if !ok {
				if s.awaiting > 0 {
					s.fail(errs.New(errs.IncompletePacket, "stream closed while awaiting attachments"))
				} else {
					s.disconnect(nil)
				}
				return
			}
			s.handleIncomingPacket(pkt)
		case err, ok := <-tr.errors():
			if !ok {
				continue
			}
			s.fail(err)
			return
		case <-s.done:
			return
		}
	}
}

func (s *Session) fail(err error) {
	if s.onError != nil {
		s.onError(s, err)
	}
	s.disconnect(err)
}

// handleIncomingPacket advances the session's state machine for one
// inbound Engine.IO frame.
func (s *Session) handleIncomingPacket(pkt EnginePacket) {
	if s.awaiting > 0 && pkt.Id != PacketMessage && pkt.Id != PacketMessageBinary {
		s.fail(errs.New(errs.InvalidAttachmentPacketType, "expected attachment frame"))
		return
	}

	switch pkt.Id {
	case PacketPong:
		s.lastPong.Store(time.Now())
	case PacketMessage, PacketMessageBinary:
		s.handleMessage(pkt)
	case PacketClose:
		s.disconnect(nil)
	}
}

// handleMessage either completes an in-progress attachment wait, starts
// one, or dispatches the frame immediately. Completing a wait binds the
// collected attachment bytes onto the packet that announced them (a bind
// failure fails the session) and re-encodes it. The dispatched frame is that
// re-encoded text, which still carries the {"_placeholder":true,"num":K}
// markers; the attachment bytes themselves are not passed to
// HandlePacket/HandleData.
func (s *Session) handleMessage(pkt EnginePacket) {
	if s.awaiting > 0 {
		s.collected = append(s.collected, pkt.Payload)
		s.awaiting--
		if s.awaiting == 0 {
			first := s.firstPkt
			pending := s.pending
			collected := s.collected
			s.firstPkt = nil
			s.pending = nil
			s.collected = nil

			if err := pending.BindAttachments(collected); err != nil {
				s.fail(err)
				return
			}
			wire, _, err := sio.Encode(*pending)
			if err != nil {
				s.fail(errs.Wrap(errs.Serde, "re-encode bound packet", err))
				return
			}
			s.dispatch(EnginePacket{Id: first.Id, Payload: wire})
		}
		return
	}

	if sp, err := sio.Decode(pkt.Payload); err == nil && sp.AttachmentCount > 0 {
		cp := pkt
		pending := sp
		s.firstPkt = &cp
		s.pending = &pending
		s.awaiting = sp.AttachmentCount
		s.collected = make([][]byte, 0, sp.AttachmentCount)
		return
	}

	s.dispatch(pkt)
}

func (s *Session) dispatch(pkt EnginePacket) {
	if s.onPacket != nil {
		s.onPacket(s, pkt)
	}
	if len(pkt.Payload) > 0 && s.onData != nil {
		s.onData(s, pkt.Payload)
	}
}

// disconnect tears the session down exactly once: it best-effort sends a
// Close frame, stops the heartbeat and transport, then invokes HandleClose
// and asks the registry to forget this sid. The registry callback runs
// last and outside of any lock this Session holds, so it is safe for
// HandleClose to call back into the server.
func (s *Session) disconnect(cause error) {
	s.doneOnce.Do(func() {
		s.trMu.Lock()
		tr := s.tr
		s.trMu.Unlock()

		if tr != nil && s.connected.Load() {
			tr.send(NewPacket(PacketClose, nil))
		}
		s.connected.Store(false)
		close(s.done)

		if tr != nil {
			tr.closeTransport()
		}
		if s.onClose != nil {
			s.onClose(s, cause)
		}
		if s.removeFromRegistry != nil {
			s.removeFromRegistry()
		}
	})
}
