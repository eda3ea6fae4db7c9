package eio

import "net"

// Server is the top-level entry point: it owns the session registry, the
// sid generator, and the acceptor loop, and dispatches the five user
// callbacks for every session it manages.
//
// Origin is left unused by default; it exists purely as a documented
// extension point for a deployment that wants to add its own origin
// checking in front of the acceptor, mirroring dgrr-websocket's own
// unused Server.Origin field.
type Server struct {
	opt      ServerOption
	registry *registry
	sids     sidGenerator
	Origin   string

	pollingBuffer bool

	HandleOpen   func(*Session)
	HandleClose  func(*Session, error)
	HandleData   func(*Session, []byte)
	HandlePacket func(*Session, EnginePacket)
	HandleError  func(*Session, error)
}

// SetPollingBuffer is a documented extension point for a future buffering
// long-polling transport (§4.J): it records the flag but does not change
// behavior today. PollingGet/PollingPost remain the stub in §4.D regardless
// of its value.
func (s *Server) SetPollingBuffer(enabled bool) {
	s.pollingBuffer = enabled
}

// NewServer builds a Server with the given heartbeat timing. Register the
// HandleX callbacks before calling Serve.
func NewServer(opt ServerOption) *Server {
	return &Server{
		opt:      opt,
		registry: newRegistry(),
	}
}

func (s *Server) newSession(sid Sid) *Session {
	sess := newSession(sid, s.opt)
	sess.onOpen = s.HandleOpen
	sess.onClose = s.HandleClose
	sess.onData = s.HandleData
	sess.onPacket = s.HandlePacket
	sess.onError = s.HandleError
	sess.removeFromRegistry = func() { s.registry.remove(sid) }
	return sess
}

// Serve runs the accept loop until ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	a := newAcceptor(ln, s)
	return a.serve()
}

// Session looks up a currently-registered session by sid.
func (s *Server) Session(sid Sid) (*Session, bool) {
	return s.registry.get(sid)
}

// Count returns the number of currently-registered sessions.
func (s *Server) Count() int {
	return s.registry.count()
}

// Broadcast calls fn for every currently-connected session.
func (s *Server) Broadcast(fn func(*Session)) {
	s.registry.each(func(sess *Session) {
		if sess.IsConnected() {
			fn(sess)
		}
	})
}
