package eio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"

	"github.com/gobwas/ws"
	"github.com/valyala/fasthttp"

	"github.com/eio-go/eio/errs"
)

// Acceptor owns a raw net.Listener and, for every accepted connection,
// classifies its leading HTTP request and routes it to the polling or
// WebSocket data path.
type Acceptor struct {
	ln  net.Listener
	srv *Server
}

func newAcceptor(ln net.Listener, srv *Server) *Acceptor {
	return &Acceptor{ln: ln, srv: srv}
}

// serve accepts connections until the listener is closed.
func (a *Acceptor) serve() error {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return err
		}
		go a.handleConn(conn)
	}
}

func (a *Acceptor) handleConn(conn net.Conn) {
	br := bufio.NewReaderSize(conn, maxPeekBytes)

	peek, ok := peekRequestHead(br)
	if !ok {
		writeErrorResponse(conn, fasthttp.StatusBadRequest)
		conn.Close()
		return
	}

	rt, ok := Classify(peek)
	if !ok {
		writeErrorResponse(conn, fasthttp.StatusBadRequest)
		conn.Close()
		return
	}

	if rt.Kind == RequestWsUpgrade {
		a.handleUpgrade(conn, br, rt)
		return
	}

	a.handlePolling(conn, br, rt)
}

// peekRequestHead grows the peeked window one read at a time until the
// blank line terminating the HTTP header block appears, without ever
// blocking for more bytes than the client actually has left to send: a
// fixed-size Peek(maxPeekBytes) would hang forever on a short request,
// since bufio.Reader.Peek keeps reading until it fills the requested
// count, and a client that already sent its whole request is instead
// waiting on the response.
func peekRequestHead(br *bufio.Reader) ([]byte, bool) {
	if _, err := br.Peek(1); err != nil {
		return nil, false
	}
	for {
		n := br.Buffered()
		buf, _ := br.Peek(n)
		if bytes.Contains(buf, []byte("\r\n\r\n")) {
			return buf, true
		}
		if n >= maxPeekBytes {
			return nil, false
		}
		if _, err := br.Peek(n + 1); err != nil {
			return nil, false
		}
	}
}

// bufferedConn lets ws.Upgrade read the still-buffered request line and
// headers that handleConn already peeked, while writing the handshake
// response straight through to the underlying connection.
type bufferedConn struct {
	io.Reader
	net.Conn
}

func (c bufferedConn) Read(p []byte) (int, error) { return c.Reader.Read(p) }

func (a *Acceptor) handleUpgrade(conn net.Conn, br *bufio.Reader, rt RequestType) {
	bc := bufferedConn{Reader: br, Conn: conn}
	_, err := ws.Upgrade(bc)
	if err != nil {
		conn.Close()
		return
	}

	// Reads from here on must keep draining br first: handleConn's initial
	// Peek may have buffered bytes past the handshake (e.g. a client that
	// pipelines its first frame), and those bytes live only in br, not in
	// the raw conn.

	// An upgrade from an existing polling sid reuses that Sid and sends no
	// new Open frame (S3); a direct WebSocket connection allocates a fresh
	// Sid and sends the Open frame itself, advertising no further upgrades
	// (S2: upgrades is empty once already on WebSocket).
	if rt.HasSid {
		sess, found := a.srv.registry.get(rt.Sid)
		if !found {
			sess = a.srv.newSession(rt.Sid)
			a.srv.registry.insert(sess)
		}
		sess.connect(newWsTransport(bc))
		return
	}

	sid := a.srv.sids.generate()
	sess := a.srv.newSession(sid)
	a.srv.registry.insert(sess)
	sess.connect(newWsTransport(bc))

	hs := HandshakePacket{
		Sid:          sid,
		Upgrades:     []string{},
		PingInterval: a.srv.opt.PingInterval,
		PingTimeout:  a.srv.opt.PingTimeout,
	}
	payload, err := json.Marshal(hs)
	if err != nil {
		sess.fail(errs.Wrap(errs.Serde, "marshal handshake", err))
		return
	}
	_ = sess.emit(NewPacket(PacketOpen, payload))
}

// handlePolling implements the documented long-polling stub (§4.J): an
// Open request gets a real handshake and a session, a Get always replies
// with the bare Upgrade frame, and a Post is read and discarded.
func (a *Acceptor) handlePolling(conn net.Conn, br *bufio.Reader, rt RequestType) {
	defer conn.Close()

	var header fasthttp.RequestHeader
	if err := header.Read(br); err != nil {
		writeErrorResponse(conn, fasthttp.StatusBadRequest)
		return
	}

	switch rt.Kind {
	case RequestPollingOpen:
		sid := a.srv.sids.generate()
		sess := a.srv.newSession(sid)
		a.srv.registry.insert(sess)

		hs := HandshakePacket{
			Sid:          sid,
			Upgrades:     []string{"websocket"},
			PingInterval: a.srv.opt.PingInterval,
			PingTimeout:  a.srv.opt.PingTimeout,
		}
		payload, err := json.Marshal(hs)
		if err != nil {
			writeErrorResponse(conn, fasthttp.StatusInternalServerError)
			return
		}
		frame, err := EncodeText(NewPacket(PacketOpen, payload))
		if err != nil {
			writeErrorResponse(conn, fasthttp.StatusInternalServerError)
			return
		}
		writeTextResponse(conn, frame)

	case RequestPollingGet:
		// The stub does not look up or buffer per-sid state for Get; it
		// always replies with the bare Upgrade frame (see §4.J).
		writeTextResponse(conn, []byte("5"))

	case RequestPollingPost:
		// Classify already read the body, from the peeked bytes, as rt.Sid;
		// here it is drained from br and the stub does nothing further with
		// it (see §4.J), matching the source's own unconditional no-op for
		// PollingPost.
		if n := header.ContentLength(); n > 0 {
			discard := make([]byte, n)
			_, _ = br.Read(discard)
		}
		writeTextResponse(conn, nil)
	}
}

func writeTextResponse(conn net.Conn, body []byte) {
	var resp fasthttp.Response
	resp.Header.SetContentType("text/plain; charset=UTF-8")
	resp.Header.Set("Connection", "Close")
	resp.SetStatusCode(fasthttp.StatusOK)
	resp.SetBody(body)

	w := bufio.NewWriter(conn)
	_ = resp.Write(w)
	_ = w.Flush()
}

func writeErrorResponse(conn net.Conn, status int) {
	var resp fasthttp.Response
	resp.Header.Set("Connection", "Close")
	resp.SetStatusCode(status)

	w := bufio.NewWriter(conn)
	_ = resp.Write(w)
	_ = w.Flush()
}
