package eio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/valyala/fasthttp/fasthttputil"
	nhooyrws "nhooyr.io/websocket"
)

func startTestServer(t *testing.T, opt ServerOption) (*Server, *fasthttputil.InmemoryListener) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := NewServer(opt)
	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })
	return srv, ln
}

// S1 — Polling open.
func TestScenarioPollingOpen(t *testing.T) {
	_, ln := startTestServer(t, DefaultServerOption())

	conn, err := ln.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := "GET /?EIO=4&transport=polling HTTP/1.1\r\nHost: x\r\n\r\n"
	if _, err := conn.Write([]byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if len(body) == 0 || body[0] != '0' {
		t.Fatalf("expected body to begin with '0', got %q", body)
	}

	var hs HandshakePacket
	if err := json.Unmarshal(body[1:], &hs); err != nil {
		t.Fatalf("unmarshal handshake: %v", err)
	}
	if hs.Sid == "" {
		t.Fatal("expected non-empty sid")
	}
	if len(hs.Upgrades) != 1 || hs.Upgrades[0] != "websocket" {
		t.Fatalf("upgrades = %v, want [websocket]", hs.Upgrades)
	}
}

// S2 — WebSocket direct, driven via gorilla/websocket.
func TestScenarioWebSocketDirectGorilla(t *testing.T) {
	_, ln := startTestServer(t, ServerOption{PingInterval: 30, PingTimeout: 500})

	dialer := gorillaws.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) { return ln.Dial() },
	}
	c, _, err := dialer.Dial("ws://server/?EIO=4&transport=websocket", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	_, msg, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read open frame: %v", err)
	}
	if len(msg) == 0 || msg[0] != '0' {
		t.Fatalf("expected Open frame, got %q", msg)
	}
	var hs HandshakePacket
	if err := json.Unmarshal(msg[1:], &hs); err != nil {
		t.Fatalf("unmarshal handshake: %v", err)
	}
	if len(hs.Upgrades) != 0 {
		t.Fatalf("upgrades = %v, want empty", hs.Upgrades)
	}

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = c.ReadMessage()
	if err != nil {
		t.Fatalf("read ping frame: %v", err)
	}
	if string(msg) != "2" {
		t.Fatalf("got %q, want Ping frame \"2\"", msg)
	}
}

// S3 — WebSocket upgrade reusing an existing sid, driven via
// nhooyr.io/websocket as a second, independent client stack.
func TestScenarioWebSocketUpgradeNhooyr(t *testing.T) {
	_, ln := startTestServer(t, ServerOption{PingInterval: 30, PingTimeout: 500})

	conn, err := ln.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	req := "GET /?EIO=4&transport=polling HTTP/1.1\r\nHost: x\r\n\r\n"
	conn.Write([]byte(req))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	conn.Close()

	var hs HandshakePacket
	if err := json.Unmarshal(body[1:], &hs); err != nil {
		t.Fatalf("unmarshal handshake: %v", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws://server/?EIO=4&transport=websocket&sid=" + string(hs.Sid)
	c, _, err := nhooyrws.Dial(ctx, url, &nhooyrws.DialOptions{HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(nhooyrws.StatusNormalClosure, "")

	// No new Open frame should arrive on the upgraded transport; instead
	// the server should push a Ping within the configured interval.
	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	_, msg, err := c.Read(readCtx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msg) == 0 || msg[0] == '0' {
		t.Fatalf("did not expect a new Open frame on upgrade, got %q", msg)
	}
}

func TestScenarioRejectsWrongEioVersion(t *testing.T) {
	_, ln := startTestServer(t, DefaultServerOption())

	conn, err := ln.Dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := "GET /?EIO=3 HTTP/1.1\r\nHost: x\r\n\r\n"
	conn.Write([]byte(req))

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
