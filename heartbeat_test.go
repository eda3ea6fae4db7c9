package eio

import (
	"testing"
	"time"
)

func TestHeartbeatLiveness(t *testing.T) {
	opt := ServerOption{PingInterval: 20, PingTimeout: 500}
	s := newSession("hb1", opt)
	tr := newFakeTransport()
	s.connect(tr)

	waitFor(t, func() bool {
		for _, p := range tr.out {
			if p.Id == PacketPing {
				return true
			}
		}
		return false
	})
}

func TestHeartbeatTimeoutClosesSession(t *testing.T) {
	opt := ServerOption{PingInterval: 10, PingTimeout: 20}
	s := newSession("hb2", opt)
	tr := newFakeTransport()

	var closes int
	s.onClose = func(_ *Session, cause error) {
		closes++
		if cause != nil {
			t.Fatalf("expected nil cause for a timeout close, got %v", cause)
		}
	}

	s.connect(tr)

	waitFor(t, func() bool { return !s.IsConnected() })
	if closes != 1 {
		t.Fatalf("onClose fired %d times, want 1", closes)
	}
}
