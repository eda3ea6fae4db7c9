package eio

import "time"

// startHeartbeat runs a session's ping/timeout driver in its own goroutine.
// It ticks every PingInterval, emitting a Ping frame, and terminates the
// session once no Pong has been observed for PingInterval+PingTimeout. The
// driver exits on its own once the session disconnects for any reason.
func startHeartbeat(s *Session) {
	interval := time.Duration(s.opt.PingInterval) * time.Millisecond
	timeout := time.Duration(s.opt.PingInterval+s.opt.PingTimeout) * time.Millisecond

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.emit(NewPacket(PacketPing, nil)); err != nil {
					return
				}
				if time.Since(s.lastPongAt()) >= timeout {
					s.disconnect(nil)
					return
				}
			}
		}
	}()
}
