// Command echo runs a small Engine.IO / Socket.IO echo server: every
// Socket.IO packet received from a session is sent straight back to it.
// Binary attachments are not echoed: the handler only sees the announcing
// packet's text, so it sends that packet back with its placeholders and no
// attachment frames. Data that is not a Socket.IO packet is not echoed.
package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/eio-go/eio"
	"github.com/eio-go/eio/cmd/echo/internal/config"
	"github.com/eio-go/eio/sio"
)

func main() {
	configPath := flag.String("config", "", "path to echo.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	srv := eio.NewServer(eio.ServerOption{
		PingInterval: cfg.PingInterval,
		PingTimeout:  cfg.PingTimeout,
	})

	srv.HandleOpen = func(s *eio.Session) {
		slog.Info("session open", "sid", s.Sid())
	}
	srv.HandleClose = func(s *eio.Session, cause error) {
		slog.Info("session closed", "sid", s.Sid(), "err", cause)
	}
	srv.HandleError = func(s *eio.Session, err error) {
		slog.Warn("session error", "sid", s.Sid(), "err", err)
	}
	srv.HandlePacket = func(s *eio.Session, p eio.EnginePacket) {
		slog.Debug("packet", "sid", s.Sid(), "id", p.Id)
	}
	srv.HandleData = func(s *eio.Session, data []byte) {
		pkt, err := sio.Decode(data)
		if err != nil {
			slog.Warn("not a socket.io packet, not echoed", "sid", s.Sid())
			return
		}
		if err := s.Send(pkt); err != nil {
			slog.Warn("echo send failed", "sid", s.Sid(), "err", err)
		}
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		slog.Error("listen", "addr", cfg.ListenAddr, "err", err)
		os.Exit(1)
	}

	go serveDebug(srv, cfg.DebugAddr)

	slog.Info("serving", "addr", cfg.ListenAddr)
	if err := srv.Serve(ln); err != nil {
		slog.Error("serve", "err", err)
		os.Exit(1)
	}
}

// serveDebug exposes a minimal session-count endpoint on a secondary port,
// separate from the Engine.IO listener.
func serveDebug(srv *eio.Server, addr string) {
	r := router.New()
	r.GET("/sessions/count", func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("text/plain; charset=UTF-8")
		ctx.WriteString(strconv.Itoa(srv.Count()))
	})

	debugSrv := fasthttp.Server{Handler: r.Handler}
	if err := debugSrv.ListenAndServe(addr); err != nil {
		slog.Error("debug server", "addr", addr, "err", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
