// Package server wraps the session hub's WebSocket endpoint with the
// teacher's standard ada middleware stack: recovery, request id, structured
// logging, and telemetry. The gateway's OpenAI-compatible HTTP surface has
// no analogue here — this package keeps only the listener shape, not the
// routes it used to carry.
package server

import (
	"context"
	"net"

	"github.com/rakunlabs/ada"
	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/rakunlabs/moo/internal/config"
	"github.com/rakunlabs/moo/internal/session"
)

// Server serves the world's single external route: a WebSocket upgrade at
// /ws, JSON-RPC framed one message per text frame.
type Server struct {
	mux *ada.Server
}

// New builds a Server. hub handles every upgraded connection.
func New(hub *session.Hub) *Server {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(config.Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	mux.Handle("/ws", hub)

	return &Server{mux: mux}
}

// Start listens on host:port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, host, port string) error {
	return s.mux.StartWithContext(ctx, net.JoinHostPort(host, port))
}
