// Package statuspush exposes the sync manager's live state over a
// WebSocket, so the admin CLI can stream status rather than polling
// get_sync_status repeatedly. Grounded on the teacher's slave/server.go
// upgrader + WriteJSON idiom.
package statuspush

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
)

// Server pushes a syncmanager.ProgressSnapshot to every connected client
// on a fixed interval until the client disconnects or ctx is cancelled.
type Server struct {
	manager  *syncmanager.Manager
	upgrader websocket.Upgrader
	interval time.Duration
}

// New builds a Server that polls manager's state every interval.
func New(manager *syncmanager.Manager, interval time.Duration) *Server {
	return &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			// Local-only tool, no browser origin to police.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		interval: interval,
	}
}

// Handler implements the /ws/status endpoint.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("status push: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.manager.Snapshot()); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ListenAndServe runs a bare HTTP server exposing Handler at /ws/status on
// addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/status", s.Handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
