package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"elpbot/core/buildinfo"
	"elpbot/core/logger"
)

const healthBanner = "ELP bot is running"

// HealthServer answers liveness probes from the hosting platform.
type HealthServer struct {
	srv *http.Server
	ln  net.Listener
}

func healthHandler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%s (%s)", healthBanner, buildinfo.Summary())
	}
	mux.HandleFunc("/health", reply)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		reply(w, r)
	})
	return mux
}

// StartHealth binds addr and serves in the background.
func StartHealth(addr string) (*HealthServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health: listen %s: %w", addr, err)
	}
	hs := &HealthServer{
		srv: &http.Server{
			Handler:           healthHandler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln: ln,
	}
	go func() {
		if err := hs.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.HTTP.Error("health server stopped",
				slog.String("event", "http.serve"),
				slog.String("err", err.Error()),
			)
		}
	}()
	logger.HTTP.Info("health endpoint up",
		slog.String("event", "http.listen"),
		slog.String("addr", ln.Addr().String()),
	)
	return hs, nil
}

// Addr is the bound address.
func (h *HealthServer) Addr() string {
	if h == nil || h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight probes until ctx is done.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.srv.Shutdown(ctx)
}
