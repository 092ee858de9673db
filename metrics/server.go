// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbmk-project/common/errclass"
)

// Server exposes /metrics and /api/stats over HTTP.
//
// Construct using [NewServer].
type Server struct {
	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	collector *Collector
	srv       *http.Server
	listener  net.Listener
}

// NewServer creates a [*Server] serving the metrics gathered by
// gatherer and the counters of collector.
func NewServer(gatherer prometheus.Gatherer, collector *Collector) *Server {
	s := &Server{collector: collector}
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/stats/{node:[0-9]+}", s.handleNodeStats).Methods(http.MethodGet)
	s.srv = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on addr and serves in a background goroutine.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	go func() {
		err := s.srv.Serve(listener)
		if s.Logger != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("metricsServeDone", slog.Any("err", err))
		}
	}()
	if s.Logger != nil {
		s.Logger.Info("metricsListening", slog.String("addr", listener.Addr().String()))
	}
	return nil
}

// Addr returns the listening address or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if s.Logger != nil {
		s.Logger.InfoContext(
			ctx,
			"metricsShutdownDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
		)
	}
	return err
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshot := s.collector.Snapshot()
	out := make(map[string]NodeCounters, len(snapshot))
	for id, entry := range snapshot {
		out[strconv.Itoa(id)] = entry
	}
	s.writeJSON(r, w, http.StatusOK, out)
}

func (s *Server) handleNodeStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["node"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, found := s.collector.Snapshot()[id]
	if !found {
		http.Error(w, "no such node", http.StatusNotFound)
		return
	}
	s.writeJSON(r, w, http.StatusOK, entry)
}

func (s *Server) writeJSON(r *http.Request, w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil && s.Logger != nil {
		s.Logger.WarnContext(
			r.Context(),
			"statsWriteDone",
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
		)
	}
}
