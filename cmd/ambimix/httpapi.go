package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ============================================================================
// HTTP API
// ============================================================================
// Every request goes through the daemon loop as an Event; handlers never
// touch MixerState. Read endpoints send a request event carrying a reply
// channel and wait for the reducer's answer.
//
//   GET  /api/state                 StateSnapshot
//   GET  /api/export                ExportDocument
//   POST /api/import                ExportDocument body, wholesale replace
//   GET  /api/timer/presets?limit=N ranked sleep timer durations (seconds)
//   POST /api/events                event envelope, same as IPC
//   GET  /ws                        state websocket
// ============================================================================

const (
	apiReplyTimeout    = 2 * time.Second
	apiMaxBodyBytes    = 1 << 20
	apiShutdownTimeout = 3 * time.Second
)

var errDaemonUnavailable = errors.New("daemon unavailable")

// APIServer serves the HTTP API and the state websocket.
type APIServer struct {
	logger *slog.Logger
	hub    *Hub
	events chan<- Event
}

func NewAPIServer(logger *slog.Logger, events chan<- Event, hub *Hub) *APIServer {
	return &APIServer{logger: logger, hub: hub, events: events}
}

// Handler returns the API mux.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/timer/presets", s.handleTimerPresets)
	mux.HandleFunc("POST /api/events", s.handleEvent)
	mux.HandleFunc("GET /ws", s.handleStateWS)
	return mux
}

// request posts ev to the daemon and waits for one value on reply.
func request[T any](ctx context.Context, events chan<- Event, ev Event, reply <-chan T) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, apiReplyTimeout)
	defer cancel()

	select {
	case events <- ev:
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", errDaemonUnavailable, ctx.Err())
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", errDaemonUnavailable, ctx.Err())
	}
}

func (s *APIServer) snapshot(ctx context.Context) (StateSnapshot, error) {
	reply := make(chan StateSnapshot, 1)
	return request(ctx, s.events, RequestStateSnapshot{Reply: reply}, reply)
}

func (s *APIServer) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *APIServer) handleExport(w http.ResponseWriter, r *http.Request) {
	reply := make(chan ExportDocument, 1)
	doc, err := request(r.Context(), s.events, RequestExport{Reply: reply}, reply)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="ambimix-export.json"`)
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *APIServer) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, apiMaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	doc, err := DecodeExportDocument(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	reply := make(chan error, 1)
	importErr, err := request(r.Context(), s.events, ImportDocument{Doc: doc, Reply: reply}, reply)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if importErr != nil {
		s.writeError(w, http.StatusBadRequest, importErr)
		return
	}
	s.logger.Info("import applied", "presets", len(doc.Presets), "favorite_sounds", len(doc.FavoriteSoundIDs), "favorite_mixes", len(doc.FavoriteMixIDs))
	s.writeJSON(w, http.StatusOK, IPCResponse{Status: "ok"})
}

func (s *APIServer) handleTimerPresets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	reply := make(chan []int, 1)
	presets, err := request(r.Context(), s.events, RequestTimerPresets{Limit: limit, Reply: reply}, reply)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, presets)
}

func (s *APIServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, apiMaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	ev, err := UnmarshalEvent(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse event: %w", err))
		return
	}

	select {
	case s.events <- ev:
		s.writeJSON(w, http.StatusAccepted, IPCResponse{Status: "ok"})
	default:
		s.writeError(w, http.StatusServiceUnavailable, errors.New("event queue full"))
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("http write failed", "error", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Debug("http request failed", "status", status, "error", err)
	s.writeJSON(w, status, IPCResponse{Status: "error", Error: err.Error()})
}

// runHTTPServer serves handler on addr and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	logger.Info("HTTP listening", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
