package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultLimit is the number of records GET /batches returns without ?limit=.
const DefaultLimit = 50

// Server exposes a journal of delivered batches over HTTP.
type Server struct {
	Journal  ports.Journal
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
}

// Option configures NewHandler.
type Option func(*Server)

// WithStreams enables GET /events.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// NewHandler creates the HTTP handler:
//
//	GET /healthz
//	GET /info
//	GET /batches?limit=N
//	GET /batches/{seq}
//	GET /events?model=M   (with WithStreams)
//	GET /metrics          (with WithGatherer)
func NewHandler(journal ports.Journal, opts ...Option) http.Handler {
	server := &Server{Journal: journal}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/batches", server.ListBatches)
	r.Get("/batches/{seq}", server.GetBatch)
	if server.Streams != nil {
		r.Get("/events", server.SubscribeEvents)
	}
	if server.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Tap returns a view that journals each batch and broadcasts the stored
// record to streams, when streams is not nil.
func Tap(journal ports.Journal, streams *StreamManager, label func(spectate.Observable) string) spectate.ViewFunc {
	if label == nil {
		label = func(o spectate.Observable) string { return fmt.Sprintf("%T", o) }
	}
	return func(origin spectate.Observable, batch domain.Batch) error {
		rec, err := journal.Append(context.Background(), domain.Record{
			Model: label(origin),
			Time:  time.Now(),
			Batch: batch,
		})
		if err != nil {
			return err
		}
		if streams != nil {
			streams.Broadcast(rec)
		}
		return nil
	}
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "spectate-http",
		"version": strings.TrimSpace(spectate.Version),
	})
}

// ListBatches handles the GET /batches request.
func (s *Server) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	recs, err := s.Journal.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("ListBatches failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetBatch handles the GET /batches/{seq} request.
func (s *Server) GetBatch(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "seq")
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sequence number %q", raw))
		return
	}

	rec, err := s.Journal.Get(r.Context(), seq)
	if errors.Is(err, domain.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("GetBatch failed", "seq", seq, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := r.URL.Query().Get("model")
	slog.Debug("SSE: Subscribing to batches", "model", model)

	ch, cancel := s.Streams.Subscribe(model)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: batch\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
