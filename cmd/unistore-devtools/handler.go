package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/unistore/devtools"
	"github.com/spetersoncode/unistore/store"
)

// eventBuffer is the number of entries queued per SSE client before the
// stream falls back to a fresh snapshot.
const eventBuffer = 64

// Handler serves a store's state and devtools history over HTTP.
type Handler struct {
	bridge *devtools.Bridge
	mux    *http.ServeMux
}

// NewHandler creates the HTTP routes for the bridge's store.
func NewHandler(b *devtools.Bridge) *Handler {
	h := &Handler{bridge: b, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /state", h.getState)
	h.mux.HandleFunc("POST /state", h.setState)
	h.mux.HandleFunc("GET /history", h.history)
	h.mux.HandleFunc("POST /jump", h.jump)
	h.mux.HandleFunc("GET /events", h.events)
	h.mux.HandleFunc("GET /health", healthHandler)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetStateRequest is the body of POST /state.
type SetStateRequest struct {
	State     store.State `json:"state"`
	Action    string      `json:"action,omitempty"`
	Overwrite bool        `json:"overwrite,omitempty"`
}

// JumpRequest is the body of POST /jump.
type JumpRequest struct {
	Index *int `json:"index"`
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	s := h.bridge.Store()
	if path := r.URL.Query().Get("path"); path != "" {
		writeJSON(w, http.StatusOK, s.Lookup(path, nil))
		return
	}
	writeJSON(w, http.StatusOK, s.Get())
}

func (h *Handler) setState(w http.ResponseWriter, r *http.Request) {
	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.State == nil {
		http.Error(w, "state is required", http.StatusBadRequest)
		return
	}

	var opts []store.SetOption
	if req.Action != "" {
		opts = append(opts, store.WithAction(req.Action))
	}
	if req.Overwrite {
		opts = append(opts, store.WithOverwrite())
	}

	next := h.bridge.Store().Set(req.State, opts...)
	if next == nil {
		http.Error(w, devtools.ErrStoreDestroyed.Error(), http.StatusGone)
		return
	}
	slog.Info("state set", "action", req.Action, "overwrite", req.Overwrite, "keys", len(req.State))
	writeJSON(w, http.StatusOK, next)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.bridge.History())
}

func (h *Handler) jump(w http.ResponseWriter, r *http.Request) {
	var req JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		http.Error(w, "Invalid request body: index is required", http.StatusBadRequest)
		return
	}

	state, err := h.bridge.Jump(*req.Index)
	switch {
	case errors.Is(err, devtools.ErrEntryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	slog.Info("jumped", "index", *req.Index)
	writeJSON(w, http.StatusOK, state)
}

// events streams the store as AG-UI state events: RUN_STARTED, a
// STATE_SNAPSHOT, then one STATE_DELTA per change until the client leaves.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	mapper := devtools.NewMapper(r.URL.Query().Get("threadId"), r.URL.Query().Get("runId"))

	// Create request-scoped logger
	log := slog.With(
		"run_id", mapper.RunID(),
		"thread_id", mapper.ThreadID(),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	entries := make(chan devtools.Entry, eventBuffer)
	var lagged atomic.Bool
	cancel := h.bridge.Watch(func(e devtools.Entry) {
		select {
		case entries <- e:
		default:
			lagged.Store(true)
		}
	})
	defer cancel()

	log.Info("stream started")

	var eventCount int
	send := func(ev aguievents.Event) bool {
		if ev == nil {
			return true
		}
		eventCount++
		log.Debug("sending SSE event", "event_type", ev.Type(), "event_num", eventCount)
		if err := writeSSE(w, flusher, ev); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", ev.Type())
			return false
		}
		return true
	}

	if !send(mapper.RunStarted()) || !send(mapper.Snapshot(h.bridge.Store().Get())) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			log.Info("stream closed",
				"duration_ms", time.Since(start).Milliseconds(),
				"events_sent", eventCount,
			)
			return
		case e := <-entries:
			var ev aguievents.Event
			if lagged.Swap(false) {
				for len(entries) > 0 {
					<-entries
				}
				log.Warn("stream lagged, resending snapshot")
				ev = mapper.Snapshot(h.bridge.Store().Get())
			} else {
				ev = mapper.MapEntry(e)
			}
			if !send(ev) {
				return
			}
		}
	}
}

// writeSSE writes an AG-UI event in SSE format.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// Write SSE format: event: TYPE\ndata: {json}\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), string(data)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// corsMiddleware adds CORS headers for cross-origin devtools frontends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
