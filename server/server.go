// Package server exposes the tutormesh HTTP surface: thread CRUD, the SSE
// query stream and health probing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/engine"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/responder"
	"github.com/tutormesh/tutormesh/stream"
)

// Version is reported by the health and root endpoints.
const Version = "0.1.0"

const serviceName = "tutormesh"

// Server wires the engine, store and registry behind HTTP handlers.
type Server struct {
	store     core.ThreadStore
	engine    *engine.Engine
	registry  *responder.Registry
	publisher *stream.Publisher
	logger    logging.Logger
	mux       *http.ServeMux
}

// Options holds optional Server configuration.
type Options struct {
	Logger logging.Logger
}

// New constructs a Server and registers its routes.
func New(store core.ThreadStore, eng *engine.Engine, registry *responder.Registry, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		store:     store,
		engine:    eng,
		registry:  registry,
		publisher: stream.NewPublisher(opts.Logger),
		logger:    opts.Logger,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/v1/{$}", s.handleRoot)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/threads", s.handleCreateThread)
	s.mux.HandleFunc("GET /api/v1/threads/{id}/messages", s.handleThreadMessages)
	s.mux.HandleFunc("DELETE /api/v1/threads/{id}", s.handleDeleteThread)
	s.mux.HandleFunc("GET /api/v1/chat/stream", s.handleChatStream)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": Version,
		"endpoints": []string{
			"POST /api/v1/threads",
			"GET /api/v1/threads/{id}/messages",
			"DELETE /api/v1/threads/{id}",
			"GET /api/v1/chat/stream",
			"GET /api/v1/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"service":    serviceName,
		"version":    Version,
		"responders": s.registry.Names(),
	})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	th, err := s.store.Create(r.Context())
	if err != nil {
		s.logger.Error("creating thread", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create thread")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"thread_id":  th.ID,
		"created_at": th.Created.Format(time.RFC3339Nano),
		"status":     "created",
	})
}

func (s *Server) handleThreadMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages, err := s.store.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("loading history", "thread", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id":     id,
		"messages":      messages,
		"message_count": len(messages),
	})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("deleting thread", "thread", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete thread")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread_id": id,
		"status":    "deleted",
	})
}

// handleChatStream runs one query and streams its activity as SSE. The run
// itself gets a detached context: a client disconnect stops delivery but the
// engine still finishes and persists its message.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	maxRounds := -1
	if raw := r.URL.Query().Get("max_rounds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "max_rounds must be a non-negative integer")
			return
		}
		maxRounds = n
	}

	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		th, err := s.store.Create(r.Context())
		if err != nil {
			s.logger.Error("creating thread", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create thread")
			return
		}
		threadID = th.ID
	}

	runCtx := context.WithoutCancel(r.Context())
	runID, events, errs, err := s.engine.Run(runCtx, threadID, query, maxRounds)
	if err != nil {
		if errors.Is(err, core.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		s.logger.Error("starting run", "thread", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start query")
		return
	}

	s.logger.Info("query stream opened", "thread", threadID, "run", runID)
	if err := s.publisher.Publish(w, threadID, query, events, errs); err != nil {
		s.logger.Error("run ended with error", "thread", threadID, "run", runID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
