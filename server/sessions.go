package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/medguideai/medguide/engine"
	"github.com/medguideai/medguide/errors"
)

func (s *Server) registerSessionRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		session, err := s.runtime.Sessions().CreateSession(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(session); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("POST")

	router.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := s.runtime.Sessions().GetSessions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(sessions); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("GET")

	router.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		session, err := s.runtime.Sessions().GetSession(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, err.Error(), statusFromError(err))
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(session); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("GET")

	router.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.runtime.Sessions().DeleteSession(r.Context(), mux.Vars(r)["id"]); err != nil {
			http.Error(w, err.Error(), statusFromError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods("DELETE")

	router.HandleFunc("/sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		transcript, err := s.runtime.Sessions().GetTranscript(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, err.Error(), statusFromError(err))
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(transcript); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("GET")

	// Answers one user message and streams the reply as plain text chunks.
	router.HandleFunc("/sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")

		flusher, canFlush := w.(http.Flusher)
		var streamCallback engine.StreamCallback
		if canFlush {
			streamCallback = func(ctx context.Context, text string) error {
				if _, err := w.Write([]byte(text)); err != nil {
					return err
				}
				flusher.Flush()
				return nil
			}
		}

		res, err := s.runtime.Respond(r.Context(), mux.Vars(r)["id"], req.Message, streamCallback)
		if err != nil {
			// Too late for an error status once chunks have been written.
			s.logger.Error("failed to respond", "sessionId", mux.Vars(r)["id"], "error", err)
			if !canFlush {
				http.Error(w, err.Error(), statusFromError(err))
			}
			return
		}

		if !canFlush {
			w.Write([]byte(res.Text))
		}
	}).Methods("POST")
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidParams), errors.Is(err, errors.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
