package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 64 << 20

func (s *Server) registerDocumentRoutes(router *mux.Router) {
	router.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing 'file' form field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		fileBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result, err := s.runtime.IngestFile(
			r.Context(),
			r.FormValue("session_id"),
			fileBytes,
			header.Filename,
			r.FormValue("collection"),
		)
		if err != nil {
			http.Error(w, err.Error(), statusFromError(err))
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("POST")

	router.HandleFunc("/collections", func(w http.ResponseWriter, r *http.Request) {
		collections, err := s.runtime.Documents().ListCollections(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(collections); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}).Methods("GET")

	router.HandleFunc("/collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.runtime.Documents().DeleteCollection(r.Context(), mux.Vars(r)["name"]); err != nil {
			http.Error(w, err.Error(), statusFromError(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods("DELETE")
}
