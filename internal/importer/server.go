package importer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/hurttlocker/courseintel/internal/score"
)

// Server exposes the consumer import contract over HTTP:
//
//	POST /api/import  {"tasks": [...]}  ->  {"ok": true, "imported": n}
//	GET  /healthz                       ->  {"ok": true}
//	GET  /api/actions                   ->  {"actions": [...]}
type Server struct {
	store *JSONStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewServer creates a consumer server persisting to the given store.
func NewServer(store *JSONStore) *Server {
	return &Server{store: store, now: time.Now}
}

// Handler returns the HTTP handler for the consumer endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/actions", s.handleActions)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type importRequest struct {
	Tasks []score.Task `json:"tasks"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok": false, "error": "invalid payload",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "error": err.Error(),
		})
		return
	}

	combined, admitted := ImportBatch(state.Actions, req.Tasks, s.now())
	state.Actions = combined
	if err := s.store.Save(state); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "imported": admitted})
}

func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": state.Actions})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
