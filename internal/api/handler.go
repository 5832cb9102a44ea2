package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mewlark/interest-bridge/internal/biz/repo"
	"github.com/mewlark/interest-bridge/internal/biz/usecase"
)

// PersonaAdmin is the persona surface the API exposes
type PersonaAdmin interface {
	repo.PersonaRepo
	Personas() []string
}

// Server provides the HTTP admin API for interest-mcp and operators
type Server struct {
	history  repo.HistoryRepo
	admin    *usecase.AdminView
	personas PersonaAdmin

	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(history repo.HistoryRepo, admin *usecase.AdminView, personas PersonaAdmin, port int) *Server {
	return &Server{
		history:  history,
		admin:    admin,
		personas: personas,
		port:     port,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: s.Handler(),
	}

	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// Handler builds the route mux; split out so tests can drive it directly
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Session history
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/history/", s.handleHistory)

	// Persona bindings
	mux.HandleFunc("/api/personas", s.handlePersonas)
	mux.HandleFunc("/api/persona/", s.handlePersonaItem)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{"sessions": s.history.Sessions()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, map[string]interface{}{
			"session_id": sessionID,
			"turns":      s.history.All(sessionID),
			"view":       s.admin.View(sessionID),
		})
	case http.MethodDelete:
		s.writeJSON(w, map[string]interface{}{
			"session_id": sessionID,
			"result":     s.admin.Clear(sessionID),
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.personas == nil {
		http.Error(w, "personas not configured", http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]interface{}{"personas": s.personas.Personas()})
}

func (s *Server) handlePersonaItem(w http.ResponseWriter, r *http.Request) {
	if s.personas == nil {
		http.Error(w, "personas not configured", http.StatusNotFound)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/persona/")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		name, err := s.personas.Binding(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"session_id": sessionID, "persona": name})
	case http.MethodPut:
		var body struct {
			Persona string `json:"persona"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Persona == "" {
			http.Error(w, "missing persona name", http.StatusBadRequest)
			return
		}
		if err := s.personas.Bind(r.Context(), sessionID, body.Persona); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"session_id": sessionID, "persona": body.Persona})
	case http.MethodDelete:
		if err := s.personas.Unbind(r.Context(), sessionID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"session_id": sessionID, "persona": ""})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("[API] Failed to encode response: %v\n", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
