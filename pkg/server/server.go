package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kmorrow/ava/pkg/controller"
	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/store"
)

// ChatService is the slice of the controller the server drives.
type ChatService interface {
	SendMessage(ctx context.Context, req controller.Request) (*controller.Reply, error)
	GenerateSelfie(ctx context.Context, description string, tier domain.Tier, apiKey string) string
	Reset(ctx context.Context, tier domain.Tier, msgs []domain.Message, apiKey string) error
	EditImageOnce(ctx context.Context, attachment, prompt, apiKey string) (*controller.Reply, error)
}

var _ ChatService = (*controller.Controller)(nil)

// Server serves the REST API and chat websocket for the companion.
type Server struct {
	messages store.MessageStore
	chat     ChatService
	srv      *http.Server
}

// New creates a new Server.
func New(messages store.MessageStore, chat ChatService) *Server {
	return &Server{
		messages: messages,
		chat:     chat,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Conversation log
	mux.HandleFunc("GET /api/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)

	// Out-of-band selfie generation
	mux.HandleFunc("POST /api/selfie", s.handleSelfie)

	// Single-shot image edit (legacy clients)
	mux.HandleFunc("POST /api/edit", s.handleEditImage)

	// WebSocket chat
	mux.HandleFunc("/api/chat", s.handleChatWebSocket)

	return s.corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API Error", "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
