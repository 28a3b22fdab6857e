package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/trigger"
)

// --- History ---

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.messages.List(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.jsonResponse(w, http.StatusOK, msgs)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.Clear(r.Context()); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	// Start the next turn from a blank slate.
	if err := s.chat.Reset(r.Context(), "", nil, ""); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Selfie ---

func (s *Server) handleSelfie(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string      `json:"description"`
		Tier        domain.Tier `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Description == "" {
		req.Description = trigger.DefaultDescription
	}

	image := s.chat.GenerateSelfie(r.Context(), req.Description, req.Tier, "")
	if image != "" {
		msg := &domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleModel,
			Image:     image,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.messages.Append(r.Context(), msg); err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err)
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"image": image})
}

// --- Image edit ---

func (s *Server) handleEditImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err)
		return
	}
	if req.Image == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}

	reply, err := s.chat.EditImageOnce(r.Context(), req.Image, req.Prompt, "")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"text":  reply.Text,
		"image": reply.Image,
	})
}
