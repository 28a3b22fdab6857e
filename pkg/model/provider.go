package model

import (
	"context"

	"github.com/kmorrow/ava/pkg/domain"
)

// StreamFunc receives the cumulative reply text after each chunk arrives.
// Invocations are strictly in arrival order; each call carries the full
// accumulated text so far, never just the delta.
type StreamFunc func(cumulative string)

// ImageResult is the normalized outcome of an image generation or edit call:
// at most one inline image plus whatever commentary the model produced.
type ImageResult struct {
	// MIMEType and Data hold the inline image, if one was returned.
	MIMEType string
	Data     []byte
	// Text is the model's commentary, possibly empty.
	Text string
}

// HasImage reports whether the result carries inline image data.
func (r ImageResult) HasImage() bool {
	return len(r.Data) > 0
}

// ChatSession is a live conversation handle bound to one model tier. It owns
// the turn history; sends append to it. Sessions are not safe for concurrent
// senders.
type ChatSession interface {
	// Tier returns the capability tier the session was created with.
	Tier() domain.Tier

	// Send issues a buffered chat completion and returns the final text,
	// empty if the model produced none.
	Send(ctx context.Context, parts []domain.Part) (string, error)

	// SendStream issues a streaming chat completion, invoking onText with
	// the cumulative text after every non-empty chunk, and returns the
	// final accumulated text.
	SendStream(ctx context.Context, parts []domain.Part, onText StreamFunc) (string, error)
}

// Provider represents a multi-modal backend (e.g. Gemini) exposing chat and
// image capabilities.
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini").
	Name() string

	// NewChat constructs a session for the given tier seeded with prior
	// turns. history must be backend-legal (user-first, strictly
	// alternating); an illegal history is rejected without any network
	// call so callers can fall back to an empty one.
	NewChat(ctx context.Context, tier domain.Tier, history []domain.Turn, apiKey string) (ChatSession, error)

	// GenerateImage runs a single image generation or edit call. parts may
	// combine text with inline reference or source images.
	GenerateImage(ctx context.Context, tier domain.Tier, parts []domain.Part, apiKey string) (ImageResult, error)
}
