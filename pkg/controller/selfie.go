package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kmorrow/ava/pkg/dataurl"
	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/model"
	"github.com/kmorrow/ava/pkg/persona"
	"github.com/kmorrow/ava/pkg/refimage"
)

// SelfieGenerator produces out-of-band selfies triggered by chat markers or
// explicit requests. It shares no session state with the chat path, so it
// may run concurrently with any chat call and a failure here can never
// corrupt the conversation.
type SelfieGenerator struct {
	provider model.Provider

	mu   sync.RWMutex
	refs *refimage.Pool
}

// NewSelfieGenerator creates a generator over the given reference pool,
// which may be nil.
func NewSelfieGenerator(provider model.Provider, refs *refimage.Pool) *SelfieGenerator {
	return &SelfieGenerator{provider: provider, refs: refs}
}

// SetPool swaps the reference pool, e.g. on config reload.
func (g *SelfieGenerator) SetPool(refs *refimage.Pool) {
	g.mu.Lock()
	g.refs = refs
	g.mu.Unlock()
}

// Generate composes the selfie prompt for the scene description and invokes
// the image capability. Every failure (reference fetch, decode, backend
// call) is logged and reported as no image: this path is best-effort and
// must not break the primary conversation. The result is a data-URI, empty
// when no image was produced.
func (g *SelfieGenerator) Generate(ctx context.Context, description string, tier domain.Tier, apiKey string) string {
	parts := g.buildParts(ctx, description)

	res, err := g.provider.GenerateImage(ctx, tier, parts, apiKey)
	if err != nil {
		slog.Error("selfie generation failed", "description", description, "error", err)
		return ""
	}
	if !res.HasImage() {
		slog.Warn("selfie generation returned no image", "description", description)
		return ""
	}
	return dataurl.Format(res.MIMEType, res.Data)
}

// buildParts assembles the request content: at most one reference image
// (chosen at random, fetched in optimized form), then the composed prompt.
// A fetch failure drops the reference rather than aborting.
func (g *SelfieGenerator) buildParts(ctx context.Context, description string) []domain.Part {
	prompt := domain.TextPart(persona.SelfiePrompt(description))

	g.mu.RLock()
	pool := g.refs
	g.mu.RUnlock()

	if pool == nil || pool.Empty() {
		return []domain.Part{prompt}
	}
	url, ok := pool.PickOne()
	if !ok {
		return []domain.Part{prompt}
	}
	mimeType, data, err := pool.Fetch(ctx, url)
	if err != nil {
		slog.Warn("reference image fetch failed, proceeding without it", "url", url, "error", err)
		return []domain.Part{prompt}
	}
	return []domain.Part{domain.InlinePart(mimeType, data), prompt}
}
