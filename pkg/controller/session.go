package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/history"
	"github.com/kmorrow/ava/pkg/model"
)

// ensureSession returns the live chat session, rebuilding it when absent or
// created with a different tier. Calling it again with the same tier is a
// no-op that returns the existing session.
func (c *Controller) ensureSession(ctx context.Context, tier domain.Tier, msgs []domain.Message, apiKey string) (model.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Tier() == tier {
		return c.session, nil
	}
	return c.rebuildSessionLocked(ctx, tier, msgs, apiKey)
}

// Reset discards the live session and rebuilds it from the given history.
// An empty tier keeps the current default.
func (c *Controller) Reset(ctx context.Context, tier domain.Tier, msgs []domain.Message, apiKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tier == "" {
		tier = c.tier
	}
	_, err := c.rebuildSessionLocked(ctx, domain.NormalizeTier(tier), msgs, apiKey)
	return err
}

// rebuildSessionLocked reconciles the client log into a backend-legal seed
// and constructs a new session. If construction fails, it falls back to an
// empty history with the same configuration, so the controller is never left
// without a usable session unless even that fails. Callers hold c.mu.
func (c *Controller) rebuildSessionLocked(ctx context.Context, tier domain.Tier, msgs []domain.Message, apiKey string) (model.ChatSession, error) {
	slog.Info("rebuilding chat session", "tier", tier, "historyLen", len(msgs))

	turns := history.Reconcile(msgs)
	session, err := c.provider.NewChat(ctx, tier, turns, apiKey)
	if err != nil {
		slog.Error("seeding session from history failed, starting empty", "error", err)
		session, err = c.provider.NewChat(ctx, tier, nil, apiKey)
		if err != nil {
			return nil, fmt.Errorf("creating empty session: %w", err)
		}
	}
	c.session = session
	return session, nil
}
