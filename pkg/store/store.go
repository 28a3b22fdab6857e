package store

import (
	"context"

	"github.com/kmorrow/ava/pkg/domain"
)

// MessageStore persists the conversation log so it survives process reloads.
// The log is append-ordered; reconciliation into backend-legal turns happens
// at read time, not here.
type MessageStore interface {
	// Append adds a message to the end of the log. The caller sets ID and
	// CreatedAt.
	Append(ctx context.Context, msg *domain.Message) error

	// List returns every message in append order.
	List(ctx context.Context) ([]domain.Message, error)

	// Update rewrites a stored message in place, keyed by ID. Used to
	// replace a loading placeholder with the final text or image, or to
	// flag a message as failed.
	Update(ctx context.Context, msg *domain.Message) error

	// Clear removes every message, resetting the conversation.
	Clear(ctx context.Context) error

	// Subscribe returns a channel that emits a message ID whenever the log
	// changes. Used by the server to push updates to connected clients.
	Subscribe() <-chan string
}
