package sqlite

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/kmorrow/ava/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpFile := t.TempDir() + "/test.db"
	s, err := New(tmpFile)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(tmpFile)
	})
	return s
}

func TestAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := &domain.Message{
			ID:   uuid.New().String(),
			Role: domain.RoleUser,
			Text: fmt.Sprintf("message %d", i),
		}
		if err := s.Append(ctx, msg); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	msgs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("List len = %d, want 5", len(msgs))
	}
	// Listed in append order.
	for i, m := range msgs {
		want := fmt.Sprintf("message %d", i)
		if m.Text != want {
			t.Errorf("msgs[%d].Text = %q, want %q", i, m.Text, want)
		}
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &domain.Message{ID: "m-1", Role: domain.RoleModel, Text: ""}
	if err := s.Append(ctx, msg); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msg.Text = "final reply"
	msg.Image = "data:image/png;base64,AAAA"
	if err := s.Update(ctx, msg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	msgs, _ := s.List(ctx)
	if len(msgs) != 1 {
		t.Fatalf("List len = %d, want 1", len(msgs))
	}
	if msgs[0].Text != "final reply" {
		t.Errorf("Text = %q, want %q", msgs[0].Text, "final reply")
	}
	if msgs[0].Image != "data:image/png;base64,AAAA" {
		t.Errorf("Image = %q, want stored data URI", msgs[0].Image)
	}
}

func TestUpdateMissingMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, &domain.Message{ID: "nope", Text: "x"})
	if err == nil {
		t.Error("Update of missing message succeeded, want error")
	}
}

func TestErrorFlagRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &domain.Message{ID: "m-1", Role: domain.RoleModel, Text: "oops"}
	if err := s.Append(ctx, msg); err != nil {
		t.Fatalf("Append: %v", err)
	}
	msg.IsError = true
	if err := s.Update(ctx, msg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	msgs, _ := s.List(ctx)
	if !msgs[0].IsError {
		t.Error("IsError flag was not persisted")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Append(ctx, &domain.Message{ID: "m-1", Role: domain.RoleUser, Text: "hi"})
	s.Append(ctx, &domain.Message{ID: "m-2", Role: domain.RoleModel, Text: "hey"})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	msgs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("List after Clear len = %d, want 0", len(msgs))
	}
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch := s.Subscribe()

	s.Append(ctx, &domain.Message{ID: "m-1", Role: domain.RoleUser, Text: "hello"})

	select {
	case id := <-ch:
		if id != "m-1" {
			t.Errorf("subscriber got %q, want %q", id, "m-1")
		}
	default:
		t.Error("subscriber did not receive event")
	}
}
