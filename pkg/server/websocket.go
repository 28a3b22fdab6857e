package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kmorrow/ava/pkg/controller"
	"github.com/kmorrow/ava/pkg/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// errorText replaces the reply when a turn fails. The message is flagged
// so the session seeder skips it on rebuild.
const errorText = "Something went wrong, please try again."

// inbound is one user turn sent over the chat socket.
type inbound struct {
	Text       string      `json:"text"`
	Attachment string      `json:"attachment,omitempty"`
	Force      bool        `json:"force,omitempty"`
	Tier       domain.Tier `json:"tier,omitempty"`
}

// outbound is a server push. Type is one of "history", "message",
// "delta" or "clear".
type outbound struct {
	Type     string           `json:"type"`
	Message  *domain.Message  `json:"message,omitempty"`
	Messages []domain.Message `json:"messages,omitempty"`
	Text     string           `json:"text,omitempty"`
}

// wsConn serializes writes: the reader loop streams deltas while the
// update goroutine pushes store changes.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	conn := &wsConn{conn: ws}

	done := make(chan struct{})
	updates := s.messages.Subscribe()

	// Send the current log so the client can render immediately.
	msgs, err := s.messages.List(r.Context())
	if err != nil {
		slog.Error("Failed initial history sync", "error", err)
		return
	}
	if err := conn.WriteJSON(outbound{Type: "history", Messages: msgs}); err != nil {
		slog.Error("Failed to write history", "error", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)

	// Writer goroutine: pushes store changes to the client.
	go func() {
		defer wg.Done()
		defer ws.Close()

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case id := <-updates:
				if err := s.pushUpdate(conn, id); err != nil {
					slog.Error("Failed to push update", "error", err)
					return
				}
			case <-ticker.C:
				if err := conn.Ping(); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop: each inbound message runs one full turn.
	for {
		var in inbound
		if err := ws.ReadJSON(&in); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			slog.Error("WebSocket read error", "error", err)
			break
		}

		if strings.TrimSpace(in.Text) == "" && in.Attachment == "" {
			continue
		}
		s.processTurn(r.Context(), conn, in)
	}

	close(done)
	wg.Wait()
}

// pushUpdate sends the changed message to the client. An empty id means
// the log was cleared.
func (s *Server) pushUpdate(conn *wsConn, id string) error {
	if id == "" {
		return conn.WriteJSON(outbound{Type: "clear"})
	}

	msgs, err := s.messages.List(context.Background())
	if err != nil {
		return err
	}
	for i := range msgs {
		if msgs[i].ID == id {
			return conn.WriteJSON(outbound{Type: "message", Message: &msgs[i]})
		}
	}
	// Already gone (e.g. cleared between the event and the read).
	return nil
}

// processTurn persists the user message, runs it through the controller
// and persists the reply. Streaming text goes straight to this client;
// everyone else sees the final message via the store subscription.
func (s *Server) processTurn(ctx context.Context, conn *wsConn, in inbound) {
	history, err := s.messages.List(ctx)
	if err != nil {
		slog.Error("Failed to load history", "error", err)
		return
	}

	userMsg := &domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Text:      in.Text,
		Image:     in.Attachment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Append(ctx, userMsg); err != nil {
		slog.Error("Failed to append user message", "error", err)
		return
	}

	reply, err := s.chat.SendMessage(ctx, controller.Request{
		Text:       in.Text,
		Tier:       in.Tier,
		History:    history,
		Attachment: in.Attachment,
		ForceImage: in.Force,
		OnText: func(cumulative string) {
			if err := conn.WriteJSON(outbound{Type: "delta", Text: cumulative}); err != nil {
				slog.Debug("Failed to push delta", "error", err)
			}
		},
	})
	if err != nil {
		errMsg := &domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleModel,
			Text:      errorText,
			IsError:   true,
			CreatedAt: time.Now().UTC(),
		}
		if appendErr := s.messages.Append(ctx, errMsg); appendErr != nil {
			slog.Error("Failed to append error message", "error", appendErr)
		}
		return
	}

	replyMsg := &domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleModel,
		Text:      reply.Text,
		Image:     reply.Image,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Append(ctx, replyMsg); err != nil {
		slog.Error("Failed to append reply", "error", err)
		return
	}

	if reply.SelfieRequested {
		go s.followUpSelfie(reply.SelfieDescription, in.Tier)
	}
}

// followUpSelfie generates the image promised by a reply and appends it
// as its own message. It runs detached from the turn that requested it:
// a failed generation drops the image, never the conversation.
func (s *Server) followUpSelfie(description string, tier domain.Tier) {
	ctx := context.Background()

	image := s.chat.GenerateSelfie(ctx, description, tier, "")
	if image == "" {
		return
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleModel,
		Image:     image,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		slog.Error("Failed to append selfie message", "error", err)
	}
}
