package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kmorrow/ava/pkg/dataurl"
	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/intent"
	"github.com/kmorrow/ava/pkg/model"
	"github.com/kmorrow/ava/pkg/persona"
	"github.com/kmorrow/ava/pkg/refimage"
	"github.com/kmorrow/ava/pkg/trigger"
)

// Controller routes each user message to the backend capability it needs
// (image edit, image generation, or chat) and owns the live chat session.
//
// Sends run outside the session lock, so a concurrent Reset or tier change
// can replace the session while a send is in flight; callers that care must
// serialize resets against sends.
type Controller struct {
	provider model.Provider
	selfies  *SelfieGenerator

	mu      sync.Mutex
	session model.ChatSession
	tier    domain.Tier
}

// New creates a Controller. tier is the default capability tier; refs is the
// selfie reference pool and may be nil.
func New(provider model.Provider, refs *refimage.Pool, tier domain.Tier) *Controller {
	return &Controller{
		provider: provider,
		selfies:  NewSelfieGenerator(provider, refs),
		tier:     domain.NormalizeTier(tier),
	}
}

// Request is one user turn presented to the router.
type Request struct {
	// Text is the user's message.
	Text string

	// Tier overrides the default capability tier when non-empty.
	Tier domain.Tier

	// History is the full client message log, used to rebuild the chat
	// session when it is absent or the tier changed.
	History []domain.Message

	// Attachment is an optional data-URI image.
	Attachment string

	// ForceImage forces an image route regardless of keyword intent.
	ForceImage bool

	// APIKey overrides the configured credential when non-empty.
	APIKey string

	// OnText, when set, receives the cumulative reply text after every
	// streamed chunk on the chat route.
	OnText model.StreamFunc
}

// Reply is the normalized result of a routed message.
type Reply struct {
	// Route is the capability that handled the message.
	Route domain.Route

	// Text is the visible reply text, marker-free.
	Text string

	// Image is a data-URI when an image route produced one.
	Image string

	// SelfieRequested reports whether the model asked for a follow-up
	// selfie; SelfieDescription is the scene it asked for.
	SelfieRequested   bool
	SelfieDescription string
}

// SendMessage routes one user message. Backend failures are logged and
// returned unmodified; the caller surfaces them as an error-flagged message.
func (c *Controller) SendMessage(ctx context.Context, req Request) (*Reply, error) {
	route := intent.DecideRoute(req.Text, req.Attachment != "", req.ForceImage)
	slog.Debug("routing message", "route", route, "hasAttachment", req.Attachment != "", "force", req.ForceImage)

	switch route {
	case domain.RouteEditImage:
		return c.editImage(ctx, req)
	case domain.RouteGenerateImage:
		return c.generateImage(ctx, req)
	default:
		return c.chat(ctx, req)
	}
}

// editImage sends the attachment plus the message as an edit prompt.
func (c *Controller) editImage(ctx context.Context, req Request) (*Reply, error) {
	mimeType, data, err := dataurl.Parse(req.Attachment)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}
	parts := []domain.Part{
		domain.InlinePart(mimeType, data),
		domain.TextPart(req.Text),
	}

	res, err := c.provider.GenerateImage(ctx, c.requestTier(req), parts, req.APIKey)
	if err != nil {
		slog.Error("image edit failed", "error", err)
		return nil, err
	}
	return imageReply(domain.RouteEditImage, res), nil
}

// generateImage creates a fresh image from the message. A message that
// mentions a selfie gets the persona's appearance spliced into the prompt.
func (c *Controller) generateImage(ctx context.Context, req Request) (*Reply, error) {
	prompt := persona.SpliceAppearance(req.Text)

	res, err := c.provider.GenerateImage(ctx, c.requestTier(req), []domain.Part{domain.TextPart(prompt)}, req.APIKey)
	if err != nil {
		slog.Error("image generation failed", "error", err)
		return nil, err
	}
	return imageReply(domain.RouteGenerateImage, res), nil
}

// chat sends a conversational turn through the live session and scans the
// reply for a selfie trigger.
func (c *Controller) chat(ctx context.Context, req Request) (*Reply, error) {
	session, err := c.ensureSession(ctx, c.requestTier(req), req.History, req.APIKey)
	if err != nil {
		return nil, err
	}

	parts := chatParts(req)
	var text string
	if req.OnText != nil {
		text, err = session.SendStream(ctx, parts, req.OnText)
	} else {
		text, err = session.Send(ctx, parts)
	}
	if err != nil {
		slog.Error("chat completion failed", "error", err)
		return nil, err
	}

	parsed := trigger.Parse(text)
	return &Reply{
		Route:             domain.RouteChat,
		Text:              parsed.Text,
		SelfieRequested:   parsed.Triggered,
		SelfieDescription: parsed.Description,
	}, nil
}

// chatParts builds the content for a chat turn: inline attachment first when
// present, then the text. An undecodable attachment is dropped so one bad
// image cannot fail the whole turn.
func chatParts(req Request) []domain.Part {
	var parts []domain.Part
	if req.Attachment != "" {
		if mimeType, data, err := dataurl.Parse(req.Attachment); err == nil {
			parts = append(parts, domain.InlinePart(mimeType, data))
		} else {
			slog.Warn("dropping undecodable attachment", "error", err)
		}
	}
	parts = append(parts, domain.TextPart(req.Text))
	return parts
}

// imageReply converts an image result, substituting the fixed caption when
// the model returned no commentary.
func imageReply(route domain.Route, res model.ImageResult) *Reply {
	reply := &Reply{Route: route, Text: res.Text}
	if reply.Text == "" {
		reply.Text = persona.FallbackCaption
	}
	if res.HasImage() {
		reply.Image = dataurl.Format(res.MIMEType, res.Data)
	}
	return reply
}

// requestTier resolves the tier for one request.
func (c *Controller) requestTier(req Request) domain.Tier {
	if req.Tier != "" {
		return domain.NormalizeTier(req.Tier)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// SetTier changes the default capability tier. The live session is replaced
// lazily: the next chat send rebuilds it if the tier differs.
func (c *Controller) SetTier(tier domain.Tier) {
	tier = domain.NormalizeTier(tier)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tier != tier {
		slog.Info("capability tier changed", "tier", tier)
		c.tier = tier
	}
}

// SetReferencePool swaps the selfie reference pool, e.g. on config reload.
func (c *Controller) SetReferencePool(refs *refimage.Pool) {
	c.selfies.SetPool(refs)
}

// GenerateSelfie runs the out-of-band selfie path. An empty tier uses the
// default. It returns a data-URI, or empty when no image could be produced.
func (c *Controller) GenerateSelfie(ctx context.Context, description string, tier domain.Tier, apiKey string) string {
	if tier == "" {
		c.mu.Lock()
		tier = c.tier
		c.mu.Unlock()
	}
	return c.selfies.Generate(ctx, description, domain.NormalizeTier(tier), apiKey)
}

// EditImageOnce is a single-shot edit call kept for backward compatibility.
// It routes through SendMessage with the override flag forced and no history.
//
// Deprecated: use SendMessage with ForceImage set.
func (c *Controller) EditImageOnce(ctx context.Context, attachment, prompt, apiKey string) (*Reply, error) {
	return c.SendMessage(ctx, Request{
		Text:       prompt,
		Attachment: attachment,
		ForceImage: true,
		APIKey:     apiKey,
	})
}
