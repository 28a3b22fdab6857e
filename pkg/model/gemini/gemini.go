package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/kmorrow/ava/pkg/domain"
	"github.com/kmorrow/ava/pkg/history"
	"github.com/kmorrow/ava/pkg/model"
	"github.com/kmorrow/ava/pkg/persona"
	"google.golang.org/genai"
)

// chatModels maps capability tiers to chat model IDs.
var chatModels = map[domain.Tier]string{
	domain.TierLite:     "gemini-2.5-flash-lite",
	domain.TierStandard: "gemini-2.5-flash",
	domain.TierPro:      "gemini-2.5-pro",
}

// imageModel handles generation and editing on every tier.
const imageModel = "gemini-2.5-flash-image-preview"

// Provider implements model.Provider using the Google Gen AI SDK.
type Provider struct {
	defaultKey string

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// Verify interface compliance.
var _ model.Provider = (*Provider)(nil)

// New creates a Gemini provider. defaultKey is used by calls that supply no
// explicit credential; it may be empty, in which case calls are attempted
// anyway and rejected by the backend.
func New(defaultKey string) *Provider {
	if defaultKey == "" {
		slog.Warn("no Gemini API key configured; backend calls will likely fail")
	}
	return &Provider{
		defaultKey: defaultKey,
		clients:    make(map[string]*genai.Client),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// resolveKey applies the credential order: explicit key, then the configured
// default, then empty with a warning.
func (p *Provider) resolveKey(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p.defaultKey == "" {
		slog.Warn("proceeding without an API key")
	}
	return p.defaultKey
}

// client returns a cached client for the key, creating one on first use.
func (p *Provider) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	p.clients[apiKey] = c
	return c, nil
}

// NewChat constructs a chat session for the tier, seeded with prior turns.
// An illegal history is rejected before any network work so the caller can
// retry with an empty one.
func (p *Provider) NewChat(ctx context.Context, tier domain.Tier, turns []domain.Turn, apiKey string) (model.ChatSession, error) {
	tier = domain.NormalizeTier(tier)
	slog.Debug("Gemini.NewChat", "tier", tier, "turns", len(turns))

	if !history.Legal(turns) {
		return nil, errors.New("history is not backend-legal")
	}
	client, err := p.client(ctx, p.resolveKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &chatSession{
		client:   client,
		modelID:  chatModels[tier],
		tier:     tier,
		config:   chatConfig(tier),
		contents: toContents(turns),
	}, nil
}

// GenerateImage runs a single image generation or edit call at a fixed 9:16
// aspect ratio with the same permissive safety thresholds as chat.
func (p *Provider) GenerateImage(ctx context.Context, tier domain.Tier, parts []domain.Part, apiKey string) (model.ImageResult, error) {
	slog.Debug("Gemini.GenerateImage", "tier", tier, "parts", len(parts))

	client, err := p.client(ctx, p.resolveKey(apiKey))
	if err != nil {
		return model.ImageResult{}, err
	}
	config := &genai.GenerateContentConfig{
		SafetySettings:     permissiveSafety(),
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: "9:16",
		},
	}
	contents := []*genai.Content{genai.NewContentFromParts(toParts(parts), genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, imageModel, contents, config)
	if err != nil {
		return model.ImageResult{}, fmt.Errorf("image generation: %w", err)
	}
	return imageResult(resp), nil
}

// chatConfig builds the per-session generation config: fixed decoding
// parameters, the persona system instruction, and permissive safety
// thresholds. The lite tier disables extended reasoning to cut latency.
func chatConfig(tier domain.Tier) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](1.0),
		TopP:        genai.Ptr[float32](0.95),
		TopK:        genai.Ptr[float32](40),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: persona.Instruction}},
		},
		SafetySettings: permissiveSafety(),
	}
	if tier == domain.TierLite {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr[int32](0),
		}
	}
	return config
}

// permissiveSafety disables blocking across all harm categories. The product
// needs this to avoid false-positive rejection of fashion and artistic
// content.
func permissiveSafety() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryCivicIntegrity,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

// chatSession replays its accumulated contents on every call, which is how
// the stateless backend API models a conversation.
type chatSession struct {
	client   *genai.Client
	modelID  string
	tier     domain.Tier
	config   *genai.GenerateContentConfig
	contents []*genai.Content
}

var _ model.ChatSession = (*chatSession)(nil)

func (s *chatSession) Tier() domain.Tier { return s.tier }

// Send issues a buffered completion and returns the final text.
func (s *chatSession) Send(ctx context.Context, parts []domain.Part) (string, error) {
	contents := append(s.contents, genai.NewContentFromParts(toParts(parts), genai.RoleUser))
	resp, err := s.client.Models.GenerateContent(ctx, s.modelID, contents, s.config)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	text := responseText(resp)
	s.commit(contents, text)
	return text, nil
}

// SendStream issues a streaming completion, invoking onText with the
// cumulative text after every chunk that adds any.
func (s *chatSession) SendStream(ctx context.Context, parts []domain.Part, onText model.StreamFunc) (string, error) {
	contents := append(s.contents, genai.NewContentFromParts(toParts(parts), genai.RoleUser))
	seq := s.client.Models.GenerateContentStream(ctx, s.modelID, contents, s.config)
	text, err := collectStream(seq, onText)
	if err != nil {
		return "", fmt.Errorf("streaming chat completion: %w", err)
	}
	s.commit(contents, text)
	return text, nil
}

// commit records the exchange in the session history. Failed sends never
// reach here, so the history only ever holds completed turns.
func (s *chatSession) commit(contents []*genai.Content, replyText string) {
	if replyText == "" {
		replyText = "..."
	}
	s.contents = append(contents, genai.NewContentFromText(replyText, genai.RoleModel))
}

// collectStream drains a response stream strictly in arrival order,
// invoking onText with the accumulated text after every non-empty chunk.
func collectStream(seq iter.Seq2[*genai.GenerateContentResponse, error], onText model.StreamFunc) (string, error) {
	var full strings.Builder
	for resp, err := range seq {
		if err != nil {
			return "", err
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onText != nil {
			onText(full.String())
		}
	}
	return full.String(), nil
}

// responseText concatenates the text parts of a response, skipping thought
// output.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// imageResult normalizes a response into at most one inline image plus the
// model's text commentary.
func imageResult(resp *genai.GenerateContentResponse) model.ImageResult {
	var res model.ImageResult
	if resp == nil {
		return res
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				if !res.HasImage() {
					res.MIMEType = part.InlineData.MIMEType
					res.Data = part.InlineData.Data
				}
				continue
			}
			if part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}
	res.Text = strings.TrimSpace(text.String())
	return res
}

// toContents converts reconciled turns to the SDK content format.
func toContents(turns []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(t.Role),
			Parts: toParts(t.Parts),
		})
	}
	return contents
}

func toParts(parts []domain.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Inline != nil {
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: p.Inline.MIMEType,
					Data:     p.Inline.Data,
				},
			})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return out
}
