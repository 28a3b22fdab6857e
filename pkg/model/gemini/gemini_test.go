package gemini

import (
	"context"
	"errors"
	"iter"
	"reflect"
	"testing"

	"github.com/kmorrow/ava/pkg/domain"
	"google.golang.org/genai"
)

func textChunk(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func chunkStream(resps ...*genai.GenerateContentResponse) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, r := range resps {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestCollectStreamCumulativeCallbacks(t *testing.T) {
	seq := chunkStream(
		textChunk("Hi"),
		textChunk(""),
		textChunk(" there"),
	)

	var calls []string
	text, err := collectStream(seq, func(cumulative string) {
		calls = append(calls, cumulative)
	})
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if text != "Hi there" {
		t.Errorf("final text = %q, want %q", text, "Hi there")
	}
	want := []string{"Hi", "Hi there"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("callback sequence = %v, want %v", calls, want)
	}
}

func TestCollectStreamNilCallback(t *testing.T) {
	text, err := collectStream(chunkStream(textChunk("ok")), nil)
	if err != nil {
		t.Fatalf("collectStream: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want %q", text, "ok")
	}
}

func TestCollectStreamPropagatesError(t *testing.T) {
	boom := errors.New("backend unavailable")
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(textChunk("partial"), nil) {
			return
		}
		yield(nil, boom)
	}

	_, err := collectStream(seq, nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "internal reasoning", Thought: true},
				{Text: "visible answer"},
			}}},
		},
	}
	if got := responseText(resp); got != "visible answer" {
		t.Errorf("responseText = %q, want %q", got, "visible answer")
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q, want empty", got)
	}
}

func TestImageResult(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here's your look! "},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{9}}},
			}}},
		},
	}
	res := imageResult(resp)
	if !res.HasImage() {
		t.Fatal("result has no image")
	}
	if res.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want %q (first image wins)", res.MIMEType, "image/png")
	}
	if res.Text != "Here's your look!" {
		t.Errorf("Text = %q, want %q", res.Text, "Here's your look!")
	}

	empty := imageResult(nil)
	if empty.HasImage() || empty.Text != "" {
		t.Errorf("imageResult(nil) = %+v, want zero value", empty)
	}
}

func TestToContents(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.RoleUser, Parts: []domain.Part{
			domain.InlinePart("image/png", []byte{1}),
			domain.TextPart("what do you think?"),
		}},
		{Role: domain.RoleModel, Parts: []domain.Part{domain.TextPart("love it")}},
	}
	contents := toContents(turns)
	if len(contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q; want user, model", contents[0].Role, contents[1].Role)
	}
	if contents[0].Parts[0].InlineData == nil {
		t.Error("inline part not converted to InlineData")
	}
	if contents[0].Parts[1].Text != "what do you think?" {
		t.Errorf("text part = %q", contents[0].Parts[1].Text)
	}
}

func TestChatConfigTiers(t *testing.T) {
	lite := chatConfig(domain.TierLite)
	if lite.ThinkingConfig == nil || lite.ThinkingConfig.ThinkingBudget == nil || *lite.ThinkingConfig.ThinkingBudget != 0 {
		t.Error("lite tier should disable thinking")
	}
	standard := chatConfig(domain.TierStandard)
	if standard.ThinkingConfig != nil {
		t.Error("standard tier should not set a thinking budget")
	}
	if standard.Temperature == nil || *standard.Temperature != 1.0 {
		t.Error("temperature should be fixed at 1.0")
	}
	if standard.SystemInstruction == nil || len(standard.SystemInstruction.Parts) == 0 {
		t.Error("system instruction missing")
	}
	if len(standard.SafetySettings) != 5 {
		t.Errorf("got %d safety settings, want 5", len(standard.SafetySettings))
	}
	for _, s := range standard.SafetySettings {
		if s.Threshold != genai.HarmBlockThresholdBlockNone {
			t.Errorf("category %s threshold = %v, want BLOCK_NONE", s.Category, s.Threshold)
		}
	}
}

func TestNewChatRejectsIllegalHistory(t *testing.T) {
	p := New("test-key")
	illegal := []domain.Turn{
		{Role: domain.RoleModel, Parts: []domain.Part{domain.TextPart("hi")}},
	}
	if _, err := p.NewChat(context.Background(), domain.TierStandard, illegal, ""); err == nil {
		t.Error("NewChat accepted a model-first history")
	}
}
