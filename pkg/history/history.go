// Package history reconciles the client-side message log into the strictly
// alternating turn sequence the backend chat API accepts.
package history

import (
	"github.com/kmorrow/ava/pkg/dataurl"
	"github.com/kmorrow/ava/pkg/domain"
)

// placeholderText stands in for a model turn that has no text, and closes a
// sequence that would otherwise end on a user turn.
const placeholderText = "..."

// imageAnnotation rides along when a model-generated image is re-presented
// as user content. The backend turn format cannot carry binary content on a
// model turn, so the image moves to a synthetic user turn with this note.
const imageAnnotation = "(this is the image you just generated and sent to me)"

// Reconcile converts an ordered client message log into a backend-legal turn
// sequence. Error-flagged messages are dropped, model-authored images are
// re-presented as synthetic user turns, adjacent same-role turns are merged,
// and the ends are fixed up so the result starts with a user turn and
// strictly alternates. Malformed images are skipped rather than failing the
// whole pass.
func Reconcile(msgs []domain.Message) []domain.Turn {
	var turns []domain.Turn
	for _, msg := range msgs {
		if msg.IsError {
			continue
		}
		switch msg.Role {
		case domain.RoleUser:
			parts := userParts(msg)
			if len(parts) == 0 {
				continue
			}
			turns = append(turns, domain.Turn{Role: domain.RoleUser, Parts: parts})
		case domain.RoleModel:
			text := msg.Text
			if text == "" {
				text = placeholderText
			}
			turns = append(turns, domain.Turn{
				Role:  domain.RoleModel,
				Parts: []domain.Part{domain.TextPart(text)},
			})
			if mimeType, data, err := dataurl.Parse(msg.Image); err == nil {
				turns = append(turns, domain.Turn{
					Role: domain.RoleUser,
					Parts: []domain.Part{
						domain.InlinePart(mimeType, data),
						domain.TextPart(imageAnnotation),
					},
				})
			}
		}
	}
	turns = mergeAdjacent(turns)
	turns = trimLeadingModel(turns)
	return closeTrailingUser(turns)
}

// userParts builds the part list for a user message: decoded image first,
// then text. Either may be absent; an undecodable image is skipped.
func userParts(msg domain.Message) []domain.Part {
	var parts []domain.Part
	if mimeType, data, err := dataurl.Parse(msg.Image); err == nil {
		parts = append(parts, domain.InlinePart(mimeType, data))
	}
	if msg.Text != "" {
		parts = append(parts, domain.TextPart(msg.Text))
	}
	return parts
}

func mergeAdjacent(turns []domain.Turn) []domain.Turn {
	var merged []domain.Turn
	for _, t := range turns {
		if n := len(merged); n > 0 && merged[n-1].Role == t.Role {
			merged[n-1].Parts = append(merged[n-1].Parts, t.Parts...)
			continue
		}
		merged = append(merged, t)
	}
	return merged
}

func trimLeadingModel(turns []domain.Turn) []domain.Turn {
	for len(turns) > 0 && turns[0].Role != domain.RoleUser {
		turns = turns[1:]
	}
	return turns
}

func closeTrailingUser(turns []domain.Turn) []domain.Turn {
	if n := len(turns); n > 0 && turns[n-1].Role == domain.RoleUser {
		turns = append(turns, domain.Turn{
			Role:  domain.RoleModel,
			Parts: []domain.Part{domain.TextPart(placeholderText)},
		})
	}
	return turns
}

// Legal reports whether a turn sequence satisfies the backend's structural
// contract: empty, or user-first with strictly alternating roles.
func Legal(turns []domain.Turn) bool {
	for i, t := range turns {
		if i == 0 {
			if t.Role != domain.RoleUser {
				return false
			}
			continue
		}
		if t.Role == turns[i-1].Role {
			return false
		}
	}
	return true
}
