// Package intent classifies user messages by keyword so the controller can
// route them to the right backend capability.
package intent

import (
	"strings"

	"github.com/kmorrow/ava/pkg/domain"
)

var generationKeywords = []string{
	"generate",
	"create",
	"draw",
	"imagine",
	"render",
	"visualize",
	"make an image",
	"image of",
	"picture of",
}

var editKeywords = []string{
	"edit",
	"change",
	"filter",
	"style",
	"make it",
	"turn it",
	"add",
	"remove",
	"background",
	"modify",
	"restyle",
}

// IsGenerationIntent reports whether the message asks for a new image.
// Matching is case-insensitive and substring-based, so it errs toward
// routing to generation rather than missing a request.
func IsGenerationIntent(text string) bool {
	return containsAny(text, generationKeywords)
}

// IsEditIntent reports whether the message asks to modify an existing image.
func IsEditIntent(text string) bool {
	return containsAny(text, editKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DecideRoute picks the backend capability for a message. An attachment
// with edit intent goes to image editing, a bare message with generation
// intent goes to image generation, and everything else is a chat turn.
// force overrides the keyword check for whichever image route the
// attachment state allows.
func DecideRoute(text string, hasAttachment, force bool) domain.Route {
	switch {
	case hasAttachment && (force || IsEditIntent(text)):
		return domain.RouteEditImage
	case !hasAttachment && (force || IsGenerationIntent(text)):
		return domain.RouteGenerateImage
	default:
		return domain.RouteChat
	}
}
