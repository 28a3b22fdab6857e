// Package trigger parses the in-band selfie marker protocol out of model
// text. The marker syntax lives here so routing logic never touches it.
package trigger

import (
	"regexp"
	"strings"
)

// DefaultDescription is the scene used when a marker carries no description.
const DefaultDescription = "looking at the camera"

// markerPattern matches [SELFIE] or [SELFIE: <description>]. The keyword is
// case-sensitive; the description is a non-greedy capture up to the closing
// bracket.
var markerPattern = regexp.MustCompile(`\[SELFIE(?::\s*(.*?))?\]`)

// Result is the outcome of scanning one piece of model text.
type Result struct {
	// Text is the visible text with every marker occurrence removed.
	Text string
	// Description is the scene to generate. Empty unless Triggered.
	Description string
	// Triggered reports whether any marker was present.
	Triggered bool
}

// Parse scans model output for the selfie marker. Only the first marker's
// description is honored, but every occurrence of the marker syntax is
// stripped from the visible text, with surrounding whitespace trimmed. A
// bare marker yields DefaultDescription.
func Parse(text string) Result {
	m := markerPattern.FindStringSubmatch(text)
	if m == nil {
		return Result{Text: text}
	}
	desc := strings.TrimSpace(m[1])
	if desc == "" {
		desc = DefaultDescription
	}
	visible := strings.TrimSpace(markerPattern.ReplaceAllString(text, ""))
	return Result{Text: visible, Description: desc, Triggered: true}
}
