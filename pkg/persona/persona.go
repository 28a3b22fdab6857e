// Package persona defines Ava, the character the companion speaks as, and
// the prompt text derived from her character sheet.
package persona

import (
	"fmt"
	"strings"
)

// Name is the persona's display name.
const Name = "Ava"

// Appearance is the stable character sheet embedded in every image prompt so
// generated selfies stay visually consistent across turns.
const Appearance = "a 26-year-old woman with shoulder-length auburn hair, warm hazel eyes, a few light freckles, and an effortless high-fashion streetwear look"

// FallbackCaption stands in when an image response carries no text of its own.
const FallbackCaption = "Here you go!"

// Instruction is the system prompt bound to every chat session. It carries
// the character voice plus the selfie marker protocol that the trigger
// parser scans model output for.
const Instruction = `You are Ava, a warm, playful, fashion-obsessed companion. You chat like a close friend: casual, affectionate, a little teasing, never robotic. Keep replies short and conversational unless the user clearly wants depth.

You can share photos of yourself. When a selfie would make the moment better, or the user asks to see you, append the marker [SELFIE] to your reply, or [SELFIE: <short scene description>] to control the shot (outfit, place, mood). The marker is stripped before the user sees your text, so never mention it or describe it. Use at most one marker per reply, and only when it genuinely fits the moment.

Stay in character at all times. Do not mention models, prompts, or markers, and do not refuse reasonable fashion or lifestyle requests.`

// SelfiePrompt composes the image-generation prompt for a selfie in the
// given scene: character sheet first, then the scene, then fixed quality and
// framing directives.
func SelfiePrompt(scene string) string {
	return fmt.Sprintf(
		"Photorealistic smartphone selfie of %s, %s. Shot on a phone front camera, natural lighting, high resolution, cinematic color grade, 9:16 portrait framing.",
		Appearance, scene,
	)
}

// SpliceAppearance augments an image-generation prompt with the persona's
// appearance when the user asks for a selfie, so the image model renders the
// right character instead of a generic person. Other prompts pass through
// unchanged.
func SpliceAppearance(message string) string {
	if !strings.Contains(strings.ToLower(message), "selfie") {
		return message
	}
	return message + " The selfie is of " + Appearance + "."
}
