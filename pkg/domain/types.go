package domain

import "time"

// Message is one entry in the client-facing conversation log. It is the unit
// the store persists and the server exchanges with clients; images travel as
// data-URI strings on both roles.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"` // data:<mime>;base64,<payload>
	IsError   bool      `json:"is_error,omitempty"`
	IsLoading bool      `json:"is_loading,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InlineBlob is decoded binary content plus its mime type.
type InlineBlob struct {
	MIMEType string
	Data     []byte
}

// Part is one element of a turn's ordered content. Exactly one of Text or
// Inline is set.
type Part struct {
	Text   string
	Inline *InlineBlob
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart builds an inline binary part.
func InlinePart(mimeType string, data []byte) Part {
	return Part{Inline: &InlineBlob{MIMEType: mimeType, Data: data}}
}

// Turn is one role-tagged group of content parts in the backend-legal
// conversation format. A legal turn sequence starts with RoleUser and
// strictly alternates roles.
type Turn struct {
	Role  Role
	Parts []Part
}
