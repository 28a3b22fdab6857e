package domain

// Role defines the author of a message or turn.
type Role string

const (
	// RoleUser indicates content authored by the user.
	RoleUser Role = "user"
	// RoleModel indicates content authored by the model. The backend turn
	// format uses "model" rather than "assistant".
	RoleModel Role = "model"
)

// Route identifies which backend capability a user message is dispatched to.
type Route string

const (
	// RouteEditImage sends the attached image plus the message to the image
	// model for editing.
	RouteEditImage Route = "edit-image"
	// RouteGenerateImage sends the message to the image model as a fresh
	// generation prompt.
	RouteGenerateImage Route = "generate-image"
	// RouteChat sends the message through the live chat session.
	RouteChat Route = "chat"
)
