package domain

// SessionSummary is the listing view of a session. Timestamps are Unix
// milliseconds.
type SessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// SessionStore owns all conversation state. Message histories are
// append-only; deleting a whole session is the only removal path.
type SessionStore interface {
	// List returns summaries sorted by UpdatedAt descending.
	List() []SessionSummary

	// Create registers a new empty session. An empty title falls back to a
	// placeholder.
	Create(title string) SessionSummary

	// Delete removes a session, reporting whether it existed.
	Delete(id string) bool

	// Messages returns a copy of the session's ordered history, or
	// ErrSessionNotFound.
	Messages(id string) ([]Message, error)

	// AppendUserTurn records a user message, creating the session if it does
	// not exist yet. The session title is derived from the first message.
	// It returns a snapshot of the history including the new turn.
	AppendUserTurn(id, content string) []Message

	// AppendAssistantTurn records a completed assistant reply. Appending to
	// a session deleted mid-stream is a no-op.
	AppendAssistantTurn(id, content string)
}
