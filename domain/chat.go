package domain

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one stored conversation turn. Time is a display timestamp
// captured when the turn was appended, not a machine timestamp.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time"`
}

// ChatMessage is one entry of the model input. The system instruction is
// synthesized per request and never stored, so this is a separate type from
// the persisted Message.
type ChatMessage struct {
	Role    Role
	Content string
}

// ChatRequest carries everything needed to run one streamed exchange.
type ChatRequest struct {
	SessionID  string
	Message    string
	ProviderID string
	ModelName  string
}

type EventType string

const (
	EventToken EventType = "token"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// StreamEvent is one incremental event of a streamed exchange. EventDone and
// EventError are terminal: no further events follow either of them.
type StreamEvent struct {
	Type  EventType
	Token string
	Err   string
}

// TokenStream yields incremental text fragments from a backend model.
// Recv returns io.EOF when the stream ends naturally. Fragment granularity
// is backend-defined.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// StreamingClient abstracts one provider's streaming completion capability.
// A client is scoped to exactly one StreamChat call.
type StreamingClient interface {
	StreamChat(ctx context.Context, messages []ChatMessage) (TokenStream, error)
}

// ClientFactory resolves a provider id and model name into a fresh
// StreamingClient.
type ClientFactory interface {
	CreateClient(providerID, modelName string) (StreamingClient, error)
}
