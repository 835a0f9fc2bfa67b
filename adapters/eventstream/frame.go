// Package eventstream implements the application-level streaming protocol
// between the chat relay and its consumers: one line-delimited frame per
// event, carried over any persistent byte stream (SSE response body,
// websocket text frames).
package eventstream

// Frame is the wire payload of one streamed event. Exactly one of the three
// fields is meaningful: a token fragment, the completion marker, or a
// human-readable error. Done and Error frames are terminal.
type Frame struct {
	Token string `json:"token,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

const dataPrefix = "data:"
