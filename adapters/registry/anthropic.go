package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mystudio/chat-relay/domain"
)

const (
	anthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// anthropicClient streams completions from Anthropic's Messages API. System
// turns are lifted into the top-level system field, which is the only place
// the API accepts them.
type anthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Stream    bool          `json:"stream"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) StreamChat(ctx context.Context, messages []domain.ChatMessage) (domain.TokenStream, error) {
	payload := anthropicRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		Stream:    true,
	}
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			if payload.System != "" {
				payload.System += "\n"
			}
			payload.System += m.Content
			continue
		}
		payload.Messages = append(payload.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("claude: marshal request: %w", err)
	}

	endpoint := c.endpoint
	if endpoint == "" {
		endpoint = anthropicEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("claude: do request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, apiError("claude", resp.StatusCode, resp.Body)
	}

	return &anthropicStream{body: resp.Body, dec: newSSEDecoder(resp.Body)}, nil
}

type anthropicStream struct {
	body io.ReadCloser
	dec  *sseDecoder
	done bool
}

func (s *anthropicStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		data, err := s.dec.next()
		if err != nil {
			return "", err
		}

		var ev anthropicEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return "", fmt.Errorf("claude: decode event: %w", err)
		}

		switch ev.Type {
		case "content_block_delta":
			return ev.Delta.Text, nil
		case "message_stop":
			s.done = true
			return "", io.EOF
		case "error":
			return "", fmt.Errorf("claude: %s: %s", ev.Error.Type, ev.Error.Message)
		default:
			// message_start, content_block_start/stop, message_delta, ping.
			continue
		}
	}
}

func (s *anthropicStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}
