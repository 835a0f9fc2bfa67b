package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mystudio/chat-relay/domain"
)

// Error response bodies are capped at 1MB.
const maxErrorBodyBytes = 1 << 20

const sseDoneToken = "[DONE]"

// openAICompatClient streams chat completions from any OpenAI-compatible
// endpoint (OpenAI, DeepSeek, DashScope).
type openAICompatClient struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *openAICompatClient) StreamChat(ctx context.Context, messages []domain.ChatMessage) (domain.TokenStream, error) {
	payload := chatCompletionRequest{
		Model:    c.model,
		Messages: make([]wireMessage, 0, len(messages)),
		Stream:   true,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", c.provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, apiError(c.provider, resp.StatusCode, resp.Body)
	}

	return &openAICompatStream{
		provider: c.provider,
		body:     resp.Body,
		dec:      newSSEDecoder(resp.Body),
	}, nil
}

type openAICompatStream struct {
	provider string
	body     io.ReadCloser
	dec      *sseDecoder
	done     bool
}

func (s *openAICompatStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		data, err := s.dec.next()
		if err != nil {
			return "", err
		}
		if data == sseDoneToken {
			s.done = true
			return "", io.EOF
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("%s: decode chunk: %w", s.provider, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		// Finish chunks carry an empty delta; the caller skips empty
		// fragments.
		return chunk.Choices[0].Delta.Content, nil
	}
}

func (s *openAICompatStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.body.Close()
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func apiError(provider string, statusCode int, body io.Reader) error {
	raw, err := io.ReadAll(&io.LimitedReader{R: body, N: maxErrorBodyBytes})
	if err != nil {
		return fmt.Errorf("%s: http %d (failed to read error body: %v)", provider, statusCode, err)
	}

	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && strings.TrimSpace(er.Error.Message) != "" {
		return fmt.Errorf("%s: http %d: %s", provider, statusCode, strings.TrimSpace(er.Error.Message))
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return fmt.Errorf("%s: http %d: %s", provider, statusCode, msg)
}
