package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	"github.com/mystudio/chat-relay/domain"
)

// geminiClient streams completions through the genai SDK.
type geminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func (g *geminiClient) StreamChat(ctx context.Context, messages []domain.ChatMessage) (domain.TokenStream, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.httpClient,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating genai client: %w", err)
	}

	var cfg *genai.GenerateContentConfig
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{
					Parts: []*genai.Part{{Text: m.Content}},
				},
			}
		case domain.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		case domain.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan geminiChunk)
	go func() {
		defer close(out)
		for resp, err := range client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			select {
			case out <- geminiChunk{resp: resp, err: err}:
				if err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &geminiStream{out: out, cancel: cancel}, nil
}

type geminiChunk struct {
	resp *genai.GenerateContentResponse
	err  error
}

type geminiStream struct {
	out    <-chan geminiChunk
	cancel context.CancelFunc
}

func (s *geminiStream) Recv() (string, error) {
	chunk, ok := <-s.out
	if !ok {
		return "", io.EOF
	}
	if chunk.err != nil {
		return "", fmt.Errorf("gemini: %w", chunk.err)
	}
	return chunk.resp.Text(), nil
}

func (s *geminiStream) Close() error {
	s.cancel()
	return nil
}
