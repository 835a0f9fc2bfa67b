// Package client is a Go consumer of the chat relay API: session and model
// management over plain JSON, and streamed chat decoded incrementally from
// the event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mystudio/chat-relay/adapters/eventstream"
	"github.com/mystudio/chat-relay/adapters/registry"
	"github.com/mystudio/chat-relay/domain"
)

// Client talks to one chat relay server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: http.DefaultClient}
}

// NewWithHTTPClient allows a custom transport (timeouts, proxies).
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: hc}
}

// ChatRequest identifies the session, message and backend of one exchange.
type ChatRequest struct {
	SessionID  string `json:"sessionId"`
	Message    string `json:"message"`
	ProviderID string `json:"providerId"`
	ModelName  string `json:"modelName,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Models fetches the full provider catalog.
func (c *Client) Models(ctx context.Context) ([]registry.ProviderInfo, error) {
	var out []registry.ProviderInfo
	return out, c.getJSON(ctx, "/api/models", &out)
}

// AvailableModels fetches only providers with a configured credential.
func (c *Client) AvailableModels(ctx context.Context) ([]registry.ProviderInfo, error) {
	var out []registry.ProviderInfo
	return out, c.getJSON(ctx, "/api/models/available", &out)
}

// Sessions lists session summaries, most recently active first.
func (c *Client) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var out []domain.SessionSummary
	return out, c.getJSON(ctx, "/api/sessions", &out)
}

// CreateSession registers a new session; title may be empty.
func (c *Client) CreateSession(ctx context.Context, title string) (domain.SessionSummary, error) {
	var out domain.SessionSummary
	body, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return out, err
	}
	env, err := c.do(ctx, http.MethodPost, "/api/sessions", body)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(env.Data, &out)
}

// DeleteSession removes a session, reporting whether it existed.
func (c *Client) DeleteSession(ctx context.Context, id string) (bool, error) {
	env, err := c.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil)
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

// SessionMessages fetches a session's full history. An unknown id yields
// domain.ErrSessionNotFound.
func (c *Client) SessionMessages(ctx context.Context, id string) ([]domain.Message, error) {
	var out []domain.Message
	return out, c.getJSON(ctx, "/api/sessions/"+id+"/messages", &out)
}

// Chat runs one streamed exchange. onToken is invoked once per fragment, in
// arrival order; Chat returns the fully assembled reply on completion, the
// accumulated text plus an error on a terminal error frame, and ctx.Err()
// if ctx is cancelled mid-stream. A stream that ends without a terminal
// frame returns whatever text was accumulated.
func (c *Client) Chat(ctx context.Context, req ChatRequest, onToken func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		if jerr := json.NewDecoder(resp.Body).Decode(&env); jerr == nil && env.Message != "" {
			return "", fmt.Errorf("chat request failed: %s", env.Message)
		}
		return "", fmt.Errorf("chat request failed: http %d", resp.StatusCode)
	}

	dec := eventstream.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				switch ev.Type {
				case domain.EventToken:
					if onToken != nil {
						onToken(ev.Token)
					}
				case domain.EventDone:
					return dec.Text(), nil
				case domain.EventError:
					return dec.Text(), errors.New(ev.Err)
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return dec.Text(), ctx.Err()
			}
			if err == io.EOF {
				// Stream ended without a terminal frame; treat as an
				// incomplete success.
				return dec.Text(), nil
			}
			return dec.Text(), err
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return env, domain.ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		if env.Message != "" {
			return env, fmt.Errorf("http %d: %s", resp.StatusCode, env.Message)
		}
		return env, fmt.Errorf("http %d", resp.StatusCode)
	}
	return env, nil
}
