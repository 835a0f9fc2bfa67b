package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mystudio/chat-relay/domain"
)

func frame(t *testing.T, payload any) string {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return "data: " + string(b) + "\n\n"
}

func TestChatCollectsTokens(t *testing.T) {
	var gotBody ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path=%q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frame(t, map[string]string{"token": "Hel"}))
		io.WriteString(w, frame(t, map[string]string{"token": "lo"}))
		io.WriteString(w, frame(t, map[string]bool{"done": true}))
	}))
	defer srv.Close()

	var tokens []string
	reply, err := New(srv.URL).Chat(context.Background(), ChatRequest{
		SessionID: "s1", Message: "hi", ProviderID: "deepseek",
	}, func(tok string) { tokens = append(tokens, tok) })
	if err != nil {
		t.Fatalf("Chat() err=%v", err)
	}
	if reply != "Hello" {
		t.Fatalf("reply=%q", reply)
	}
	if len(tokens) != 2 || tokens[0] != "Hel" || tokens[1] != "lo" {
		t.Fatalf("tokens=%v", tokens)
	}
	if gotBody.SessionID != "s1" || gotBody.ProviderID != "deepseek" {
		t.Fatalf("server saw %+v", gotBody)
	}
}

func TestChatSurfacesErrorFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frame(t, map[string]string{"token": "par"}))
		io.WriteString(w, frame(t, map[string]string{"error": "backend fell over"}))
	}))
	defer srv.Close()

	reply, err := New(srv.URL).Chat(context.Background(), ChatRequest{
		SessionID: "s1", Message: "hi", ProviderID: "deepseek",
	}, nil)
	if err == nil || err.Error() != "backend fell over" {
		t.Fatalf("err=%v", err)
	}
	if reply != "par" {
		t.Fatalf("reply=%q, want partial text", reply)
	}
}

func TestChatRejectionUsesEnvelopeMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "unknown provider: mystery"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), ChatRequest{
		SessionID: "s1", Message: "hi", ProviderID: "mystery",
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown provider: mystery") {
		t.Fatalf("err=%v", err)
	}
}

func TestChatCancellationMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, frame(t, map[string]string{"token": "par"}))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the stream open until the client gives up.
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the first fragment has been observed.
	reply, err := New(srv.URL).Chat(ctx, ChatRequest{
		SessionID: "s1", Message: "hi", ProviderID: "deepseek",
	}, func(string) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if reply != "par" {
		t.Fatalf("reply=%q, want text accumulated before cancel", reply)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now().UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sessions":
			var req struct {
				Title string `json:"title"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": domain.SessionSummary{
					ID: "abc", Title: req.Title, CreatedAt: now, UpdatedAt: now,
				},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/sessions/abc/messages":
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": []domain.Message{
					{Role: domain.RoleUser, Content: "hi", Time: "14:05"},
				},
			})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/sessions/"):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "session not found"})
		case r.Method == http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "deleted"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	created, err := c.CreateSession(ctx, "notes")
	if err != nil || created.ID != "abc" || created.Title != "notes" {
		t.Fatalf("created=%+v err=%v", created, err)
	}

	msgs, err := c.SessionMessages(ctx, "abc")
	if err != nil || len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("msgs=%+v err=%v", msgs, err)
	}

	if _, err := c.SessionMessages(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err=%v, want ErrSessionNotFound", err)
	}

	existed, err := c.DeleteSession(ctx, "abc")
	if err != nil || !existed {
		t.Fatalf("existed=%v err=%v", existed, err)
	}
}
