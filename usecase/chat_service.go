package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mystudio/chat-relay/domain"
	"github.com/mystudio/chat-relay/utils/log"
)

const systemPrompt = "You are a helpful assistant. Answer the user's questions concisely, professionally and helpfully."

// contextWindow caps how many stored turns precede the new user message in
// the model input.
const contextWindow = 40

// ChatService orchestrates one streamed exchange: it resolves the session,
// builds the bounded context window, drives the backend stream and appends
// the finished turns back into the store.
type ChatService struct {
	store   domain.SessionStore
	clients domain.ClientFactory
}

func NewChatService(store domain.SessionStore, clients domain.ClientFactory) *ChatService {
	return &ChatService{store: store, clients: clients}
}

// Chat validates the request, persists the user turn and opens the backend
// stream. Validation and client-construction failures are returned
// synchronously; everything after that arrives on the returned channel as
// zero or more token events followed by exactly one terminal event. The
// channel closes after the terminal event, or without one if ctx is
// cancelled.
//
// The user turn is persisted before the backend is contacted, so a failed
// call still advances the session's context for future turns.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId and message are required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		return nil, fmt.Errorf("%w: providerId is required", domain.ErrInvalidRequest)
	}

	history := s.store.AppendUserTurn(req.SessionID, req.Message)

	client, err := s.clients.CreateClient(req.ProviderID, req.ModelName)
	if err != nil {
		return nil, err
	}

	input := buildContext(history)
	log.WithCtx(ctx).Info("opening backend stream",
		zap.String("provider", req.ProviderID),
		zap.String("model", req.ModelName),
		zap.Int("input_messages", len(input)))

	events := make(chan domain.StreamEvent)
	go s.stream(ctx, client, input, req.SessionID, events)
	return events, nil
}

// buildContext assembles the model input: the synthesized system
// instruction, the most recent stored turns preceding the new user message,
// and the new user message itself. history always ends with the turn just
// appended by Chat.
func buildContext(history []domain.Message) []domain.ChatMessage {
	input := make([]domain.ChatMessage, 0, len(history)+1)
	input = append(input, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})

	prior := history[:len(history)-1]
	if len(prior) > contextWindow {
		prior = prior[len(prior)-contextWindow:]
	}
	for _, m := range prior {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		input = append(input, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	last := history[len(history)-1]
	input = append(input, domain.ChatMessage{Role: last.Role, Content: last.Content})
	return input
}

func (s *ChatService) stream(ctx context.Context, client domain.StreamingClient, input []domain.ChatMessage, sessionID string, events chan<- domain.StreamEvent) {
	defer close(events)

	stream, err := client.StreamChat(ctx, input)
	if err != nil {
		log.WithCtx(ctx).Warn("backend stream failed to open", zap.Error(err))
		s.emit(ctx, events, domain.StreamEvent{Type: domain.EventError, Err: err.Error()})
		return
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		token, err := stream.Recv()
		if err == io.EOF {
			// Natural end: persist the full reply, empty replies included.
			s.store.AppendAssistantTurn(sessionID, reply.String())
			s.emit(ctx, events, domain.StreamEvent{Type: domain.EventDone})
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled: tear down without a terminal event and discard
				// the partial reply.
				log.WithCtx(ctx).Info("chat cancelled",
					zap.Int("discarded_chars", reply.Len()))
				return
			}
			log.WithCtx(ctx).Warn("backend stream failed", zap.Error(err))
			s.emit(ctx, events, domain.StreamEvent{Type: domain.EventError, Err: err.Error()})
			return
		}
		if token == "" {
			continue
		}

		reply.WriteString(token)
		if !s.emit(ctx, events, domain.StreamEvent{Type: domain.EventToken, Token: token}) {
			return
		}
	}
}

// emit delivers ev unless the consumer is gone; it reports whether the
// event was accepted.
func (s *ChatService) emit(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
