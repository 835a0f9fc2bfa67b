package sessions

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mystudio/chat-relay/domain"
)

const (
	// DefaultTitle is the placeholder title until the first user message
	// replaces it.
	DefaultTitle = "New chat"

	// titleRuneLimit caps derived titles; longer first messages are cut and
	// marked with an ellipsis.
	titleRuneLimit = 30

	// messageTimeLayout is the display timestamp attached to each turn.
	messageTimeLayout = "15:04"
)

type session struct {
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	seq       int64
	messages  []domain.Message
}

// Store is the in-memory session store. All state lives for the process
// lifetime only; there is no expiry or eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	nextSeq  int64
}

func New() *Store {
	return &Store{sessions: make(map[string]*session)}
}

var _ domain.SessionStore = (*Store)(nil)

func (s *Store) List() []domain.SessionSummary {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	summaries := make([]domain.SessionSummary, len(all))
	for i, sess := range all {
		summaries[i] = summarize(sess)
	}
	seqs := make([]int64, len(all))
	for i, sess := range all {
		seqs[i] = sess.seq
	}
	s.mu.RUnlock()

	// Newest activity first; equal timestamps fall back to creation order.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt != summaries[j].UpdatedAt {
			return summaries[i].UpdatedAt > summaries[j].UpdatedAt
		}
		return seqs[i] < seqs[j]
	})
	return summaries
}

func (s *Store) Create(title string) domain.SessionSummary {
	if title == "" {
		title = DefaultTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.newSessionLocked(uuid.NewString(), title)
	return summarize(sess)
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *Store) Messages(id string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snapshot(sess.messages), nil
}

func (s *Store) AppendUserTurn(id, content string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = s.newSessionLocked(id, DefaultTitle)
	}

	if len(sess.messages) == 0 {
		sess.title = deriveTitle(content)
	}
	sess.messages = append(sess.messages, domain.Message{
		Role:    domain.RoleUser,
		Content: content,
		Time:    time.Now().Format(messageTimeLayout),
	})
	sess.updatedAt = time.Now()

	return snapshot(sess.messages)
}

func (s *Store) AppendAssistantTurn(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		// Session was deleted while the reply streamed; drop the turn.
		return
	}
	sess.messages = append(sess.messages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: content,
		Time:    time.Now().Format(messageTimeLayout),
	})
	sess.updatedAt = time.Now()
}

func (s *Store) newSessionLocked(id, title string) *session {
	now := time.Now()
	sess := &session{
		id:        id,
		title:     title,
		createdAt: now,
		updatedAt: now,
		seq:       s.nextSeq,
	}
	s.nextSeq++
	s.sessions[id] = sess
	return sess
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "..."
	}
	return content
}

func summarize(sess *session) domain.SessionSummary {
	return domain.SessionSummary{
		ID:           sess.id,
		Title:        sess.title,
		CreatedAt:    sess.createdAt.UnixMilli(),
		UpdatedAt:    sess.updatedAt.UnixMilli(),
		MessageCount: len(sess.messages),
	}
}

func snapshot(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	return out
}
