package sessions

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mystudio/chat-relay/domain"
)

func TestCreateYieldsDistinctSessions(t *testing.T) {
	s := New()

	a := s.Create("")
	b := s.Create("")

	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, both %q", a.ID)
	}
	if a.Title != DefaultTitle || b.Title != DefaultTitle {
		t.Fatalf("expected placeholder titles, got %q and %q", a.Title, b.Title)
	}
	if a.MessageCount != 0 {
		t.Fatalf("MessageCount=%d, want 0", a.MessageCount)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	sess := s.Create("temp")

	if !s.Delete(sess.ID) {
		t.Fatal("first delete returned false")
	}
	if s.Delete(sess.ID) {
		t.Fatal("second delete returned true")
	}
	if s.Delete("never-existed") {
		t.Fatal("delete of unknown id returned true")
	}
	if got := len(s.List()); got != 0 {
		t.Fatalf("len(List())=%d after delete, want 0", got)
	}
}

func TestMessagesDistinguishesMissingFromEmpty(t *testing.T) {
	s := New()
	sess := s.Create("empty")

	msgs, err := s.Messages(sess.ID)
	if err != nil {
		t.Fatalf("Messages() err=%v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("len(msgs)=%d, want 0", len(msgs))
	}

	if _, err := s.Messages("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Messages(missing) err=%v, want ErrSessionNotFound", err)
	}
}

func TestTitleDerivedFromFirstMessage(t *testing.T) {
	s := New()

	long := strings.Repeat("x", 45)
	s.AppendUserTurn("long", long)
	title := titleOf(t, s, "long")
	if want := strings.Repeat("x", 30) + "..."; title != want {
		t.Fatalf("title=%q, want %q", title, want)
	}

	s.AppendUserTurn("short", "hey there!")
	if title := titleOf(t, s, "short"); title != "hey there!" {
		t.Fatalf("title=%q, want %q", title, "hey there!")
	}

	// Only the first message sets the title.
	s.AppendUserTurn("short", "a completely different message")
	if title := titleOf(t, s, "short"); title != "hey there!" {
		t.Fatalf("title changed on second append: %q", title)
	}
}

func TestAppendGrowsHistoryMonotonically(t *testing.T) {
	s := New()

	for i := 0; i < 5; i++ {
		s.AppendUserTurn("conv", fmt.Sprintf("question %d", i))
		s.AppendAssistantTurn("conv", fmt.Sprintf("answer %d", i))

		msgs, err := s.Messages("conv")
		if err != nil {
			t.Fatalf("Messages() err=%v", err)
		}
		if len(msgs) != (i+1)*2 {
			t.Fatalf("len(msgs)=%d after %d rounds", len(msgs), i+1)
		}
	}

	msgs, _ := s.Messages("conv")
	for i, m := range msgs {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("msgs[%d].Role=%q, want %q", i, m.Role, want)
		}
	}
}

func TestAssistantTurnAfterDeleteIsDropped(t *testing.T) {
	s := New()
	s.AppendUserTurn("gone", "hello")
	s.Delete("gone")

	s.AppendAssistantTurn("gone", "too late")

	if _, err := s.Messages("gone"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("deleted session resurrected: err=%v", err)
	}
}

func TestListSortsByRecentActivity(t *testing.T) {
	s := New()

	first := s.Create("first")
	time.Sleep(2 * time.Millisecond)
	second := s.Create("second")
	time.Sleep(2 * time.Millisecond)

	list := s.List()
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected %q first, got %+v", second.ID, list)
	}

	s.AppendUserTurn(first.ID, "bump")
	list = s.List()
	if list[0].ID != first.ID {
		t.Fatalf("expected %q first after append, got %q", first.ID, list[0].ID)
	}
	if list[0].UpdatedAt < list[1].UpdatedAt {
		t.Fatal("list not sorted by updatedAt descending")
	}
}

func TestConcurrentAppendsCreateOneSession(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AppendUserTurn("shared", fmt.Sprintf("msg %d", i))
		}(i)
	}
	wg.Wait()

	if got := len(s.List()); got != 1 {
		t.Fatalf("len(List())=%d, want 1", got)
	}
	msgs, err := s.Messages("shared")
	if err != nil {
		t.Fatalf("Messages() err=%v", err)
	}
	if len(msgs) != 32 {
		t.Fatalf("len(msgs)=%d, want 32", len(msgs))
	}
}

func TestMessagesReturnsACopy(t *testing.T) {
	s := New()
	s.AppendUserTurn("conv", "original")

	msgs, _ := s.Messages("conv")
	msgs[0].Content = "mutated"

	again, _ := s.Messages("conv")
	if again[0].Content != "original" {
		t.Fatal("stored message mutated through returned slice")
	}
}

func titleOf(t *testing.T, s *Store, id string) string {
	t.Helper()
	for _, sum := range s.List() {
		if sum.ID == id {
			return sum.Title
		}
	}
	t.Fatalf("session %q not listed", id)
	return ""
}
