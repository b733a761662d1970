package state

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

func mustApply(t *testing.T, m *Manager, event events.EventType, data string) {
	t.Helper()
	if _, err := m.Apply(events.Envelope{Event: event, Data: json.RawMessage(data)}); err != nil {
		t.Fatalf("apply %s: %v", event, err)
	}
}

func TestLikeUpdatesLastWriteWins(t *testing.T) {
	m := NewManager()

	// Any update sequence for one room must leave the last event's values.
	updates := []struct {
		count  int
		likers []string
	}{
		{1, []string{"a"}},
		{3, []string{"a", "b", "c"}},
		{2, []string{"a", "c"}},
	}
	for _, u := range updates {
		likersJSON, _ := json.Marshal(u.likers)
		mustApply(t, m, events.EventUpdateLikes,
			fmt.Sprintf(`{"quiz_id": 7, "likes_count": %d, "likes_users": %s}`, u.count, likersJSON))
	}

	ls, ok := m.Likes("7")
	if !ok {
		t.Fatal("expected like state for room 7")
	}
	if ls.Count != 2 {
		t.Errorf("count = %d, want 2", ls.Count)
	}
	if len(ls.Likers) != 2 || ls.Likers[0] != "a" || ls.Likers[1] != "c" {
		t.Errorf("likers = %v, want [a c]", ls.Likers)
	}
}

func TestLikeCountAuthoritativeOverLikersLength(t *testing.T) {
	m := NewManager()
	// Malformed-but-well-typed payload: count disagrees with likers length.
	mustApply(t, m, events.EventUpdateLikes, `{"quiz_id": 1, "likes_count": 5, "likes_users": ["a"]}`)

	ls, _ := m.Likes("1")
	if ls.Count != 5 {
		t.Errorf("count = %d, want 5 (count is authoritative)", ls.Count)
	}
	if len(ls.Likers) != 1 {
		t.Errorf("likers rendered as given, got %v", ls.Likers)
	}
}

func TestCommentsAppendWithoutDedup(t *testing.T) {
	m := NewManager()
	payload := `{"quiz_id": 2, "username": "alice", "text": "hi"}`
	mustApply(t, m, events.EventNewComment, payload)
	mustApply(t, m, events.EventNewComment, payload)

	comments := m.Comments("2")
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2 (duplicate delivery is visible)", len(comments))
	}
}

func TestActiveUsersFullReplacement(t *testing.T) {
	m := NewManager()
	mustApply(t, m, events.EventUpdateTimes, `{"users": {"alice": 10, "bob": 20}}`)
	mustApply(t, m, events.EventUpdateTimes, `{"users": {"carol": 5}}`)

	users := m.ActiveUsers()
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1 (stale entries must be dropped)", len(users))
	}
	if users["carol"] != 5 {
		t.Errorf("carol = %d, want 5", users["carol"])
	}
}

func TestTimerStoredAsReceived(t *testing.T) {
	m := NewManager()
	mustApply(t, m, events.EventUpdateTimer, `{"seconds_remaining": -5}`)

	if got := m.TimerSeconds(); got != -5 {
		t.Errorf("timer = %d, want -5 (clamping happens at render time)", got)
	}
}

func TestMalformedPayloadLeavesStateUnchanged(t *testing.T) {
	m := NewManager()
	mustApply(t, m, events.EventUpdateLikes, `{"quiz_id": 7, "likes_count": 3, "likes_users": ["a","b","c"]}`)

	_, err := m.Apply(events.Envelope{
		Event: events.EventUpdateLikes,
		Data:  json.RawMessage(`{"quiz_id": 7}`),
	})
	if err == nil {
		t.Fatal("expected error for payload missing likes_count")
	}

	ls, _ := m.Likes("7")
	if ls.Count != 3 || len(ls.Likers) != 3 {
		t.Errorf("state changed after malformed payload: %+v", ls)
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	m := NewManager()
	payload, err := m.Apply(events.Envelope{Event: "mystery", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("unknown event must not fail: %v", err)
	}
	if payload != nil {
		t.Errorf("expected nil payload for unknown event, got %T", payload)
	}
}

func TestReplaceComments(t *testing.T) {
	m := NewManager()
	mustApply(t, m, events.EventNewComment, `{"quiz_id": 3, "username": "alice", "text": "old"}`)

	m.ReplaceComments("3", []Comment{
		{QuizID: "3", Username: "alice", Text: "old"},
		{QuizID: "3", Username: "bob", Text: "new"},
	})

	comments := m.Comments("3")
	if len(comments) != 2 || comments[1].Username != "bob" {
		t.Errorf("unexpected comments after replace: %+v", comments)
	}
}
