package state

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// LikeState is the authoritative like standing for one quiz. Count is
// authoritative for display even when it disagrees with len(Likers).
type LikeState struct {
	QuizID events.RoomID
	Count  int
	Likers []string
}

// Comment is one dashboard comment. Ordering is server arrival order.
type Comment struct {
	QuizID   events.RoomID
	Username string
	Text     string
}

// Manager reconciles push events into the dashboard view state. Each event
// kind has one total reducer; a malformed payload leaves state untouched.
type Manager struct {
	mu           sync.RWMutex
	likes        map[events.RoomID]LikeState
	comments     map[events.RoomID][]Comment
	activeUsers  map[string]int
	timerSeconds int
}

// NewManager creates an empty state manager.
func NewManager() *Manager {
	return &Manager{
		likes:       make(map[events.RoomID]LikeState),
		comments:    make(map[events.RoomID][]Comment),
		activeUsers: make(map[string]int),
	}
}

// Apply reconciles one push event and returns the payload it applied.
// Payloads with missing required fields are dropped with an error and no
// state change; unknown event types return (nil, nil) and are ignored.
func (m *Manager) Apply(env events.Envelope) (any, error) {
	payload, err := events.ParsePayload(env)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", env.Event, err)
	}
	if payload == nil {
		log.Debug().Str("event", string(env.Event)).Msg("ignoring unknown event type")
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch p := payload.(type) {
	case events.LikeUpdatePayload:
		// Wholesale replacement; no merge with prior likers.
		m.likes[p.QuizID] = LikeState{
			QuizID: p.QuizID,
			Count:  *p.LikesCount,
			Likers: append([]string(nil), p.LikesUsers...),
		}

	case events.CommentPayload:
		// Append-only; duplicate delivery produces duplicate entries.
		m.comments[p.QuizID] = append(m.comments[p.QuizID], Comment{
			QuizID:   p.QuizID,
			Username: p.Username,
			Text:     p.Text,
		})

	case events.ActiveUsersPayload:
		// Full replacement; entries absent from the payload are dropped.
		users := make(map[string]int, len(p.Users))
		for id, secs := range p.Users {
			users[id] = secs
		}
		m.activeUsers = users

	case events.TimerPayload:
		// Stored as received; the renderer clamps negatives.
		m.timerSeconds = *p.SecondsRemaining
	}

	return payload, nil
}

// ReplaceComments swaps in the full comment list for a room, as returned by
// the comment endpoint. Used for full resync after a comment submission.
func (m *Manager) ReplaceComments(quizID events.RoomID, comments []Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[quizID] = append([]Comment(nil), comments...)
}

// Likes returns the like state for a room, if any event has arrived for it.
func (m *Manager) Likes(quizID events.RoomID) (LikeState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ls, ok := m.likes[quizID]
	if !ok {
		return LikeState{}, false
	}
	ls.Likers = append([]string(nil), ls.Likers...)
	return ls, true
}

// Comments returns a copy of the room's comment list in arrival order.
func (m *Manager) Comments(quizID events.RoomID) []Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Comment(nil), m.comments[quizID]...)
}

// ActiveUsers returns a copy of the current active-user mapping.
func (m *Manager) ActiveUsers() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make(map[string]int, len(m.activeUsers))
	for id, secs := range m.activeUsers {
		users[id] = secs
	}
	return users
}

// TimerSeconds returns the countdown value as last received.
func (m *Manager) TimerSeconds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timerSeconds
}
