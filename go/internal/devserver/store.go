package devserver

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// StoredComment is one comment held by the harness.
type StoredComment struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Store is the in-memory backing state for the development harness. Nothing
// here survives a restart.
type Store struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	likers   map[events.RoomID][]string
	comments map[events.RoomID][]StoredComment
	votes    map[events.RoomID]map[string]int
	firstHB  map[string]int64
	lastHB   map[string]int64
}

// NewStore creates an empty store.
func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:    clock,
		likers:   make(map[events.RoomID][]string),
		comments: make(map[events.RoomID][]StoredComment),
		votes:    make(map[events.RoomID]map[string]int),
		firstHB:  make(map[string]int64),
		lastHB:   make(map[string]int64),
	}
}

// ToggleLike flips userID's like on a quiz and returns the resulting action
// ("liked" or "unliked"), count, and ordered likers.
func (s *Store) ToggleLike(quizID events.RoomID, userID string) (action string, count int, likers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.likers[quizID]
	for i, u := range current {
		if u == userID {
			s.likers[quizID] = append(append([]string(nil), current[:i]...), current[i+1:]...)
			return "unliked", len(s.likers[quizID]), append([]string(nil), s.likers[quizID]...)
		}
	}
	s.likers[quizID] = append(current, userID)
	return "liked", len(s.likers[quizID]), append([]string(nil), s.likers[quizID]...)
}

// AddComment appends a comment and returns the room's full list.
func (s *Store) AddComment(quizID events.RoomID, username, text string) []StoredComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[quizID] = append(s.comments[quizID], StoredComment{Username: username, Text: text})
	return append([]StoredComment(nil), s.comments[quizID]...)
}

// Comments returns the room's comment list in arrival order.
func (s *Store) Comments(quizID events.RoomID) []StoredComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredComment(nil), s.comments[quizID]...)
}

// RecordVote tallies one poll answer.
func (s *Store) RecordVote(pollID events.RoomID, selectedAnswer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.votes[pollID] == nil {
		s.votes[pollID] = make(map[string]int)
	}
	s.votes[pollID][selectedAnswer]++
}

// VoteCounts returns the tallies for a poll.
func (s *Store) VoteCounts(pollID events.RoomID) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.votes[pollID]))
	for answer, n := range s.votes[pollID] {
		counts[answer] = n
	}
	return counts
}

// TrackActivity records one heartbeat for userID.
func (s *Store) TrackActivity(userID string) {
	now := s.clock.Now().Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.firstHB[userID]; !ok {
		s.firstHB[userID] = now
	}
	s.lastHB[userID] = now
}

// ActiveSeconds returns, per user, the elapsed seconds between the first and
// most recent heartbeat. Users whose last heartbeat is older than maxAgeSec
// are dropped from the mapping entirely.
func (s *Store) ActiveSeconds(maxAgeSec int64) map[string]int {
	now := s.clock.Now().Unix()
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]int)
	for userID, last := range s.lastHB {
		if now-last > maxAgeSec {
			continue
		}
		users[userID] = int(last - s.firstHB[userID])
	}
	return users
}
