package rooms

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
)

// Emitter sends outbound push-channel events. Satisfied by session.Session.
type Emitter interface {
	Emit(event events.EventType, payload any)
}

// Registry tracks which rooms the current page cares about and requests
// membership for each. The document is scanned once at startup; joins are
// reissued only on (re)connect, never per event.
type Registry struct {
	emitter Emitter

	mu    sync.Mutex
	rooms []events.RoomID
	seen  map[events.RoomID]bool
}

// NewRegistry creates an empty registry emitting joins through emitter.
func NewRegistry(emitter Emitter) *Registry {
	return &Registry{
		emitter: emitter,
		seen:    make(map[events.RoomID]bool),
	}
}

// ScanDocument records every room marker present on the document.
func (r *Registry) ScanDocument(doc *view.Document) {
	ids := doc.RoomIDs()
	for _, id := range ids {
		r.Add(id)
	}
	log.Info().Int("rooms", len(ids)).Msg("scanned document for room markers")
}

// Add records one room. Adding the same room twice is a no-op, so the join
// set never carries duplicates.
func (r *Registry) Add(id events.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[id] {
		return
	}
	r.seen[id] = true
	r.rooms = append(r.rooms, id)
}

// Rooms returns the tracked room set in discovery order.
func (r *Registry) Rooms() []events.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.RoomID(nil), r.rooms...)
}

// JoinAll requests membership for every tracked room. Registered as a
// session connect hook so reconnection restores the identical room set.
func (r *Registry) JoinAll() {
	for _, id := range r.Rooms() {
		r.emitter.Emit(events.EventJoinRoom, events.JoinRoomPayload{QuizID: id})
	}
}
