package rooms

import (
	"testing"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
)

type recordingEmitter struct {
	emitted []events.JoinRoomPayload
}

func (r *recordingEmitter) Emit(event events.EventType, payload any) {
	if event == events.EventJoinRoom {
		r.emitted = append(r.emitted, payload.(events.JoinRoomPayload))
	}
}

func markedDocument(ids ...string) *view.Document {
	doc := view.NewDocument()
	for _, id := range ids {
		doc.Root().AppendChild(doc.CreateElement("section").SetAttr(view.AttrRoomMarker, id))
	}
	return doc
}

func TestScanDocumentCollectsRooms(t *testing.T) {
	emitter := &recordingEmitter{}
	reg := NewRegistry(emitter)
	reg.ScanDocument(markedDocument("1", "2", "1", "3"))

	rooms := reg.Rooms()
	want := []events.RoomID{"1", "2", "3"}
	if len(rooms) != len(want) {
		t.Fatalf("got %v, want %v", rooms, want)
	}
	for i := range want {
		if rooms[i] != want[i] {
			t.Errorf("rooms[%d] = %s, want %s", i, rooms[i], want[i])
		}
	}
}

func TestAddIsIdempotent(t *testing.T) {
	reg := NewRegistry(&recordingEmitter{})
	reg.Add("7")
	reg.Add("7")
	reg.Add("7")

	if got := reg.Rooms(); len(got) != 1 {
		t.Errorf("got %d rooms, want 1", len(got))
	}
}

func TestJoinAllEmitsOncePerRoom(t *testing.T) {
	emitter := &recordingEmitter{}
	reg := NewRegistry(emitter)
	reg.ScanDocument(markedDocument("4", "5"))

	reg.JoinAll()

	if len(emitter.emitted) != 2 {
		t.Fatalf("got %d joins, want 2", len(emitter.emitted))
	}
	if emitter.emitted[0].QuizID != "4" || emitter.emitted[1].QuizID != "5" {
		t.Errorf("unexpected join order: %+v", emitter.emitted)
	}
}

func TestRejoinRestoresIdenticalRoomSet(t *testing.T) {
	emitter := &recordingEmitter{}
	reg := NewRegistry(emitter)
	reg.ScanDocument(markedDocument("1", "2"))

	// Simulate connect, reconnect: the join set must be identical both
	// times, with no duplicates from the second pass.
	reg.JoinAll()
	first := append([]events.JoinRoomPayload(nil), emitter.emitted...)
	emitter.emitted = nil
	reg.JoinAll()

	if len(emitter.emitted) != len(first) {
		t.Fatalf("rejoin emitted %d joins, want %d", len(emitter.emitted), len(first))
	}
	for i := range first {
		if emitter.emitted[i] != first[i] {
			t.Errorf("rejoin[%d] = %+v, want %+v", i, emitter.emitted[i], first[i])
		}
	}
}
