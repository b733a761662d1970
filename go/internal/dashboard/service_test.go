package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
	"github.com/mcdev12/quizdash/go/internal/devserver"
)

func roomDocument(ids ...string) *view.Document {
	doc := view.NewDocument()
	for _, id := range ids {
		section := doc.CreateElement("section").
			SetAttr(view.AttrRoomMarker, id).
			SetAttr("id", "quiz-"+id)
		section.AppendChild(doc.CreateElement("span").SetAttr("id", "like-count-"+id))
		section.AppendChild(doc.CreateElement("ul").SetAttr("id", "likes-list-"+id))
		section.AppendChild(doc.CreateElement("ul").SetAttr("class", "comments-list"))
		doc.Root().AppendChild(section)
	}
	doc.Root().AppendChild(doc.CreateElement("span").SetAttr("id", "quiz-timer"))
	doc.Root().AppendChild(doc.CreateElement("ul").SetAttr("id", "active-users-list"))
	return doc
}

func testServiceConfig(httpURL string) Config {
	pushURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	cfg := DefaultConfig(httpURL, pushURL, "tester")
	cfg.Session.ReconnectWait = 20 * time.Millisecond
	cfg.HeartbeatInterval = time.Hour // keep heartbeats out of the way
	return cfg
}

// End to end: another user's like lands on the harness, the harness pushes
// update_likes to the room, and the service reconciles it.
func TestServiceEndToEndLikeSync(t *testing.T) {
	harness, err := devserver.NewServer(&devserver.Config{
		UploadDir:           t.TempDir(),
		TimerSeconds:        300,
		ActivityIntervalSec: 5,
		ActivityMaxAgeSec:   60,
	})
	if err != nil {
		t.Fatalf("harness: %v", err)
	}
	srv := httptest.NewServer(harness.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go harness.Start(ctx)

	svc := NewServiceWithDocument(testServiceConfig(srv.URL), roomDocument("7"))
	go svc.Start(ctx)

	// Wait for the client to join its room.
	deadline := time.After(5 * time.Second)
	for harness.Hub().RoomSize("7") != 1 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for room join")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Another user likes quiz 7 over plain HTTP.
	resp, err := http.PostForm(srv.URL+"/interact", url.Values{
		"quiz_id": {"7"}, "type": {"like"}, "user_id": {"alice"},
	})
	if err != nil {
		t.Fatalf("interact: %v", err)
	}
	resp.Body.Close()

	deadline = time.After(5 * time.Second)
	for {
		if ls, ok := svc.State().Likes("7"); ok && ls.Count == 1 && len(ls.Likers) == 1 && ls.Likers[0] == "alice" {
			return
		}
		select {
		case <-deadline:
			ls, _ := svc.State().Likes("7")
			t.Fatalf("like never reconciled, state: %+v", ls)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServiceRenderDispatchTable(t *testing.T) {
	doc := roomDocument("7")
	svc := NewServiceWithDocument(testServiceConfig("http://localhost:0"), doc)

	apply := func(event events.EventType, data string) {
		t.Helper()
		payload, err := svc.State().Apply(events.Envelope{Event: event, Data: json.RawMessage(data)})
		if err != nil {
			t.Fatalf("apply %s: %v", event, err)
		}
		svc.render(payload)
	}

	apply(events.EventUpdateLikes, `{"quiz_id": 7, "likes_count": 3, "likes_users": ["a","b","c"]}`)
	if got := doc.ElementByID("like-count-7").Text; got != "3" {
		t.Errorf("like count = %q, want 3", got)
	}

	apply(events.EventNewComment, `{"quiz_id": 7, "username": "alice", "text": "hey"}`)
	list := doc.ElementByID("quiz-7").FindByClass("comments-list")
	if len(list.Children) != 1 || list.Children[0].Text != "alice: hey" {
		t.Errorf("unexpected comments render: %+v", list.Children)
	}

	apply(events.EventUpdateTimer, `{"seconds_remaining": -5}`)
	if got := doc.ElementByID("quiz-timer").Text; got != "00:00:00" {
		t.Errorf("timer = %q, want clamped 00:00:00", got)
	}

	apply(events.EventUpdateTimes, `{"users": {"bob": 12}}`)
	usersList := doc.ElementByID("active-users-list")
	if len(usersList.Children) != 1 {
		t.Errorf("unexpected active users render: %+v", usersList.Children)
	}
}

func TestServiceResyncRendersTrackedRooms(t *testing.T) {
	doc := roomDocument("1", "2")
	svc := NewServiceWithDocument(testServiceConfig("http://localhost:0"), doc)

	if _, err := svc.State().Apply(events.Envelope{
		Event: events.EventUpdateLikes,
		Data:  json.RawMessage(`{"quiz_id": 1, "likes_count": 4, "likes_users": ["a"]}`),
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	svc.Resync()

	if got := doc.ElementByID("like-count-1").Text; got != "4" {
		t.Errorf("room 1 like count = %q, want 4", got)
	}
	// Room 2 saw no events; resync must not invent state for it.
	if got := doc.ElementByID("like-count-2").Text; got != "" {
		t.Errorf("room 2 like count = %q, want untouched", got)
	}
}
