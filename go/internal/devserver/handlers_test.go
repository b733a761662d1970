package devserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func testServer(t *testing.T) (*Server, *httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := &Config{
		UploadDir:           t.TempDir(),
		TimerSeconds:        300,
		ActivityIntervalSec: 5,
		ActivityMaxAgeSec:   60,
	}
	s, err := newServerWithClock(cfg, clock)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv, clock
}

func postForm(t *testing.T, srv *httptest.Server, path string, form url.Values) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.PostForm(srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestInteractTogglesLike(t *testing.T) {
	_, srv, _ := testServer(t)

	form := url.Values{"quiz_id": {"7"}, "type": {"like"}, "user_id": {"alice"}}
	_, body := postForm(t, srv, "/interact", form)

	var first struct {
		Success    bool     `json:"success"`
		Action     string   `json:"action"`
		LikesCount int      `json:"likes_count"`
		LikesUsers []string `json:"likes_users"`
	}
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.Success || first.Action != "liked" || first.LikesCount != 1 || first.LikesUsers[0] != "alice" {
		t.Errorf("unexpected first toggle: %+v", first)
	}

	_, body = postForm(t, srv, "/interact", form)
	var second struct {
		Action     string `json:"action"`
		LikesCount int    `json:"likes_count"`
	}
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Action != "unliked" || second.LikesCount != 0 {
		t.Errorf("unexpected second toggle: %+v", second)
	}
}

func TestInteractRejectsUnknownType(t *testing.T) {
	_, srv, _ := testServer(t)
	resp, _ := postForm(t, srv, "/interact", url.Values{"quiz_id": {"7"}, "type": {"share"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommentReturnsFullList(t *testing.T) {
	_, srv, _ := testServer(t)

	postForm(t, srv, "/comment_quiz/4", url.Values{"comment": {"first"}, "username": {"alice"}})
	_, body := postForm(t, srv, "/comment_quiz/4", url.Values{"comment": {"second"}, "username": {"bob"}})

	var comments []StoredComment
	if err := json.Unmarshal(body, &comments); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want full list of 2", len(comments))
	}
	if comments[0].Username != "alice" || comments[1].Text != "second" {
		t.Errorf("unexpected list: %+v", comments)
	}
}

func TestCommentAcceptsLegacyTextField(t *testing.T) {
	_, srv, _ := testServer(t)
	_, body := postForm(t, srv, "/comment_quiz/4", url.Values{"text": {"legacy"}})

	var comments []StoredComment
	if err := json.Unmarshal(body, &comments); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "legacy" {
		t.Errorf("unexpected list: %+v", comments)
	}
}

func TestCommentRejectsEmpty(t *testing.T) {
	_, srv, _ := testServer(t)
	resp, _ := postForm(t, srv, "/comment_quiz/4", url.Values{"comment": {"   "}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitPoll(t *testing.T) {
	s, srv, _ := testServer(t)

	body := bytes.NewBufferString(`{"poll_id":"p1","selected_answer":"go"}`)
	resp, err := http.Post(srv.URL+"/submit_poll", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if counts := s.Store().VoteCounts("p1"); counts["go"] != 1 {
		t.Errorf("vote not recorded: %v", counts)
	}

	bad := bytes.NewBufferString(`{"poll_id":"p1"}`)
	resp2, err := http.Post(srv.URL+"/submit_poll", "application/json", bad)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing answer", resp2.StatusCode)
	}
}

func TestTrackActivityFeedsActiveSeconds(t *testing.T) {
	s, srv, clock := testServer(t)

	postForm(t, srv, "/track_user_activity", url.Values{"user_id": {"alice"}})
	clock.Advance(30 * time.Second)
	postForm(t, srv, "/track_user_activity", url.Values{"user_id": {"alice"}})

	users := s.Store().ActiveSeconds(60)
	if users["alice"] != 30 {
		t.Errorf("alice active = %d, want 30", users["alice"])
	}

	// A stale user falls out of the mapping entirely.
	clock.Advance(2 * time.Minute)
	if users := s.Store().ActiveSeconds(60); len(users) != 0 {
		t.Errorf("stale users must be dropped, got %v", users)
	}
}

func TestUploadStoresFileAndReturnsURL(t *testing.T) {
	s, srv, _ := testServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("profile_picture", "me.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("fake image bytes"))
	writer.Close()

	resp, err := http.Post(srv.URL+"/profile/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		Status         string `json:"status"`
		ProfilePicture string `json:"profile_picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "ok" {
		t.Fatalf("status = %q, want ok", result.Status)
	}
	if !strings.HasPrefix(result.ProfilePicture, "/uploads/") || !strings.HasSuffix(result.ProfilePicture, ".png") {
		t.Errorf("unexpected URL %q", result.ProfilePicture)
	}

	name := strings.TrimPrefix(result.ProfilePicture, "/uploads/")
	data, err := os.ReadFile(filepath.Join(s.config.UploadDir, name))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("stored content mismatch: %q", data)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	_, srv, _ := testServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("unrelated", "value")
	writer.Close()

	resp, err := http.Post(srv.URL+"/profile/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
