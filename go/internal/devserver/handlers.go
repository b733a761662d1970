package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

const maxUploadBytes = 10 << 20

// handleInteract toggles a like and pushes the authoritative like state to
// the quiz room.
func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed form body"})
		return
	}
	quizID := events.RoomID(r.PostFormValue("quiz_id"))
	if quizID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "quiz_id is required"})
		return
	}
	if kind := r.PostFormValue("type"); kind != "like" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "unsupported interaction type"})
		return
	}
	userID := formUser(r)

	action, count, likers := s.store.ToggleLike(quizID, userID)

	env, err := events.NewEnvelope(events.EventUpdateLikes, events.LikeUpdatePayload{
		QuizID:     quizID,
		LikesCount: &count,
		LikesUsers: likers,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode like update")
	} else {
		s.hub.BroadcastToRoom(quizID, env)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"action":      action,
		"quiz_id":     quizID,
		"likes_count": count,
		"likes_users": likers,
	})
}

// handleComment appends a comment, returns the room's full comment list, and
// pushes the single appended comment to the room.
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	quizID := events.RoomID(chi.URLParam(r, "quizID"))
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "malformed form body"})
		return
	}

	text := strings.TrimSpace(r.PostFormValue("comment"))
	if text == "" {
		// Older dashboard revisions posted the field as "text".
		text = strings.TrimSpace(r.PostFormValue("text"))
	}
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "comment text is required"})
		return
	}
	username := formUser(r)

	comments := s.store.AddComment(quizID, username, text)

	env, err := events.NewEnvelope(events.EventNewComment, events.CommentPayload{
		QuizID:   quizID,
		Username: username,
		Text:     text,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode comment event")
	} else {
		s.hub.BroadcastToRoom(quizID, env)
	}

	writeJSON(w, http.StatusOK, comments)
}

// handleSubmitPoll records a vote.
func (s *Server) handleSubmitPoll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PollID         events.RoomID `json:"poll_id"`
		SelectedAnswer string        `json:"selected_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed vote body"})
		return
	}
	if req.PollID == "" || req.SelectedAnswer == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "poll_id and selected_answer are required"})
		return
	}

	s.store.RecordVote(req.PollID, req.SelectedAnswer)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleUpload accepts a multipart profile picture and returns the URL it is
// served back from.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "malformed multipart body"})
		return
	}
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "profile_picture file is required"})
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "could not store upload"})
		return
	}

	name := uuid.New().String() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(s.config.UploadDir, name))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "could not store upload"})
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "could not store upload"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"message":         "profile picture updated",
		"profile_picture": "/uploads/" + name,
	})
}

// handleTrackActivity records one heartbeat. Fire-and-forget from the
// client's perspective.
func (s *Server) handleTrackActivity(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed form body"})
		return
	}
	userID := r.PostFormValue("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "user_id is required"})
		return
	}
	s.store.TrackActivity(userID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// formUser resolves the acting user. The harness has no auth; identity rides
// on a form field instead of a session cookie.
func formUser(r *http.Request) string {
	if u := r.PostFormValue("user_id"); u != "" {
		return u
	}
	if u := r.PostFormValue("username"); u != "" {
		return u
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
