package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/api"
	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/state"
	"github.com/mcdev12/quizdash/go/internal/dashboard/view"
)

// ErrEmptyComment rejects empty or whitespace-only comment submissions
// before any network call is made.
var ErrEmptyComment = errors.New("comment text is empty")

// Dispatcher translates user gestures into outbound requests. It never flips
// view state optimistically: like and comment responses re-enter through the
// reconciler so the rendered state always comes from an authoritative body.
type Dispatcher struct {
	client   *api.Client
	state    *state.Manager
	renderer *view.Renderer
	doc      *view.Document
	userID   string
	clock    clockwork.Clock
	reload   func()
}

// NewDispatcher wires a dispatcher over the given collaborators.
func NewDispatcher(client *api.Client, st *state.Manager, renderer *view.Renderer, doc *view.Document, userID string) *Dispatcher {
	return newDispatcherWithClock(client, st, renderer, doc, userID, clockwork.NewRealClock())
}

func newDispatcherWithClock(client *api.Client, st *state.Manager, renderer *view.Renderer, doc *view.Document, userID string, clock clockwork.Clock) *Dispatcher {
	return &Dispatcher{
		client:   client,
		state:    st,
		renderer: renderer,
		doc:      doc,
		userID:   userID,
		clock:    clock,
	}
}

// SetReloadHook registers the full-resync action run after a successful poll
// vote.
func (d *Dispatcher) SetReloadHook(reload func()) {
	d.reload = reload
}

// ToggleLike sends a like/unlike toggle and reconciles the response body as
// an authoritative like update. Local state is never flipped ahead of it.
func (d *Dispatcher) ToggleLike(ctx context.Context, quizID events.RoomID) error {
	resp, err := d.client.ToggleLike(ctx, quizID)
	if err != nil {
		return fmt.Errorf("toggle like for quiz %s: %w", quizID, err)
	}

	env, err := events.NewEnvelope(events.EventUpdateLikes, events.LikeUpdatePayload{
		QuizID:     resp.QuizID,
		LikesCount: &resp.LikesCount,
		LikesUsers: resp.LikesUsers,
	})
	if err != nil {
		return err
	}
	if _, err := d.state.Apply(env); err != nil {
		return err
	}
	if ls, ok := d.state.Likes(resp.QuizID); ok {
		d.renderer.RenderLikes(ls)
	}
	log.Debug().Str("quiz_id", string(quizID)).Str("action", resp.Action).Msg("like toggled")
	return nil
}

// SubmitComment validates and posts a comment. The response is the room's
// full comment list, which replaces local state wholesale; on success the
// comment input is cleared, on failure it is left intact.
func (d *Dispatcher) SubmitComment(ctx context.Context, quizID events.RoomID, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyComment
	}

	entries, err := d.client.SubmitComment(ctx, quizID, trimmed)
	if err != nil {
		return fmt.Errorf("submit comment for quiz %s: %w", quizID, err)
	}

	comments := make([]state.Comment, 0, len(entries))
	for _, e := range entries {
		comments = append(comments, state.Comment{QuizID: quizID, Username: e.Username, Text: e.Text})
	}
	d.state.ReplaceComments(quizID, comments)
	d.renderer.RenderComments(quizID, d.state.Comments(quizID))

	if input := d.doc.ElementByID(fmt.Sprintf("comment-input-%s", quizID)); input != nil {
		input.SetAttr("value", "")
	}
	return nil
}

// SubmitPollVote sends a vote and triggers the reload hook on success for a
// full resync.
func (d *Dispatcher) SubmitPollVote(ctx context.Context, pollID events.RoomID, selectedAnswer string) error {
	resp, err := d.client.SubmitPoll(ctx, pollID, selectedAnswer)
	if err != nil {
		return fmt.Errorf("submit poll %s: %w", pollID, err)
	}
	if !resp.Success {
		if resp.Message != "" {
			return fmt.Errorf("submit poll %s: %s", pollID, resp.Message)
		}
		return fmt.Errorf("submit poll %s: vote rejected", pollID)
	}
	if d.reload != nil {
		d.reload()
	}
	return nil
}

// AddQuestionRow appends a question/choices/correct-answer input triple to
// the quiz-creation form. Purely local; placeholders are indexed by the row
// count at insertion time.
func (d *Dispatcher) AddQuestionRow() {
	container := d.doc.ElementByID("questions-container")
	if container == nil {
		log.Debug().Msg("questions-container not in document, skipping row")
		return
	}
	index := len(container.Children) + 1

	row := d.doc.CreateElement("div")
	row.SetAttr("class", "question-row")
	row.AppendChild(d.doc.CreateElement("input").
		SetAttr("name", "questions[]").
		SetAttr("placeholder", fmt.Sprintf("Question %d", index)))
	row.AppendChild(d.doc.CreateElement("input").
		SetAttr("name", "choices[]").
		SetAttr("placeholder", fmt.Sprintf("Choices for question %d (comma separated)", index)))
	row.AppendChild(d.doc.CreateElement("input").
		SetAttr("name", "correct_answers[]").
		SetAttr("placeholder", fmt.Sprintf("Correct answer for question %d", index)))

	container.AppendChild(row)
}

// UploadProfilePicture uploads an image and swaps the displayed source to
// the returned URL. The outcome is always terminal within one round trip.
func (d *Dispatcher) UploadProfilePicture(ctx context.Context, filename string, content io.Reader) error {
	resp, err := d.client.UploadProfilePicture(ctx, filename, content)
	if err != nil {
		return fmt.Errorf("upload profile picture: %w", err)
	}
	if resp.Status != "ok" {
		if resp.Message != "" {
			return fmt.Errorf("upload profile picture: %s", resp.Message)
		}
		return errors.New("upload profile picture: rejected")
	}
	if resp.ProfilePicture != "" {
		d.renderer.SetProfilePicture(resp.ProfilePicture)
	}
	return nil
}

// RunHeartbeat posts the activity heartbeat on a fixed interval until ctx is
// cancelled. Failures are logged, never surfaced.
func (d *Dispatcher) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := d.client.TrackActivity(ctx, d.userID); err != nil {
				log.Warn().Err(err).Str("user_id", d.userID).Msg("activity heartbeat failed")
			}
		}
	}
}
