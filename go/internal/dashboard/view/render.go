package view

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
	"github.com/mcdev12/quizdash/go/internal/dashboard/state"
)

// Renderer projects state snapshots onto the document. Every render targets
// elements by the dashboard id contract; a missing target is a no-op so a
// page without that room never errors.
type Renderer struct {
	doc *Document
}

// NewRenderer creates a renderer bound to one document.
func NewRenderer(doc *Document) *Renderer {
	return &Renderer{doc: doc}
}

// RenderLikes writes the like count and rebuilds the likers list for a quiz.
// Count is rendered as given even when it disagrees with the likers length.
func (r *Renderer) RenderLikes(ls state.LikeState) {
	if countEl := r.target(fmt.Sprintf("like-count-%s", ls.QuizID)); countEl != nil {
		countEl.SetText(fmt.Sprintf("%d", ls.Count))
	}

	listEl := r.target(fmt.Sprintf("likes-list-%s", ls.QuizID))
	if listEl == nil {
		return
	}
	items := make([]*Node, 0, len(ls.Likers))
	for _, user := range ls.Likers {
		items = append(items, r.doc.CreateElement("li").SetText(user))
	}
	listEl.ReplaceChildren(items...)
}

// RenderComments clears and repopulates the room's comment list from state.
// Full rebuild on every render keeps the view convergent after missed events.
func (r *Renderer) RenderComments(quizID events.RoomID, comments []state.Comment) {
	quizEl := r.target(fmt.Sprintf("quiz-%s", quizID))
	if quizEl == nil {
		return
	}
	listEl := quizEl.FindByClass("comments-list")
	if listEl == nil {
		log.Debug().Str("quiz_id", string(quizID)).Msg("quiz has no comments-list, skipping render")
		return
	}
	items := make([]*Node, 0, len(comments))
	for _, c := range comments {
		items = append(items, r.doc.CreateElement("li").SetText(fmt.Sprintf("%s: %s", c.Username, c.Text)))
	}
	listEl.ReplaceChildren(items...)
}

// RenderActiveUsers rebuilds the active-user list, sorted by user id so the
// render is deterministic across updates.
func (r *Renderer) RenderActiveUsers(users map[string]int) {
	listEl := r.target("active-users-list")
	if listEl == nil {
		return
	}
	ids := make([]string, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]*Node, 0, len(ids))
	for _, id := range ids {
		items = append(items, r.doc.CreateElement("li").SetText(fmt.Sprintf("%s: %ds", id, users[id])))
	}
	listEl.ReplaceChildren(items...)
}

// RenderTimer writes the countdown, clamping negative values to zero.
func (r *Renderer) RenderTimer(secondsRemaining int) {
	timerEl := r.target("quiz-timer")
	if timerEl == nil {
		return
	}
	timerEl.SetText(FormatCountdown(secondsRemaining))
}

// ToggleLikesModal flips the visibility of the likers modal for a quiz.
func (r *Renderer) ToggleLikesModal(quizID events.RoomID) {
	modal := r.target(fmt.Sprintf("likes-modal-%s", quizID))
	if modal == nil {
		return
	}
	if modal.Attr("style") == "display:none" {
		modal.SetAttr("style", "display:block")
	} else {
		modal.SetAttr("style", "display:none")
	}
}

// SetProfilePicture swaps the displayed profile image source.
func (r *Renderer) SetProfilePicture(url string) {
	if img := r.target("profilePicture"); img != nil {
		img.SetAttr("src", url)
	}
}

func (r *Renderer) target(id string) *Node {
	el := r.doc.ElementByID(id)
	if el == nil {
		log.Debug().Str("id", id).Msg("render target not in document, skipping")
	}
	return el
}

// FormatCountdown renders seconds as HH:MM:SS with a floor at zero.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
