package events

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire format for every message on the push channel.
// The event name selects the payload shape carried in Data.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EventType names a push-channel event.
type EventType string

const (
	// Server -> client.
	EventLikeQuiz    EventType = "like_quiz"
	EventUpdateLikes EventType = "update_likes"
	EventNewComment  EventType = "new_comment"
	EventUpdateTimes EventType = "update_times"
	EventUpdateTimer EventType = "update_timer"
	EventError       EventType = "error"

	// Client -> server.
	EventJoinRoom EventType = "joinRoom"
)

// RoomID identifies one quiz or poll broadcast scope. The dashboard server
// emits room ids as bare numbers in some payloads and strings in others, so
// both decode to the same opaque string.
type RoomID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RoomID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("room id must be string or number: %w", err)
	}
	*r = RoomID(n.String())
	return nil
}

// LikeUpdatePayload carries the authoritative like state for one quiz.
// Sent for both like_quiz and update_likes.
type LikeUpdatePayload struct {
	QuizID     RoomID   `json:"quiz_id"`
	LikesCount *int     `json:"likes_count"`
	LikesUsers []string `json:"likes_users"`
}

// CommentPayload carries one appended comment.
type CommentPayload struct {
	QuizID   RoomID `json:"quiz_id"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

// ActiveUsersPayload carries the full active-user mapping. Each update
// replaces the prior mapping wholesale.
type ActiveUsersPayload struct {
	Users map[string]int `json:"users"`
}

// TimerPayload carries the countdown value in seconds. Negative values are
// stored as received and clamped at render time.
type TimerPayload struct {
	SecondsRemaining *int `json:"seconds_remaining"`
}

// JoinRoomPayload is the outbound room subscription request.
type JoinRoomPayload struct {
	QuizID RoomID `json:"quiz_id"`
}

// NewEnvelope marshals payload into an Envelope for the given event.
func NewEnvelope(event EventType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// ParsePayload decodes and validates the payload for a known event type.
// It returns (nil, nil) for event types this layer does not consume.
func ParsePayload(env Envelope) (any, error) {
	switch env.Event {
	case EventLikeQuiz, EventUpdateLikes:
		var payload LikeUpdatePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		if payload.QuizID == "" {
			return nil, fmt.Errorf("%s: missing quiz_id", env.Event)
		}
		if payload.LikesCount == nil {
			return nil, fmt.Errorf("%s: missing likes_count", env.Event)
		}
		if *payload.LikesCount < 0 {
			return nil, fmt.Errorf("%s: negative likes_count %d", env.Event, *payload.LikesCount)
		}
		return payload, nil

	case EventNewComment:
		var payload CommentPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		if payload.QuizID == "" {
			return nil, fmt.Errorf("%s: missing quiz_id", env.Event)
		}
		if payload.Text == "" {
			return nil, fmt.Errorf("%s: missing text", env.Event)
		}
		return payload, nil

	case EventUpdateTimes:
		var payload ActiveUsersPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		if payload.Users == nil {
			return nil, fmt.Errorf("%s: missing users map", env.Event)
		}
		return payload, nil

	case EventUpdateTimer:
		var payload TimerPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		if payload.SecondsRemaining == nil {
			return nil, fmt.Errorf("%s: missing seconds_remaining", env.Event)
		}
		return payload, nil

	case EventJoinRoom:
		var payload JoinRoomPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, err
		}
		if payload.QuizID == "" {
			return nil, fmt.Errorf("%s: missing quiz_id", env.Event)
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
