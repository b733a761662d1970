package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcdev12/quizdash/go/internal/dashboard/events"
)

// Client is a thin HTTP client for the dashboard endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent on every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// APIError is a non-2xx response with the server's message, when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status code: %d, message: %s", e.StatusCode, e.Message)
}

// InteractResponse is the body of POST /interact. The like fields are the
// authoritative state after the toggle, mirroring the update_likes push.
type InteractResponse struct {
	Success    bool          `json:"success"`
	Action     string        `json:"action"`
	Message    string        `json:"message,omitempty"`
	QuizID     events.RoomID `json:"quiz_id"`
	LikesCount int           `json:"likes_count"`
	LikesUsers []string      `json:"likes_users"`
}

// CommentEntry is one entry of the full list returned by the comment endpoint.
type CommentEntry struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// PollResponse is the body of POST /submit_poll.
type PollResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UploadResponse is the body of POST /profile/upload.
type UploadResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// ToggleLike toggles the current user's like on a quiz.
func (c *Client) ToggleLike(ctx context.Context, quizID events.RoomID) (InteractResponse, error) {
	form := url.Values{}
	form.Set("quiz_id", string(quizID))
	form.Set("type", "like")

	var resp InteractResponse
	if err := c.postForm(ctx, "/interact", form, &resp); err != nil {
		return InteractResponse{}, err
	}
	if !resp.Success {
		return InteractResponse{}, &APIError{StatusCode: http.StatusOK, Message: orDefault(resp.Message, "like rejected")}
	}
	return resp, nil
}

// SubmitComment appends a comment and returns the room's full comment list.
func (c *Client) SubmitComment(ctx context.Context, quizID events.RoomID, text string) ([]CommentEntry, error) {
	form := url.Values{}
	form.Set("comment", text)

	var comments []CommentEntry
	if err := c.postForm(ctx, "/comment_quiz/"+url.PathEscape(string(quizID)), form, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// SubmitPoll records a poll vote.
func (c *Client) SubmitPoll(ctx context.Context, pollID events.RoomID, selectedAnswer string) (PollResponse, error) {
	body, err := json.Marshal(map[string]string{
		"poll_id":         string(pollID),
		"selected_answer": selectedAnswer,
	})
	if err != nil {
		return PollResponse{}, fmt.Errorf("marshal poll vote: %w", err)
	}

	var resp PollResponse
	if err := c.post(ctx, "/submit_poll", "application/json", bytes.NewReader(body), &resp); err != nil {
		return PollResponse{}, err
	}
	return resp, nil
}

// UploadProfilePicture uploads a profile image as multipart form data.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, content io.Reader) (UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("profile_picture", filename)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadResponse{}, fmt.Errorf("copy upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	var resp UploadResponse
	if err := c.post(ctx, "/profile/upload", writer.FormDataContentType(), &buf, &resp); err != nil {
		return UploadResponse{}, err
	}
	return resp, nil
}

// TrackActivity sends the fire-and-forget heartbeat for a user.
func (c *Client) TrackActivity(ctx context.Context, userID string) error {
	form := url.Values{}
	form.Set("user_id", userID)
	return c.postForm(ctx, "/track_user_activity", form, nil)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	return c.post(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(responseBody)}
	}
	if out == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the server's message field, falling back to the raw
// body.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return string(body)
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
