// Package backend is the HTTP client for the remote LMS collaborator:
// question fetch, session tracking, audio transcription and score
// submission. Every call goes through the shared retry policy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voxquiz/voxquiz/internal/quiz"
	"github.com/voxquiz/voxquiz/internal/retry"
)

// Subtopic is the display metadata for one quiz.
type Subtopic struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
}

// SubmitAck acknowledges a score submission. AlreadyCompleted is a
// distinct success path: the backend refused a duplicate and the client
// must skip the score display.
type SubmitAck struct {
	AlreadyCompleted bool `json:"already_completed"`
}

type Client struct {
	baseURL string
	http    *http.Client
	policy  retry.Policy
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option  { return func(c *Client) { c.http = h } }
func WithRetryPolicy(p retry.Policy) Option { return func(c *Client) { c.policy = p } }
func WithBearerToken(tok string) Option     { return func(c *Client) { c.token = tok } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		policy:  retry.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) FetchQuestions(ctx context.Context, subtopicID string) ([]quiz.RawQuestion, error) {
	var out []quiz.RawQuestion
	err := c.getJSON(ctx, "/api/subtopics/"+subtopicID+"/questions", &out)
	return out, err
}

func (c *Client) FetchSubtopic(ctx context.Context, subtopicID string) (Subtopic, error) {
	var out Subtopic
	err := c.getJSON(ctx, "/api/subtopics/"+subtopicID, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context, userID, subtopicID string) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	in := map[string]string{"user_id": userID, "subtopic_id": subtopicID}
	if err := c.postJSON(ctx, "/api/sessions", in, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("backend: empty session id")
	}
	return out.SessionID, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.postJSON(ctx, "/api/sessions/"+sessionID+"/end", struct{}{}, nil)
}

func (c *Client) SubmitScore(ctx context.Context, userID, subtopicID string, score quiz.ScoreResult) (SubmitAck, error) {
	var out SubmitAck
	in := struct {
		UserID     string `json:"user_id"`
		SubtopicID string `json:"subtopic_id"`
		Marks      int    `json:"marks_obtained"`
		MaxMarks   int    `json:"max_marks"`
	}{userID, subtopicID, score.MarksObtained, score.MaxMarks}
	err := c.postJSON(ctx, "/api/marks", in, &out)
	return out, err
}

// Transcribe ships one recorded answer (single-channel 16 kHz WAV, an
// opaque blob here) and returns the transcript text. A "not understood"
// response maps to the explicit marker the grader short-circuits on.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	body, contentType, err := audioForm(audio)
	if err != nil {
		return "", err
	}
	var out struct {
		Text       string `json:"text"`
		Understood *bool  `json:"understood,omitempty"`
	}
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		return c.send(req, &out)
	})
	if err != nil {
		return "", err
	}
	if out.Understood != nil && !*out.Understood {
		return "could not understand audio", nil
	}
	return out.Text, nil
}

func audioForm(audio io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", "answer.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		return c.send(req, out)
	})
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.send(req, out)
	})
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("backend: %s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(b)))
		// 4xx (except 429) is deterministic; retrying only burns the
		// backoff budget before surfacing the same answer.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
