// Package engine drives one proctored quiz run end to end: load and
// order questions, grade spoken answers, track attempts, watch
// integrity events, and close out the server-tracked session.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/voxquiz/voxquiz/internal/attempt"
	"github.com/voxquiz/voxquiz/internal/audit"
	"github.com/voxquiz/voxquiz/internal/backend"
	"github.com/voxquiz/voxquiz/internal/grading"
	"github.com/voxquiz/voxquiz/internal/integrity"
	"github.com/voxquiz/voxquiz/internal/quiz"
	"github.com/voxquiz/voxquiz/internal/session"
	"github.com/voxquiz/voxquiz/internal/storage"
)

// Backend is the remote LMS surface the engine consumes.
type Backend interface {
	session.API
	FetchQuestions(ctx context.Context, subtopicID string) ([]quiz.RawQuestion, error)
	FetchSubtopic(ctx context.Context, subtopicID string) (backend.Subtopic, error)
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
	SubmitScore(ctx context.Context, userID, subtopicID string, score quiz.ScoreResult) (backend.SubmitAck, error)
}

// Recorder is the optional audit sink.
type Recorder interface {
	Append(ctx context.Context, e audit.Event) error
}

var (
	ErrTerminated        = errors.New("engine: run terminated by integrity monitor")
	ErrAlreadySubmitted  = errors.New("engine: quiz already submitted")
	ErrRecordingInFlight = errors.New("engine: a recording is already being analyzed")
)

type Config struct {
	UserID     string
	SubtopicID string
	API        Backend
	Blobs      storage.BlobStore // optional; recordings kept when set
	Orders     *quiz.OrderCache
	Normalizer *quiz.Normalizer
	Audit      Recorder // optional
}

// Run is one live quiz for one (user, subtopic) pair.
type Run struct {
	userID     string
	subtopicID string
	heading    string

	questions []quiz.Question // presentation order
	byID      map[string]quiz.Question

	grader    *grading.Grader
	tracker   *attempt.Tracker
	lifecycle *session.Lifecycle
	monitor   *integrity.Monitor
	api       Backend
	blobs     storage.BlobStore
	orders    *quiz.OrderCache
	audit     Recorder

	mu        sync.Mutex
	recording bool
	submitted bool
	closed    bool
}

// Load fetches and normalizes the subtopic's questions, applies the
// cached order, and starts the tracked session. A session start failure
// is surfaced in logs only: quiz-taking proceeds sessionless.
func Load(ctx context.Context, cfg Config) (*Run, error) {
	raw, err := cfg.API.FetchQuestions(ctx, cfg.SubtopicID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("subtopic %s has no questions", cfg.SubtopicID)
	}

	norm := cfg.Normalizer
	if norm == nil {
		norm = quiz.NewNormalizer(nil)
	}
	questions := norm.NormalizeAll(raw)

	r := &Run{
		userID:     cfg.UserID,
		subtopicID: cfg.SubtopicID,
		grader:     grading.NewGrader(),
		lifecycle:  session.NewLifecycle(cfg.API, cfg.UserID, cfg.SubtopicID),
		monitor:    integrity.NewMonitor(),
		api:        cfg.API,
		blobs:      cfg.Blobs,
		orders:     cfg.Orders,
		audit:      cfg.Audit,
	}

	if meta, err := cfg.API.FetchSubtopic(ctx, cfg.SubtopicID); err != nil {
		log.Printf("run %s: subtopic metadata: %v", r.key(), err)
	} else {
		r.heading = meta.Heading
	}

	ids := make([]string, len(questions))
	byID := make(map[string]quiz.Question, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		byID[q.ID] = q
	}
	order := ids
	if r.orders != nil {
		order = r.orders.Order(ctx, r.key(), ids)
	}
	r.questions = make([]quiz.Question, 0, len(order))
	for i, id := range order {
		q := byID[id]
		q.OrderIndex = i
		r.questions = append(r.questions, q)
		byID[id] = q
	}
	r.byID = byID
	r.tracker = attempt.NewTracker(order)

	if err := r.lifecycle.Start(ctx); err != nil {
		// Non-blocking: submission is the authoritative completion signal.
		log.Printf("run %s: session start: %v", r.key(), err)
	}
	return r, nil
}

func (r *Run) key() string { return r.userID + "|" + r.subtopicID }

func (r *Run) Heading() string { return r.heading }

func (r *Run) SessionState() session.State { return r.lifecycle.State() }

// Questions returns the ordered questions with answer keys stripped,
// safe to hand to the client.
func (r *Run) Questions() []quiz.Question {
	out := make([]quiz.Question, len(r.questions))
	for i, q := range r.questions {
		q.CorrectAnswer = ""
		q.CorrectAnswers = nil
		q.Matches = nil
		out[i] = q
	}
	return out
}

// Answer is the outcome of one graded attempt.
type Answer struct {
	QuestionID   string            `json:"question_id"`
	Correct      bool              `json:"correct"`
	Unclear      bool              `json:"unclear"`
	State        quiz.AttemptState `json:"state"`
	AttemptsLeft int               `json:"attempts_left"`
	CanAdvance   bool              `json:"can_advance"`
	CorrectText  string            `json:"correct_text,omitempty"` // only once revealed
}

// AnswerTranscript grades one transcript for one question and applies
// the attempt policy. Grading completes before this returns, so the
// "next" gate (CanAdvance) can never observe a half-applied attempt.
func (r *Run) AnswerTranscript(ctx context.Context, questionID, transcript string) (Answer, error) {
	if err := r.answerGuard(); err != nil {
		return Answer{}, err
	}
	q, ok := r.byID[questionID]
	if !ok {
		return Answer{}, attempt.ErrUnknownQuestion
	}
	res := r.grader.Grade(q, transcript)
	st, err := r.tracker.Record(questionID, res.Correct, transcript)
	if err != nil {
		return Answer{}, err
	}
	ans := Answer{
		QuestionID:   questionID,
		Correct:      res.Correct,
		Unclear:      res.Unclear,
		State:        st,
		AttemptsLeft: r.tracker.AttemptsLeft(questionID),
		CanAdvance:   r.tracker.CanAdvance(questionID),
	}
	if st.Revealed {
		ans.CorrectText = res.CorrectText
	}
	return ans, nil
}

// AnswerRecording keeps the audio blob, has it transcribed, and grades
// the transcript. Only one recording may be in flight per run.
func (r *Run) AnswerRecording(ctx context.Context, questionID string, audio io.Reader) (Answer, error) {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return Answer{}, ErrRecordingInFlight
	}
	r.recording = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
	}()

	if err := r.answerGuard(); err != nil {
		return Answer{}, err
	}

	buf, err := io.ReadAll(audio)
	if err != nil {
		return Answer{}, fmt.Errorf("read recording: %w", err)
	}
	if r.blobs != nil {
		key := r.key() + "/" + questionID + "/" + uuid.NewString() + ".wav"
		if _, err := r.blobs.Put(key, bytes.NewReader(buf)); err != nil {
			log.Printf("run %s: keep recording: %v", r.key(), err)
		}
	}
	transcript, err := r.api.Transcribe(ctx, bytes.NewReader(buf))
	if err != nil {
		return Answer{}, fmt.Errorf("transcribe: %w", err)
	}
	return r.AnswerTranscript(ctx, questionID, transcript)
}

func (r *Run) answerGuard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.monitor.Terminated() {
		return ErrTerminated
	}
	if r.submitted {
		return ErrAlreadySubmitted
	}
	return nil
}

// ReportIntegrity feeds one normalized proctoring event through the
// monitor. A terminating action tears the run down (session end fires
// once); the caller is expected to force navigation away.
func (r *Run) ReportIntegrity(ctx context.Context, ev integrity.Event) integrity.Action {
	act := r.monitor.Handle(ev)
	if act.Warn > 0 || act.Terminate || act.Blocked != "" {
		r.record(ctx, "IntegrityEvent", map[string]interface{}{
			"event": ev, "warnings": r.monitor.Warnings(), "terminated": act.Terminate,
		})
	}
	if act.Terminate {
		r.Close(ctx)
	}
	return act
}

// Score recomputes the result from attempt states; nothing is cached.
func (r *Run) Score() quiz.ScoreResult {
	return quiz.Score(r.questions, r.tracker.Snapshot())
}

// Submission is the outcome of the final score post. AlreadyCompleted
// is a success path that skips the score display client-side.
type Submission struct {
	Score            quiz.ScoreResult `json:"score"`
	AlreadyCompleted bool             `json:"already_completed"`
}

// Submit posts the final score, clears the cached order, and ends the
// session. A failed post leaves the run open so the user can retry.
func (r *Run) Submit(ctx context.Context) (Submission, error) {
	r.mu.Lock()
	if r.submitted {
		r.mu.Unlock()
		return Submission{}, ErrAlreadySubmitted
	}
	r.mu.Unlock()

	score := r.Score()
	ack, err := r.api.SubmitScore(ctx, r.userID, r.subtopicID, score)
	if err != nil {
		return Submission{}, fmt.Errorf("submit score: %w", err)
	}

	r.mu.Lock()
	r.submitted = true
	r.mu.Unlock()

	if r.orders != nil {
		r.orders.Clear(ctx, r.key())
	}
	r.record(ctx, "QuizSubmitted", map[string]interface{}{
		"marks": score.MarksObtained, "max": score.MaxMarks, "already_completed": ack.AlreadyCompleted,
	})
	r.Close(ctx)
	return Submission{Score: score, AlreadyCompleted: ack.AlreadyCompleted}, nil
}

// Close is the teardown path shared by submission, integrity
// termination and abrupt unmount. Safe to call any number of times;
// the session end fires at most once.
func (r *Run) Close(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	if err := r.lifecycle.End(ctx); err != nil {
		log.Printf("run %s: session end: %v", r.key(), err)
	}
}

func (r *Run) record(ctx context.Context, typ string, data map[string]interface{}) {
	if r.audit == nil {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := r.audit.Append(ctx, audit.Event{RunKey: r.key(), Type: typ, DataJSON: string(b)}); err != nil {
		log.Printf("run %s: audit %s: %v", r.key(), typ, err)
	}
}
