package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voxquiz/voxquiz/internal/attempt"
	auth "github.com/voxquiz/voxquiz/internal/auth/middleware"
	"github.com/voxquiz/voxquiz/internal/engine"
	"github.com/voxquiz/voxquiz/internal/integrity"
)

// StartQuizHandler loads (or re-attaches to) the caller's run for a
// subtopic and returns the presentable quiz.
func StartQuizHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		subtopic := chi.URLParam(r, "subtopicID")
		run, err := runs.Acquire(r.Context(), user, subtopic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeQuiz(w, run)
	}
}

// GetQuizHandler returns the live run without creating one.
func GetQuizHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		run, ok := runs.Get(user, chi.URLParam(r, "subtopicID"))
		if !ok {
			http.Error(w, "no active quiz", http.StatusNotFound)
			return
		}
		writeQuiz(w, run)
	}
}

func writeQuiz(w http.ResponseWriter, run *engine.Run) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"heading":       run.Heading(),
		"questions":     run.Questions(),
		"session_state": run.SessionState(),
	})
}

// AnswerHandler grades one spoken answer. JSON bodies carry an already
// transcribed answer; multipart bodies carry the raw recording.
func AnswerHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		run, ok := runs.Get(user, chi.URLParam(r, "subtopicID"))
		if !ok {
			http.Error(w, "no active quiz", http.StatusNotFound)
			return
		}

		var (
			ans engine.Answer
			err error
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if err := r.ParseMultipartForm(10 << 20); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			f, _, ferr := r.FormFile("audio")
			if ferr != nil {
				http.Error(w, "audio file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			ans, err = run.AnswerRecording(r.Context(), r.FormValue("question_id"), f)
		} else {
			var req struct {
				QuestionID string `json:"question_id"`
				Transcript string `json:"transcript"`
			}
			if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
			ans, err = run.AnswerTranscript(r.Context(), req.QuestionID, req.Transcript)
		}
		if err != nil {
			http.Error(w, err.Error(), answerStatus(err))
			return
		}
		_ = json.NewEncoder(w).Encode(ans)
	}
}

func answerStatus(err error) int {
	switch {
	case errors.Is(err, attempt.ErrUnknownQuestion):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrTerminal),
		errors.Is(err, engine.ErrAlreadySubmitted),
		errors.Is(err, engine.ErrRecordingInFlight):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTerminated):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// IntegrityHandler feeds one proctoring event into the run's monitor.
func IntegrityHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		subtopic := chi.URLParam(r, "subtopicID")
		run, ok := runs.Get(user, subtopic)
		if !ok {
			http.Error(w, "no active quiz", http.StatusNotFound)
			return
		}
		var ev integrity.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		act := run.ReportIntegrity(r.Context(), ev)
		if act.Terminate {
			runs.Release(r.Context(), user, subtopic)
		}
		_ = json.NewEncoder(w).Encode(act)
	}
}

// SubmitQuizHandler posts the final score and tears the run down.
func SubmitQuizHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		subtopic := chi.URLParam(r, "subtopicID")
		run, ok := runs.Get(user, subtopic)
		if !ok {
			http.Error(w, "no active quiz", http.StatusNotFound)
			return
		}
		sub, err := run.Submit(r.Context())
		if err != nil {
			http.Error(w, err.Error(), answerStatus(err))
			return
		}
		runs.Release(r.Context(), user, subtopic)
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// CloseQuizHandler is the abrupt-teardown path (tab close, navigation).
func CloseQuizHandler(runs *Runs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := auth.SubjectFromContext(r.Context())
		runs.Release(r.Context(), user, chi.URLParam(r, "subtopicID"))
		w.WriteHeader(http.StatusNoContent)
	}
}
