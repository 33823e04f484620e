package grading

import (
	"strings"

	"github.com/voxquiz/voxquiz/internal/quiz"
)

// Result is the outcome of grading one transcript against one question.
type Result struct {
	Correct bool `json:"correct"`
	// Unclear means the transcript was unusable (empty, or the speech
	// collaborator's "not understood" marker). It still consumes an
	// attempt but is never semantically correct.
	Unclear     bool   `json:"unclear"`
	CorrectText string `json:"correct_text"`
}

// unclearMarkers are the speech collaborator's explicit failure phrases.
var unclearMarkers = []string{
	"could not understand",
	"couldnt understand",
	"didnt catch that",
	"no speech detected",
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(q quiz.Question, transcript string) bool
}

// Grader routes a normalized transcript to the strategy for the
// question's type tag.
type Grader struct {
	strategies map[quiz.Type]Strategy
}

// NewGrader installs the built-in per-type strategies.
func NewGrader() *Grader {
	return &Grader{
		strategies: map[quiz.Type]Strategy{
			quiz.TypeMCQ:           mcqStrategy{},
			quiz.TypeTrueFalse:     trueFalseStrategy{},
			quiz.TypeFillBlank:     fillBlankStrategy{},
			quiz.TypePronunciation: pronunciationStrategy{},
			quiz.TypeMatch:         matchStrategy{},
		},
	}
}

// Grade normalizes the transcript, short-circuits unusable input, and
// dispatches by type. Malformed questions always grade incorrect.
func (g *Grader) Grade(q quiz.Question, transcript string) Result {
	res := Result{CorrectText: CorrectText(q)}
	norm := Normalize(transcript)
	if norm == "" || hasUnclearMarker(norm) {
		res.Unclear = true
		return res
	}
	if q.Err {
		return res
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		return res
	}
	res.Correct = s.Grade(q, norm)
	return res
}

func hasUnclearMarker(norm string) bool {
	for _, m := range unclearMarkers {
		if strings.Contains(norm, m) {
			return true
		}
	}
	return false
}

// CorrectText renders the answer key for display at reveal time.
func CorrectText(q quiz.Question) string {
	switch q.Type {
	case quiz.TypeMCQ:
		for i, opt := range q.Options {
			if opt == q.CorrectAnswer {
				return optionLetter(i) + ") " + opt
			}
		}
		return q.CorrectAnswer
	case quiz.TypeTrueFalse:
		if q.CorrectAnswer == "true" {
			return "True"
		}
		return "False"
	case quiz.TypeFillBlank:
		return strings.Join(q.CorrectAnswers, ", ")
	case quiz.TypeMatch:
		pairs := make([]string, 0, len(q.Left))
		for i := range q.Left {
			letter := optionLetter(i)
			if idx, ok := q.Matches[letter]; ok && idx >= 1 && idx <= len(q.Right) {
				pairs = append(pairs, letter+" - "+q.Right[idx-1])
			}
		}
		return strings.Join(pairs, ", ")
	default:
		return q.CorrectAnswer
	}
}

func optionLetter(i int) string { return string(rune('A' + i)) }
