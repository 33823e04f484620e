package quiz

// Type tags the grading semantics of a question.
type Type string

const (
	TypeMCQ           Type = "mcq"
	TypeTrueFalse     Type = "true_false"
	TypeFillBlank     Type = "fill_blank"
	TypePronunciation Type = "pronunciation"
	TypeMatch         Type = "match"
)

// RawQuestion mirrors the backend's question record: free-form option
// columns and a delimited correct_answer string, shape varying by type.
type RawQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Prompt        string   `json:"question"`
	OptionA       string   `json:"option_a,omitempty"`
	OptionB       string   `json:"option_b,omitempty"`
	OptionC       string   `json:"option_c,omitempty"`
	OptionD       string   `json:"option_d,omitempty"`
	RightColumn   string   `json:"right_column,omitempty"` // match: comma-separated right items
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options,omitempty"` // optional pre-built options (fill_blank)
}

// Question is the canonical per-type shape. Immutable after
// normalization; the match right column is permuted exactly once, inside
// Normalize, and Matches is rewritten against the permuted indices.
type Question struct {
	ID         string `json:"id"`
	Type       Type   `json:"type"`
	Prompt     string `json:"prompt"`
	OrderIndex int    `json:"order_index"`

	Options        []string `json:"options,omitempty"`         // mcq, true_false, fill_blank
	CorrectAnswer  string   `json:"correct_answer,omitempty"`  // mcq, true_false, pronunciation
	CorrectAnswers []string `json:"correct_answers,omitempty"` // fill_blank

	Left    []string       `json:"left,omitempty"`    // match
	Right   []string       `json:"right,omitempty"`   // match, shuffled
	Matches map[string]int `json:"matches,omitempty"` // match: left letter -> 1-based right index

	// Err marks a malformed source record. The question is still
	// presented but always grades incorrect.
	Err bool `json:"error,omitempty"`
}

// Result is the grading outcome recorded for a question.
type Result string

const (
	ResultPending   Result = "pending"
	ResultCorrect   Result = "correct"
	ResultIncorrect Result = "incorrect"
)

// AttemptState is the per-question progress record. Created once at quiz
// load and mutated only by the attempt tracker; never reset in-session.
type AttemptState struct {
	AttemptsUsed int    `json:"attempts_used"`
	Revealed     bool   `json:"revealed"`
	LastResult   Result `json:"last_result"`
	Transcript   string `json:"recorded_transcript,omitempty"`
}

// ScoreResult is derived on demand from attempt states at submission.
type ScoreResult struct {
	MarksObtained int `json:"marks_obtained"`
	MaxMarks      int `json:"max_marks"`
}

// Score counts questions whose last grading pass was correct. MaxMarks
// is the full question count, malformed questions included.
func Score(questions []Question, states map[string]AttemptState) ScoreResult {
	res := ScoreResult{MaxMarks: len(questions)}
	for _, q := range questions {
		if states[q.ID].LastResult == ResultCorrect {
			res.MarksObtained++
		}
	}
	return res
}
