package grading_test

import (
	"testing"

	"github.com/voxquiz/voxquiz/internal/grading"
	"github.com/voxquiz/voxquiz/internal/quiz"
)

func mcqQuestion() quiz.Question {
	return quiz.Question{
		ID:            "q1",
		Type:          quiz.TypeMCQ,
		Options:       []string{"Paris", "London", "Rome"},
		CorrectAnswer: "London",
	}
}

func TestMCQAcceptsTextAndLetter(t *testing.T) {
	g := grading.NewGrader()
	q := mcqQuestion()

	for _, transcript := range []string{"b", "B", "london", "i think it is London"} {
		res := g.Grade(q, transcript)
		if !res.Correct {
			t.Errorf("transcript %q: want correct", transcript)
		}
	}
	if res := g.Grade(q, "paris"); res.Correct {
		t.Errorf("transcript %q: want incorrect", "paris")
	}
	if res := g.Grade(q, "a"); res.Correct {
		t.Errorf("wrong letter graded correct")
	}
}

func TestMCQGradesNormalizedCaseMismatchedKey(t *testing.T) {
	// The backend sometimes ships the key in a different case than the
	// option text; after normalization the question must stay gradable.
	q := quiz.NewNormalizer(nil).Normalize(quiz.RawQuestion{
		ID: "q1", Type: "mcq",
		OptionA: "Paris", OptionB: "London",
		CorrectAnswer: "london",
	})
	if q.Err {
		t.Fatalf("unexpected error flag")
	}
	g := grading.NewGrader()
	for _, transcript := range []string{"london", "b", "it is London"} {
		if res := g.Grade(q, transcript); !res.Correct {
			t.Errorf("transcript %q: want correct", transcript)
		}
	}
}

func TestMCQCorrectText(t *testing.T) {
	res := grading.NewGrader().Grade(mcqQuestion(), "paris")
	if res.CorrectText != "B) London" {
		t.Fatalf("correct text = %q, want %q", res.CorrectText, "B) London")
	}
}

func TestTrueFalseTokenScan(t *testing.T) {
	g := grading.NewGrader()
	q := quiz.Question{ID: "q2", Type: quiz.TypeTrueFalse, CorrectAnswer: "true"}

	cases := []struct {
		transcript string
		correct    bool
	}{
		{"yes that is correct", true},
		{"true", true},
		{"no", false},
		{"false", false},
		{"bananas", false},     // neither class: never credit
		{"yes no maybe", false}, // both classes: ambiguous
	}
	for _, c := range cases {
		if res := g.Grade(q, c.transcript); res.Correct != c.correct {
			t.Errorf("transcript %q: correct = %v, want %v", c.transcript, res.Correct, c.correct)
		}
	}

	qFalse := quiz.Question{ID: "q3", Type: quiz.TypeTrueFalse, CorrectAnswer: "false"}
	if res := g.Grade(qFalse, "no that is wrong"); !res.Correct {
		t.Errorf("falsity tokens should match correct_answer=false")
	}
}

func TestFillBlankRequiresEveryAnswer(t *testing.T) {
	g := grading.NewGrader()
	q := quiz.Question{ID: "q4", Type: quiz.TypeFillBlank, CorrectAnswers: []string{"go", "school"}}

	if res := g.Grade(q, "i go to school daily"); !res.Correct {
		t.Errorf("all answers present: want correct")
	}
	if res := g.Grade(q, "i go daily"); res.Correct {
		t.Errorf("missing answer: want incorrect (AND semantics)")
	}
	if res := g.Grade(q, "school first then go"); !res.Correct {
		t.Errorf("order must not matter")
	}
}

func TestPronunciationTolerance(t *testing.T) {
	g := grading.NewGrader()
	q := quiz.Question{ID: "q5", Type: quiz.TypePronunciation, CorrectAnswer: "hello world"}

	for _, transcript := range []string{
		"hello world",
		"um hello world thanks", // extra words
		"hello",                 // partial: transcript inside the key
		"helloworld",            // equal after whitespace removal
	} {
		if res := g.Grade(q, transcript); !res.Correct {
			t.Errorf("transcript %q: want correct", transcript)
		}
	}
	if res := g.Grade(q, "goodbye moon"); res.Correct {
		t.Errorf("unrelated transcript graded correct")
	}
}

func matchQuestion() quiz.Question {
	return quiz.Question{
		ID:      "q6",
		Type:    quiz.TypeMatch,
		Left:    []string{"cat", "dog"},
		Right:   []string{"bark", "meow"},
		Matches: map[string]int{"A": 2, "B": 1},
	}
}

func TestMatchAllPairsRequired(t *testing.T) {
	g := grading.NewGrader()
	q := matchQuestion()

	if res := g.Grade(q, "a 2 b 1"); !res.Correct {
		t.Errorf("letter-number pairs: want correct")
	}
	if res := g.Grade(q, "2 a 1 b"); !res.Correct {
		t.Errorf("number-letter pairs: want correct")
	}
	if res := g.Grade(q, "cat goes meow and dog goes bark"); !res.Correct {
		t.Errorf("text adjacency pairs: want correct")
	}
	if res := g.Grade(q, "meow for cat, bark for dog"); !res.Correct {
		t.Errorf("reversed text adjacency: want correct")
	}
	// One satisfied pair out of two is not enough.
	if res := g.Grade(q, "a 2"); res.Correct {
		t.Errorf("partial pairs graded correct")
	}
	if res := g.Grade(q, "a 1 b 2"); res.Correct {
		t.Errorf("wrong mapping graded correct")
	}
}

func TestUnclearTranscriptShortCircuits(t *testing.T) {
	g := grading.NewGrader()
	q := mcqQuestion()

	for _, transcript := range []string{"", "   ", "Could not understand audio."} {
		res := g.Grade(q, transcript)
		if !res.Unclear {
			t.Errorf("transcript %q: want unclear", transcript)
		}
		if res.Correct {
			t.Errorf("transcript %q: unclear must never be correct", transcript)
		}
	}
}

func TestMalformedQuestionNeverCorrect(t *testing.T) {
	g := grading.NewGrader()
	q := quiz.Question{ID: "q7", Type: quiz.TypeMCQ, Err: true}
	if res := g.Grade(q, "anything at all"); res.Correct {
		t.Fatalf("error-flagged question graded correct")
	}
}
