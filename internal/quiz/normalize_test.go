package quiz_test

import (
	"math/rand"
	"testing"

	"github.com/voxquiz/voxquiz/internal/quiz"
)

func newNormalizer() *quiz.Normalizer {
	return quiz.NewNormalizer(rand.New(rand.NewSource(1)))
}

func TestNormalizeMCQ(t *testing.T) {
	q := newNormalizer().Normalize(quiz.RawQuestion{
		ID: "q1", Type: "mcq", Prompt: " Capital of the UK? ",
		OptionA: "Paris", OptionB: " London ", OptionC: "Rome",
		CorrectAnswer: " London ",
	})
	if q.Err {
		t.Fatalf("unexpected error flag")
	}
	if len(q.Options) != 3 || q.Options[1] != "London" {
		t.Fatalf("options = %v", q.Options)
	}
	if q.CorrectAnswer != "London" {
		t.Fatalf("correct answer = %q", q.CorrectAnswer)
	}
	if q.Prompt != "Capital of the UK?" {
		t.Fatalf("prompt = %q", q.Prompt)
	}
}

func TestNormalizeMCQAnswerKeyCanonicalized(t *testing.T) {
	n := newNormalizer()
	// A case-mismatched key maps onto the option's spelling so the
	// question stays answerable.
	q := n.Normalize(quiz.RawQuestion{
		ID: "q1a", Type: "mcq",
		OptionA: "Paris", OptionB: "London",
		CorrectAnswer: "london",
	})
	if q.Err {
		t.Fatalf("case-mismatched key must not flag an error")
	}
	if q.CorrectAnswer != "London" {
		t.Fatalf("correct answer = %q, want option spelling", q.CorrectAnswer)
	}
	// A key naming no option at all is malformed.
	if q2 := n.Normalize(quiz.RawQuestion{
		ID: "q1b", Type: "mcq",
		OptionA: "Paris", OptionB: "London",
		CorrectAnswer: "Berlin",
	}); !q2.Err {
		t.Fatalf("key outside the options must flag an error")
	}
}

func TestNormalizeTrueFalseCasefold(t *testing.T) {
	n := newNormalizer()
	q := n.Normalize(quiz.RawQuestion{ID: "q2", Type: "true_false", CorrectAnswer: "TRUE"})
	if q.Err || q.CorrectAnswer != "true" {
		t.Fatalf("got %+v, want correct_answer=true", q)
	}
	if q2 := n.Normalize(quiz.RawQuestion{ID: "q3", Type: "true_false", CorrectAnswer: "maybe"}); !q2.Err {
		t.Fatalf("ambiguous boolean must flag an error")
	}
}

func TestNormalizeFillBlankDistractors(t *testing.T) {
	q := newNormalizer().Normalize(quiz.RawQuestion{
		ID: "q4", Type: "fill_blank", CorrectAnswer: "go, school",
	})
	if q.Err {
		t.Fatalf("unexpected error flag")
	}
	if len(q.CorrectAnswers) != 2 || q.CorrectAnswers[0] != "go" || q.CorrectAnswers[1] != "school" {
		t.Fatalf("correct answers = %v", q.CorrectAnswers)
	}
	// 2 correct + 3..5 distractors, correct answers guaranteed present.
	if len(q.Options) < 5 || len(q.Options) > 7 {
		t.Fatalf("option count = %d", len(q.Options))
	}
	for _, want := range q.CorrectAnswers {
		found := false
		for _, o := range q.Options {
			if o == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("correct answer %q missing from options %v", want, q.Options)
		}
	}
}

func TestNormalizeFillBlankKeepsSuppliedOptions(t *testing.T) {
	supplied := []string{"go", "school", "run", "fish"}
	q := newNormalizer().Normalize(quiz.RawQuestion{
		ID: "q5", Type: "fill_blank", CorrectAnswer: "go,school", Options: supplied,
	})
	if len(q.Options) != 4 {
		t.Fatalf("supplied options replaced: %v", q.Options)
	}
	for i, o := range q.Options {
		if o != supplied[i] {
			t.Fatalf("supplied options reordered: %v", q.Options)
		}
	}
}

func TestNormalizePronunciationCollapsesArrays(t *testing.T) {
	n := newNormalizer()
	if q := n.Normalize(quiz.RawQuestion{ID: "q6", Type: "pronunciation", CorrectAnswer: `["hello","world"]`}); q.CorrectAnswer != "hello" {
		t.Fatalf("json array: correct answer = %q", q.CorrectAnswer)
	}
	if q := n.Normalize(quiz.RawQuestion{ID: "q7", Type: "pronunciation", CorrectAnswer: "first, second"}); q.CorrectAnswer != "first" {
		t.Fatalf("comma list: correct answer = %q", q.CorrectAnswer)
	}
}

func TestNormalizeMatchShuffleKeepsMapping(t *testing.T) {
	// A->meow, B->bark, C->tweet before the right column is shuffled.
	raw := quiz.RawQuestion{
		ID: "q8", Type: "match",
		OptionA: "cat", OptionB: "dog", OptionC: "bird",
		RightColumn:   "meow, bark, tweet",
		CorrectAnswer: "A,B,C",
	}
	want := map[string]string{"A": "meow", "B": "bark", "C": "tweet"}

	for seed := int64(0); seed < 10; seed++ {
		q := quiz.NewNormalizer(rand.New(rand.NewSource(seed))).Normalize(raw)
		if q.Err {
			t.Fatalf("seed %d: unexpected error flag", seed)
		}
		for letter, wantRight := range want {
			idx, ok := q.Matches[letter]
			if !ok || idx < 1 || idx > len(q.Right) {
				t.Fatalf("seed %d: bad index for %s: %d", seed, letter, idx)
			}
			if got := q.Right[idx-1]; got != wantRight {
				t.Fatalf("seed %d: %s -> %q, want %q", seed, letter, got, wantRight)
			}
		}
	}
}

func TestNormalizeMatchMalformed(t *testing.T) {
	n := newNormalizer()
	// Token count disagrees with the left column.
	q := n.Normalize(quiz.RawQuestion{
		ID: "q9", Type: "match",
		OptionA: "cat", OptionB: "dog",
		RightColumn:   "meow, bark",
		CorrectAnswer: "A",
	})
	if !q.Err {
		t.Fatalf("short answer key must flag an error")
	}
}

func TestNormalizeAllIsolatesBadRecords(t *testing.T) {
	out := newNormalizer().NormalizeAll([]quiz.RawQuestion{
		{ID: "good", Type: "true_false", CorrectAnswer: "false"},
		{ID: "bad", Type: "match"}, // empty columns
		{ID: "weird", Type: "essay", CorrectAnswer: "x"},
	})
	if len(out) != 3 {
		t.Fatalf("batch length = %d", len(out))
	}
	if out[0].Err || out[0].CorrectAnswer != "false" {
		t.Fatalf("good record mangled: %+v", out[0])
	}
	if !out[1].Err || !out[2].Err {
		t.Fatalf("bad records not flagged: %+v %+v", out[1], out[2])
	}
	for i, q := range out {
		if q.OrderIndex != i {
			t.Fatalf("order index %d = %d", i, q.OrderIndex)
		}
	}
}
