package grading

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/voxquiz/voxquiz/internal/quiz"
)

// mcqStrategy accepts the correct option's full text or its letter
// (A-E by option position); the transcript is already lowercased so a
// spoken "B" and "b" land the same way.
type mcqStrategy struct{}

func (mcqStrategy) Grade(q quiz.Question, norm string) bool {
	for i, opt := range q.Options {
		if opt != q.CorrectAnswer {
			continue
		}
		if containsWord(norm, strings.ToLower(optionLetter(i))) {
			return true
		}
		if key := Normalize(opt); key != "" && strings.Contains(norm, key) {
			return true
		}
	}
	return false
}

// trueFalseStrategy scans for truth vs falsity tokens. Ambiguous input
// (neither class, or both) never gets credit.
type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q quiz.Question, norm string) bool {
	truthy := containsAnyWord(norm, "true", "yes", "correct", "right")
	falsy := containsAnyWord(norm, "false", "no", "wrong", "incorrect")
	if truthy == falsy {
		return false
	}
	return truthy == (q.CorrectAnswer == "true")
}

// fillBlankStrategy requires every correct answer to appear in the
// transcript: AND semantics, so multi-blank questions need all blanks.
type fillBlankStrategy struct{}

func (fillBlankStrategy) Grade(q quiz.Question, norm string) bool {
	if len(q.CorrectAnswers) == 0 {
		return false
	}
	for _, ans := range q.CorrectAnswers {
		key := Normalize(ans)
		if key == "" || !strings.Contains(norm, key) {
			return false
		}
	}
	return true
}

// pronunciationStrategy is tolerant of partial or extra words from the
// speech engine: containment in either direction, or equality after
// whitespace removal.
type pronunciationStrategy struct{}

func (pronunciationStrategy) Grade(q quiz.Question, norm string) bool {
	key := Normalize(q.CorrectAnswer)
	if key == "" {
		return false
	}
	if strings.Contains(norm, key) || strings.Contains(key, norm) {
		return true
	}
	return stripSpaces(norm) == stripSpaces(key)
}

// matchStrategy checks every left->right pair against four adjacency
// patterns; any one pattern satisfies the pair, and all pairs must be
// satisfied for the question to be correct.
type matchStrategy struct{}

func (matchStrategy) Grade(q quiz.Question, norm string) bool {
	if len(q.Matches) == 0 {
		return false
	}
	for i, left := range q.Left {
		letter := optionLetter(i)
		idx, ok := q.Matches[letter]
		if !ok || idx < 1 || idx > len(q.Right) {
			return false
		}
		if !pairSatisfied(norm, letter, idx, left, q.Right[idx-1]) {
			return false
		}
	}
	return true
}

func pairSatisfied(norm, letter string, idx int, leftText, rightText string) bool {
	l := strings.ToLower(letter)
	lt := regexp.QuoteMeta(Normalize(leftText))
	rt := regexp.QuoteMeta(Normalize(rightText))
	patterns := []string{
		fmt.Sprintf(`\b%s\W*%d\b`, l, idx), // "a 3", "a-3"
		fmt.Sprintf(`\b%d\W*%s\b`, idx, l), // "3 a"
		lt + `.*` + rt,                     // "cat ... meow"
		rt + `.*` + lt,                     // "meow ... cat"
	}
	for _, p := range patterns {
		if matched, err := regexp.MatchString(p, norm); err == nil && matched {
			return true
		}
	}
	return false
}
