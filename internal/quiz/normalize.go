package quiz

import (
	"encoding/json"
	"math/rand"
	"strings"
	"time"
)

// distractorBank is the closed-class pool fill-blank options are padded
// from. Deterministic pool, random subset.
var distractorBank = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"from", "with", "by", "for", "of", "is", "are", "was", "were",
	"be", "have", "has", "had", "do", "does", "not", "very", "quite",
	"some", "any", "many", "much", "few",
}

// Normalizer converts raw backend records into canonical questions.
type Normalizer struct {
	rnd *rand.Rand
}

func NewNormalizer(rnd *rand.Rand) *Normalizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Normalizer{rnd: rnd}
}

// NormalizeAll normalizes each record independently; a malformed record
// yields an Err-flagged question and never aborts the batch.
func (n *Normalizer) NormalizeAll(raw []RawQuestion) []Question {
	out := make([]Question, 0, len(raw))
	for i, r := range raw {
		q := n.Normalize(r)
		q.OrderIndex = i
		out = append(out, q)
	}
	return out
}

func (n *Normalizer) Normalize(r RawQuestion) Question {
	q := Question{ID: r.ID, Type: Type(strings.TrimSpace(r.Type)), Prompt: strings.TrimSpace(r.Prompt)}
	switch q.Type {
	case TypeMCQ:
		n.normalizeMCQ(&q, r)
	case TypeTrueFalse:
		n.normalizeTrueFalse(&q, r)
	case TypeFillBlank:
		n.normalizeFillBlank(&q, r)
	case TypePronunciation:
		n.normalizePronunciation(&q, r)
	case TypeMatch:
		n.normalizeMatch(&q, r)
	default:
		q.Err = true
	}
	return q
}

func (n *Normalizer) normalizeMCQ(q *Question, r RawQuestion) {
	q.Options = optionColumns(r)
	q.CorrectAnswer = strings.TrimSpace(r.CorrectAnswer)
	if len(q.Options) < 2 || q.CorrectAnswer == "" {
		q.Err = true
		return
	}
	// The answer key must name one of the options; canonicalize it to
	// the option's exact text so grading compares one spelling.
	for _, opt := range q.Options {
		if strings.EqualFold(opt, q.CorrectAnswer) {
			q.CorrectAnswer = opt
			return
		}
	}
	q.Err = true
}

func (n *Normalizer) normalizeTrueFalse(q *Question, r RawQuestion) {
	q.Options = []string{"True", "False"}
	switch strings.ToLower(strings.TrimSpace(r.CorrectAnswer)) {
	case "true", "t", "1":
		q.CorrectAnswer = "true"
	case "false", "f", "0":
		q.CorrectAnswer = "false"
	default:
		q.Err = true
	}
}

func (n *Normalizer) normalizeFillBlank(q *Question, r RawQuestion) {
	q.CorrectAnswers = splitTrim(r.CorrectAnswer)
	if len(q.CorrectAnswers) == 0 {
		q.Err = true
		return
	}
	// Upstream may already ship options; keep them verbatim.
	if len(r.Options) > 0 {
		q.Options = r.Options
		return
	}
	q.Options = n.padWithDistractors(q.CorrectAnswers)
}

// padWithDistractors combines the correct answers with 3-5 distractors
// from the closed-class bank and shuffles the result. Correct answers
// are always present.
func (n *Normalizer) padWithDistractors(correct []string) []string {
	taken := map[string]bool{}
	for _, c := range correct {
		taken[strings.ToLower(c)] = true
	}
	pool := make([]string, 0, len(distractorBank))
	for _, w := range distractorBank {
		if !taken[w] {
			pool = append(pool, w)
		}
	}
	n.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	want := 3 + n.rnd.Intn(3)
	if want > len(pool) {
		want = len(pool)
	}
	opts := append(append([]string{}, correct...), pool[:want]...)
	n.rnd.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}

func (n *Normalizer) normalizePronunciation(q *Question, r RawQuestion) {
	q.CorrectAnswer = firstAnswer(r.CorrectAnswer)
	if q.CorrectAnswer == "" {
		q.Err = true
	}
}

// firstAnswer collapses an array-shaped answer field to its first
// element; plain strings pass through.
func firstAnswer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil && len(arr) > 0 {
			return strings.TrimSpace(arr[0])
		}
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// normalizeMatch decodes the compact "D,B,C,A" answer key (i-th token is
// the right item matched to the i-th left letter), then shuffles the
// right column and rewrites the mapping so correctness is stable in the
// new index space.
func (n *Normalizer) normalizeMatch(q *Question, r RawQuestion) {
	q.Left = optionColumns(r)
	q.Right = splitTrim(r.RightColumn)
	tokens := splitTrim(r.CorrectAnswer)
	if len(q.Left) == 0 || len(q.Right) != len(q.Left) || len(tokens) != len(q.Left) {
		q.Err = true
		return
	}

	// Decode letters against the pre-shuffle right column.
	orig := map[string]int{} // left letter -> 0-based right index
	for i, tok := range tokens {
		idx := letterIndex(tok)
		if idx < 0 || idx >= len(q.Right) {
			q.Err = true
			return
		}
		orig[leftLetter(i)] = idx
	}

	perm := n.rnd.Perm(len(q.Right))
	shuffled := make([]string, len(q.Right))
	newPos := make([]int, len(q.Right)) // old index -> new index
	for newIdx, oldIdx := range perm {
		shuffled[newIdx] = q.Right[oldIdx]
		newPos[oldIdx] = newIdx
	}
	q.Right = shuffled

	q.Matches = make(map[string]int, len(orig))
	for letter, oldIdx := range orig {
		q.Matches[letter] = newPos[oldIdx] + 1 // 1-based
	}
}

func leftLetter(i int) string { return string(rune('A' + i)) }

// letterIndex maps "A"->0, "b"->1, ...; -1 on anything else.
func letterIndex(tok string) int {
	tok = strings.TrimSpace(tok)
	if len(tok) != 1 {
		return -1
	}
	c := tok[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	default:
		return -1
	}
}

func optionColumns(r RawQuestion) []string {
	var out []string
	for _, o := range []string{r.OptionA, r.OptionB, r.OptionC, r.OptionD} {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
