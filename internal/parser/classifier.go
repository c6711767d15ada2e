package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/formgest/internal/form"
)

var questionWords = []string{
	"what", "how", "why", "when", "where", "which", "who",
	"describe", "explain", "tell", "select", "choose", "rate",
	"provide", "frequent", "reported", "satisfied", "condition",
}

var actionWords = []string{"please", "rate", "select", "choose", "provide", "mention"}

// Words that mark a raw payload entry as an input prompt.
var promptWords = []string{"please", "enter", "fill"}

var optionLexicon = []string{
	"excellent", "good", "average", "poor",
	"very satisfied", "satisfied", "neutral", "dissatisfied", "very dissatisfied",
	"clear selection", "your answer",
}

var facilityNames = []string{
	"restrooms", "library", "cafeteria", "canteen", "sports facilities",
	"laboratories", "drinking water stations", "parking areas",
	"seating in common areas", "campus greenery", "landscaping",
}

// Words in a raw entry head that mark layout rather than content.
var layoutWords = []string{"page", "section", "header"}

var (
	questionWordRe = wordFormRe(questionWords)
	actionWordRe   = wordFormRe(actionWords)
	promptWordRe   = wordFormRe(promptWords)
	optionPhraseRe = phraseRe(append(append([]string{}, optionLexicon...), facilityNames...))

	optionSet = func() map[string]bool {
		m := make(map[string]bool, len(optionLexicon)+len(facilityNames))
		for _, w := range optionLexicon {
			m[w] = true
		}
		for _, w := range facilityNames {
			m[w] = true
		}
		return m
	}()
)

// wordFormRe matches any of words as a whole word, allowing a plain
// inflection so "frequent" also hits "frequently" and "rate" hits "rated".
func wordFormRe(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)(?:s|d|ed|ly|ing)?\b`)
}

// phraseRe matches whole phrases only.
func phraseRe(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Classifier decides whether a fragment is a question stem or an answer
// option. The two predicates are never both true for the same text.
type Classifier struct {
	th form.Thresholds
}

// NewClassifier returns a classifier using th, with zero fields defaulted.
func NewClassifier(th form.Thresholds) *Classifier {
	return &Classifier{th: th.WithDefaults()}
}

// IsQuestion reports whether text reads as a question stem.
func (c *Classifier) IsQuestion(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || c.IsOption(text) {
		return false
	}
	if !hasQuestionCue(text) {
		return false
	}
	if utf8.RuneCountInString(text) > c.th.MinQuestionLength {
		return true
	}
	// Short stems need a '?' and a question word; "Yes or no?" is an option.
	return strings.Contains(text, "?") && questionWordRe.MatchString(text) &&
		len(strings.Fields(text)) >= c.th.MinPromptWords
}

// IsOption reports whether text reads as an answer option.
func (c *Classifier) IsOption(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if matchesOptionLexicon(text) {
		return true
	}

	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))

	if runes < c.th.ShortOptionLength && words <= c.th.ShortOptionWords &&
		!strings.Contains(text, "?") && !questionWordRe.MatchString(text) {
		return true
	}
	return words <= c.th.TinyOptionWords && runes < c.th.TinyOptionLength
}

// matchesOptionLexicon is true for an exact lexicon entry, or for text that
// contains one as a whole phrase and carries no question cue. A stem such as
// "How would you rate our library?" names a facility without being one.
func matchesOptionLexicon(text string) bool {
	norm := normalize(text)
	if optionSet[strings.TrimRight(norm, ".:!")] {
		return true
	}
	return optionPhraseRe.MatchString(norm) && !hasQuestionCue(text)
}

func hasQuestionCue(text string) bool {
	return strings.Contains(text, "?") || questionWordRe.MatchString(text) || actionWordRe.MatchString(text)
}

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// isQuestionShaped is the raw payload check: an array of at least two
// elements headed by a non-empty, non-layout string that carries a question
// word, a '?', or an input prompt word.
func isQuestionShaped(v any) bool {
	item, ok := v.([]any)
	if !ok || len(item) < 2 {
		return false
	}
	head, ok := item[0].(string)
	if !ok || strings.TrimSpace(head) == "" {
		return false
	}
	lower := strings.ToLower(head)
	for _, w := range layoutWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return questionWordRe.MatchString(head) || strings.Contains(head, "?") || promptWordRe.MatchString(head)
}

// containsQuestions reports whether enough elements of arr are question-shaped.
func (c *Classifier) containsQuestions(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	n := 0
	for _, item := range arr {
		if isQuestionShaped(item) {
			n++
		}
	}
	return n > 0 && float64(n) >= float64(len(arr))*c.th.QuestionArrayRatio
}
