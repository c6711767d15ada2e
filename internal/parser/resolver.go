package parser

import (
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

// Positions inside a payload item array.
const (
	fieldKind        = 1
	fieldConstraints = 3
	fieldMarkers     = 4
)

// Resolver assigns answer types and declared options to grouped stems.
type Resolver struct {
	th form.Thresholds
}

// NewResolver returns a resolver using th, with zero fields defaulted.
func NewResolver(th form.Thresholds) *Resolver {
	return &Resolver{th: th.WithDefaults()}
}

// Resolve turns a grouped stem into a Question. Missing or oddly shaped
// fields fall through to the next rule; nothing here fails.
func (r *Resolver) Resolve(g GroupedQuestion) form.Question {
	typ := r.Type(g)
	q := form.Question{Text: g.Stem.Text, Type: typ, Options: []string{}}
	if typ.IsChoice() {
		q.Options = r.Options(g)
	}
	return q
}

// Type applies the type rules in order.
func (r *Resolver) Type(g GroupedQuestion) form.QuestionType {
	fields := g.Stem.Fields

	if markers, ok := field(fields, fieldMarkers).([]any); ok {
		if containsNumber(markers, 0, 1) {
			return form.MultipleChoice
		}
		if containsNumber(markers, 2) {
			return form.Checkboxes
		}
	}

	kind := kindText(field(fields, fieldKind))
	switch {
	case strings.Contains(kind, "paragraph"):
		return form.LongAnswer
	case strings.Contains(kind, "short"):
		return form.ShortAnswer
	case strings.Contains(kind, "text"):
		if r.maxLength(fields) > r.th.LongAnswerMinLength {
			return form.LongAnswer
		}
		return form.ShortAnswer
	}

	if len(g.Options) > 0 {
		return form.MultipleChoice
	}
	return form.ShortAnswer
}

// Options returns the declared options from the item's structure, else the
// grouped option texts.
func (r *Resolver) Options(g GroupedQuestion) []string {
	for _, idx := range []int{fieldKind, fieldMarkers} {
		if opts := optionList(field(g.Stem.Fields, idx)); len(opts) > 0 {
			return opts
		}
	}
	return append([]string{}, g.Options...)
}

func (r *Resolver) maxLength(fields []any) int {
	if constraints, ok := field(fields, fieldConstraints).([]any); ok {
		for _, v := range constraints {
			if n, ok := v.(float64); ok && n > 0 {
				return int(n)
			}
		}
	}
	return r.th.DefaultMaxLength
}

func field(fields []any, i int) any {
	if i < 0 || i >= len(fields) {
		return nil
	}
	return fields[i]
}

func containsNumber(arr []any, want ...float64) bool {
	for _, v := range arr {
		n, ok := v.(float64)
		if !ok {
			continue
		}
		for _, w := range want {
			if n == w {
				return true
			}
		}
	}
	return false
}

// kindText lower-cases the input-kind field, which is either a string or an
// array of strings.
func kindText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.ToLower(t)
	case []any:
		var parts []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.ToLower(strings.Join(parts, " "))
	}
	return ""
}

// optionList reads an array of strings, or of arrays headed by a string.
func optionList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		switch t := e.(type) {
		case string:
			if s := cleanText(t); s != "" {
				out = append(out, s)
			}
		case []any:
			if len(t) > 0 {
				if s, ok := t[0].(string); ok {
					if s = cleanText(s); s != "" {
						out = append(out, s)
					}
				}
			}
		}
	}
	return out
}
