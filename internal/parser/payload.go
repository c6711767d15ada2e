package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PayloadIdentifier is the variable Google Forms binds its embedded data to.
const PayloadIdentifier = "FB_PUBLIC_LOAD_DATA_"

var payloadRe = regexp.MustCompile(`(?s)var\s+` + PayloadIdentifier + `\s*=\s*(\[.*?\]);`)

// Rich-text titles occasionally carry inline markup.
var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// ExtractPayload finds and decodes the embedded data array in an HTML document.
func ExtractPayload(document string) ([]any, error) {
	m := payloadRe.FindStringSubmatch(document)
	if m == nil {
		return nil, ErrPayloadNotFound
	}
	var data []any
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return data, nil
}

// Location is the question array a strategy found, with its path from the root.
type Location struct {
	Items []any
	Path  []int
}

// Strategy locates the question array inside a decoded payload.
type Strategy interface {
	Name() string
	Locate(data []any) (Location, bool)
}

// Positional probes a fixed set of top-level indices.
type Positional struct {
	Indices    []int
	classifier *Classifier
}

func (s Positional) Name() string { return "positional" }

func (s Positional) Locate(data []any) (Location, bool) {
	for _, i := range s.Indices {
		if i < 0 || i >= len(data) {
			continue
		}
		if arr, ok := data[i].([]any); ok && s.classifier.containsQuestions(arr) {
			return Location{Items: arr, Path: []int{i}}, true
		}
	}
	return Location{}, false
}

// Recursive walks nested arrays depth-first up to MaxDepth.
type Recursive struct {
	MaxDepth   int
	classifier *Classifier
}

func (s Recursive) Name() string { return "recursive" }

func (s Recursive) Locate(data []any) (Location, bool) {
	return s.search(data, nil, 0)
}

func (s Recursive) search(v any, path []int, depth int) (Location, bool) {
	if depth > s.MaxDepth {
		return Location{}, false
	}
	arr, ok := v.([]any)
	if !ok {
		return Location{}, false
	}
	if s.classifier.containsQuestions(arr) {
		return Location{Items: arr, Path: clonePath(path)}, true
	}
	for i, item := range arr {
		if loc, ok := s.search(item, append(path, i), depth+1); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// Pattern looks for a top-level array whose entries look like records:
// nested arrays with a non-empty string head, at least two of them.
type Pattern struct{}

func (Pattern) Name() string { return "pattern" }

func (Pattern) Locate(data []any) (Location, bool) {
	for i, el := range data {
		container, ok := el.([]any)
		if !ok {
			continue
		}
		similar, record := 0, false
		for _, item := range container {
			rec, ok := item.([]any)
			if !ok || !hasStringHead(rec) {
				continue
			}
			similar++
			record = record || len(rec) >= 3
		}
		if record && similar >= 2 {
			return Location{Items: container, Path: []int{i}}, true
		}
	}
	return Location{}, false
}

func hasStringHead(arr []any) bool {
	if len(arr) == 0 {
		return false
	}
	s, ok := arr[0].(string)
	return ok && s != ""
}

// DefaultStrategies returns the locate chain in priority order.
func DefaultStrategies(c *Classifier) []Strategy {
	return []Strategy{
		Positional{Indices: []int{1, 2, 3, 4, 5}, classifier: c},
		Recursive{MaxDepth: c.th.SearchDepth, classifier: c},
		Pattern{},
	}
}

// Locate runs strategies in order and stops at the first hit. When all miss,
// the error is a *StrategyError listing each miss.
func Locate(data []any, strategies []Strategy) (Location, string, error) {
	var reasons []string
	for _, s := range strategies {
		if loc, ok := s.Locate(data); ok {
			return loc, s.Name(), nil
		}
		reasons = append(reasons, s.Name()+": no question-shaped array")
	}
	return Location{}, "", &StrategyError{Reasons: reasons}
}

// Fragments turns a located array into candidate fragments. Entries that are
// not arrays headed by a string are skipped.
func Fragments(loc Location) []form.RawFragment {
	var out []form.RawFragment
	for i, item := range loc.Items {
		rec, ok := item.([]any)
		if !ok || len(rec) < 2 {
			continue
		}
		head, ok := rec[0].(string)
		if !ok {
			continue
		}
		text := cleanText(head)
		if text == "" {
			continue
		}
		out = append(out, form.RawFragment{
			Text:   text,
			Path:   append(clonePath(loc.Path), i),
			Fields: rec,
		})
	}
	return out
}

// cleanText strips markup, decodes entities and collapses whitespace.
// Titles are plain text unless they carry real tags, so a literal "a<b"
// survives.
func cleanText(s string) string {
	if hasMarkup(s) {
		s = stripPolicy.Sanitize(s)
	}
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// hasMarkup reports whether s holds an HTML element: a known end tag, a
// self-closing tag or a void element. A lone start tag is not enough, since
// "<none>" and "<b for you" read as text in a question title.
func hasMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.EndTagToken, html.SelfClosingTagToken:
			if z.Token().DataAtom != 0 {
				return true
			}
		case html.StartTagToken:
			if voidElements[z.Token().DataAtom] {
				return true
			}
		}
	}
}

var voidElements = map[atom.Atom]bool{
	atom.Br:  true,
	atom.Hr:  true,
	atom.Img: true,
	atom.Wbr: true,
}

func clonePath(p []int) []int {
	out := make([]int, len(p))
	copy(out, p)
	return out
}
