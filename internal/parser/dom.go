package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/formgest/internal/form"
	"golang.org/x/net/html"
)

// DefaultSelectors are the DOM fallback selectors in priority order.
var DefaultSelectors = []string{
	`div[role="listitem"]`,
	`.freebirdFormviewerViewItemsItemItem`,
	`.freebirdFormviewerViewItemsItemItemTitle`,
	`[data-item-id]`,
}

// Element is the slice of a DOM node the fallback needs.
type Element interface {
	Text() string
	HTML() string
	Find(selector string) []Element
	Attr(name string) (string, bool)
}

// DocumentQuery runs CSS selectors against a parsed document.
type DocumentQuery interface {
	Select(selector string) []Element
}

// QueryFunc builds a DocumentQuery from a raw document.
type QueryFunc func(document string) (DocumentQuery, error)

// NewGoqueryDocument parses document into an HTML tree and queries it
// with goquery.
func NewGoqueryDocument(document string) (DocumentQuery, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return goqueryDoc{doc: goquery.NewDocumentFromNode(root)}, nil
}

type goqueryDoc struct {
	doc *goquery.Document
}

func (d goqueryDoc) Select(selector string) []Element {
	return wrapSelection(d.doc.Find(selector))
}

type goqueryElement struct {
	sel *goquery.Selection
}

func wrapSelection(s *goquery.Selection) []Element {
	out := make([]Element, 0, s.Length())
	s.Each(func(_ int, e *goquery.Selection) {
		out = append(out, goqueryElement{sel: e})
	})
	return out
}

func (e goqueryElement) Text() string { return e.sel.Text() }

func (e goqueryElement) HTML() string {
	h, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

func (e goqueryElement) Find(selector string) []Element { return wrapSelection(e.sel.Find(selector)) }

func (e goqueryElement) Attr(name string) (string, bool) { return e.sel.Attr(name) }

// domFragments scans q with the first selector that matches anything and
// returns typed fragments. Empty texts and option-like texts are dropped.
func (c *Classifier) domFragments(q DocumentQuery, selectors []string) []form.RawFragment {
	for _, sel := range selectors {
		elems := q.Select(sel)
		if len(elems) == 0 {
			continue
		}
		var out []form.RawFragment
		for i, el := range elems {
			text := elementText(el)
			if text == "" || c.IsOption(text) {
				continue
			}
			typ := inferDOMType(el.HTML())
			f := form.RawFragment{Text: text, Path: []int{i}, Typed: true, Type: typ, Options: []string{}}
			if typ.IsChoice() {
				f.Options = domOptions(el)
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

func elementText(el Element) string {
	if hs := el.Find(`[role="heading"]`); len(hs) > 0 {
		if t := collapse(hs[0].Text()); t != "" {
			return t
		}
	}
	return collapse(el.Text())
}

func inferDOMType(markup string) form.QuestionType {
	h := strings.ToLower(markup)
	switch {
	case strings.Contains(h, "radio"):
		return form.MultipleChoice
	case strings.Contains(h, "checkbox"):
		return form.Checkboxes
	case strings.Contains(h, "textarea"), strings.Contains(h, "paragraph"):
		return form.LongAnswer
	}
	return form.ShortAnswer
}

func domOptions(el Element) []string {
	out := []string{}
	for _, o := range el.Find("[data-value]") {
		if v, ok := o.Attr("data-value"); ok {
			if v = collapse(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
