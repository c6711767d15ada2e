package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// OutlineParser handles Markdown outlines using goldmark. Headings,
// paragraphs and list items become fragments in document order.
type OutlineParser struct {
	o *Orchestrator
}

func (p *OutlineParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return form.ParseResult{}, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var frags []form.RawFragment
	add := func(t string) {
		if t = collapse(t); t != "" {
			frags = append(frags, form.RawFragment{Text: t, Path: []int{len(frags)}})
		}
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
			add(extractText(n, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return form.ParseResult{}, err
	}
	return p.o.ParseFragments(frags, form.SourceOutline), nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
