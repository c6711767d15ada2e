package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

// Leading list markers: "-", "*", "•", "1.", "2)", "a)".
var bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|[a-zA-Z][.)])\s+`)

// TextParser handles hand-typed questionnaires, one question or option per line.
type TextParser struct {
	o *Orchestrator
}

func (p *TextParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return form.ParseResult{}, err
	}
	return p.o.ParseFragments(lineFragments(lines), form.SourceFragments), nil
}

// lineFragments strips list markers and drops blank lines. Paths keep the
// original line index.
func lineFragments(lines []string) []form.RawFragment {
	var frags []form.RawFragment
	for i, line := range lines {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		frags = append(frags, form.RawFragment{Text: collapse(line), Path: []int{i}})
	}
	return frags
}
