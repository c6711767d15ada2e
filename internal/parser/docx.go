package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles questionnaires saved as Word documents, one line per
// paragraph.
type DOCXParser struct {
	o *Orchestrator
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	doc, err := docx.Parse(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			lines = append(lines, docxParagraphText(para))
		}
	}
	return p.o.ParseFragments(lineFragments(lines), form.SourceFragments), nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
