package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles questionnaires printed to PDF. Each text row becomes a
// line; when the Go library cannot read the file, pdftotext is tried if
// FallbackPdftotext is set.
type PDFParser struct {
	o                 *Orchestrator
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("read %s: %w", filename, err)
	}

	lines, err := pdfLines(src)
	if err != nil && p.FallbackPdftotext {
		lines, err = pdftotextLines(src)
	}
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("extract pdf text: %w", err)
	}
	return p.o.ParseFragments(lineFragments(lines), form.SourceFragments), nil
}

func pdfLines(src []byte) (lines []string, err error) {
	// The reader panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			lines = append(lines, rowText(row))
		}
	}
	return lines, nil
}

// rowText joins the runs of one row, adding a space where runs are visibly
// apart.
func rowText(row *pdflib.Row) string {
	var sb strings.Builder
	var end float64
	for i, t := range row.Content {
		if i > 0 && t.X-end > t.FontSize*0.2 && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(t.S, " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		end = t.X + t.W
	}
	return sb.String()
}

func pdftotextLines(src []byte) ([]string, error) {
	// pdftotext reads from a path.
	tmp, err := os.CreateTemp("", "formgest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitLines(string(out)), nil
}

// splitLines splits on newlines and form feeds.
func splitLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == '\f'
	})
}
