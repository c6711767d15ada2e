// Package export writes generated responses as CSV, JSON or an HTML report.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/formgest/internal/generate"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is an export encoding.
type Format string

const (
	CSV      Format = "csv"
	JSON     Format = "json"
	HTML     Format = "html"
	Markdown Format = "markdown"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name case-insensitively; "md" is Markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, HTML, Markdown:
		return f, nil
	case "md":
		return Markdown, nil
	case "":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// Filename is the download name for an export in this format.
func (f Format) Filename() string {
	ext := string(f)
	if f == Markdown {
		ext = "md"
	}
	return "google-form-responses." + ext
}

// Write encodes responses to w in format f.
func Write(w io.Writer, f Format, responses []generate.Response) error {
	switch f {
	case CSV:
		return WriteCSV(w, responses)
	case JSON:
		return WriteJSON(w, responses)
	case HTML:
		return WriteHTML(w, responses)
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(responses))
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteCSV writes one row per answered question under a fixed header.
func WriteCSV(w io.Writer, responses []generate.Response) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Question", "Answer", "Sentiment", "Explanation"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range responses {
		for _, q := range r.Questions {
			if err := cw.Write([]string{q.Question, q.Answer, string(r.Sentiment), q.Explanation}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonResponse struct {
	ResponseNumber int                         `json:"responseNumber"`
	Sentiment      generate.Sentiment          `json:"sentiment"`
	Questions      []generate.AnsweredQuestion `json:"questions"`
}

// WriteJSON writes an indented array of responses. Model names are omitted.
func WriteJSON(w io.Writer, responses []generate.Response) error {
	out := make([]jsonResponse, len(responses))
	for i, r := range responses {
		qs := r.Questions
		if qs == nil {
			qs = []generate.AnsweredQuestion{}
		}
		out[i] = jsonResponse{ResponseNumber: r.ResponseNumber, Sentiment: r.Sentiment, Questions: qs}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"#", `\#`, "<", `\<`, ">", `\>`, "|", `\|`,
)

func escape(s string) string {
	return mdEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

// RenderMarkdown builds a readable report, one section per response.
func RenderMarkdown(responses []generate.Response) string {
	var sb strings.Builder
	sb.WriteString("# Generated form responses\n\n")

	counts := map[generate.Sentiment]int{}
	for _, r := range responses {
		counts[r.Sentiment]++
	}
	fmt.Fprintf(&sb, "%d responses: %d positive, %d neutral, %d negative.\n",
		len(responses), counts[generate.Positive], counts[generate.Neutral], counts[generate.Negative])

	for _, r := range responses {
		fmt.Fprintf(&sb, "\n## Response %d (%s)\n\n", r.ResponseNumber, r.Sentiment)
		if len(r.Questions) == 0 {
			sb.WriteString("_No answers._\n")
			continue
		}
		sb.WriteString("| # | Question | Answer |\n|---|---|---|\n")
		for i, q := range r.Questions {
			fmt.Fprintf(&sb, "| %d | %s | %s |\n", i+1, escape(q.Question), escape(q.Answer))
		}
	}
	return sb.String()
}

var (
	md         = goldmark.New(goldmark.WithExtensions(extension.Table))
	htmlPolicy = bluemonday.UGCPolicy()
)

const htmlHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Generated form responses</title></head>
<body>
`

// WriteHTML renders the Markdown report to a standalone HTML page.
func WriteHTML(w io.Writer, responses []generate.Response) error {
	var body bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(responses)), &body); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if _, err := io.WriteString(w, htmlHead); err != nil {
		return err
	}
	if _, err := w.Write(htmlPolicy.SanitizeBytes(body.Bytes())); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body></html>\n")
	return err
}
