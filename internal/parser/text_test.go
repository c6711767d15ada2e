package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/formgest/internal/form"
)

func TestTextParser_Lines(t *testing.T) {
	input := `How would you rate our library?
  - Excellent
  - Good

3) What is your email address?
4) What is your department?
`
	p := &TextParser{o: New(Options{})}
	res, err := p.Parse(strings.NewReader(input), "form.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.TotalFound != 3 {
		t.Errorf("expected 3 found, got %d", res.TotalFound)
	}
	if res.FilteredOut != 1 {
		t.Errorf("expected 1 filtered, got %d", res.FilteredOut)
	}
	if len(res.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(res.Questions))
	}
	if strings.Join(res.Questions[0].Options, "|") != "Excellent|Good" {
		t.Errorf("unexpected options %v", res.Questions[0].Options)
	}
	if res.Source != form.SourceFragments {
		t.Errorf("expected source %q, got %q", form.SourceFragments, res.Source)
	}
}

func TestForFile(t *testing.T) {
	o := New(Options{})
	for _, name := range []string{"a.html", "a.HTM", "a.json", "a.md", "a.markdown", "a.txt", "a.pdf", "a.DOCX"} {
		if _, err := ForFile(o, name); err != nil {
			t.Errorf("ForFile(%q): %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("IsSupportedExtension(%q) = false", name)
		}
	}
	if _, err := ForFile(o, "a.odt"); err == nil {
		t.Error("expected error for .odt")
	}
}

func TestJSONParser(t *testing.T) {
	p, _ := ForFile(New(Options{}), "payload.json")
	res, err := p.Parse(strings.NewReader(samplePayload), "payload.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Questions) != 5 {
		t.Errorf("expected 5 questions, got %d", len(res.Questions))
	}

	_, err = p.Parse(strings.NewReader("[1,"), "payload.json")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestHTMLParser(t *testing.T) {
	p, _ := ForFile(New(Options{}), "form.html")
	res, err := p.Parse(strings.NewReader(sampleDocument()), "form.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != form.SourcePayload || len(res.Questions) != 5 {
		t.Errorf("unexpected result %+v", res)
	}
}
