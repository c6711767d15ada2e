package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

// Parser converts raw input bytes into a ParseResult.
type Parser interface {
	Parse(r io.Reader, filename string) (form.ParseResult, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".html":     true,
	".htm":      true,
	".json":     true,
	".md":       true,
	".markdown": true,
	".txt":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(o *Orchestrator, filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return &HTMLParser{o: o}, nil
	case ".json":
		return &JSONParser{o: o}, nil
	case ".md", ".markdown":
		return &OutlineParser{o: o}, nil
	case ".txt":
		return &TextParser{o: o}, nil
	case ".pdf":
		return &PDFParser{o: o, FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXParser{o: o}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// HTMLParser handles saved form pages.
type HTMLParser struct {
	o *Orchestrator
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("read %s: %w", filename, err)
	}
	return p.o.Parse(string(src))
}

// JSONParser handles a payload array that was already cut out of a page.
type JSONParser struct {
	o *Orchestrator
}

func (p *JSONParser) Parse(r io.Reader, filename string) (form.ParseResult, error) {
	var data []any
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return form.ParseResult{}, fmt.Errorf("%s: %w: %w", filename, ErrMalformedPayload, err)
	}
	return p.o.ParseData(data)
}
