package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/formgest/internal/config"
	"github.com/dgallion1/formgest/internal/fetch"
	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/parser"
)

// loadForm parses src, which is a form URL, a file path, or "-" for HTML
// on stdin.
func loadForm(ctx context.Context, cfg config.Config, log *slog.Logger, src string, stdin io.Reader) (form.ParseResult, error) {
	o := parser.New(parser.Options{
		Thresholds:           cfg.Thresholds,
		PersonalInfoKeywords: cfg.PersonalInfoKeywords,
		Logger:               log,
	})

	switch {
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		page, err := fetch.FromConfig(cfg, log).Fetch(ctx, src)
		if err != nil {
			return form.ParseResult{}, err
		}
		return o.Parse(page)
	case src == "-":
		p, _ := parser.ForFile(o, "stdin.html")
		return p.Parse(stdin, "stdin")
	}

	p, err := parser.ForFile(o, src)
	if err != nil {
		return form.ParseResult{}, err
	}
	f, err := os.Open(src)
	if err != nil {
		return form.ParseResult{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(src))
}
