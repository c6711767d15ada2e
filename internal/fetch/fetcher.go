package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/formgest/internal/parser"
)

// DefaultUserAgent is sent by the direct strategy; Forms serves a reduced
// page to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Responses larger than this are rejected.
const maxBody = 10 << 20

var formURLRe = regexp.MustCompile(`^https://docs\.google\.com/forms/d/e/[A-Za-z0-9_-]+/viewform`)

// ErrInvalidURL is returned for anything that is not a public form link.
var ErrInvalidURL = errors.New("not a google forms viewform url")

// ValidFormURL reports whether u looks like a public form link.
func ValidFormURL(u string) bool {
	return formURLRe.MatchString(strings.TrimSpace(u))
}

// Strategy retrieves the HTML of a form page one way.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, formURL string) (string, error)
}

// Attempt is one failed strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// FetchError lists why every strategy failed.
type FetchError struct {
	URL      string
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Strategy + ": " + a.Err.Error()
	}
	return fmt.Sprintf("fetch %s: all strategies failed: %s", e.URL, strings.Join(parts, "; "))
}

// Unwrap exposes the individual causes to errors.Is.
func (e *FetchError) Unwrap() []error {
	out := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Err
	}
	return out
}

// ErrNotAForm means a response came back but did not carry form data.
var ErrNotAForm = errors.New("response is not a form page")

// Fetcher tries strategies in order and returns the first acceptable page.
type Fetcher struct {
	strategies []Strategy
	log        *slog.Logger
}

// New returns a Fetcher over strategies.
func New(log *slog.Logger, strategies ...Strategy) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{strategies: strategies, log: log}
}

// Fetch returns the page HTML for formURL.
func (f *Fetcher) Fetch(ctx context.Context, formURL string) (string, error) {
	formURL = strings.TrimSpace(formURL)
	if !ValidFormURL(formURL) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, formURL)
	}

	fe := &FetchError{URL: formURL}
	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		start := time.Now()
		body, err := s.Fetch(ctx, formURL)
		if err == nil && !Acceptable(body) {
			err = ErrNotAForm
		}
		if err != nil {
			f.log.Info("fetch strategy failed", "strategy", s.Name(), "error", err)
			fe.Attempts = append(fe.Attempts, Attempt{Strategy: s.Name(), Err: err})
			continue
		}
		f.log.Info("form fetched", "strategy", s.Name(), "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
		return body, nil
	}
	return "", fe
}

// Acceptable reports whether body is an HTML page with embedded form data.
func Acceptable(body string) bool {
	return strings.Contains(strings.ToLower(body), "<html") && strings.Contains(body, parser.PayloadIdentifier)
}

// Direct requests the form page itself.
type Direct struct {
	Client    *http.Client
	UserAgent string
}

// NewDirect returns a Direct strategy with a bounded client.
func NewDirect(timeout time.Duration) *Direct {
	return &Direct{Client: &http.Client{Timeout: timeout}, UserAgent: DefaultUserAgent}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Fetch(ctx context.Context, formURL string) (string, error) {
	return get(ctx, d.Client, formURL, d.UserAgent)
}

// Proxy requests the page through a URL template. "{url}" is replaced with
// the query-escaped form URL and "{rawurl}" with the URL as is.
type Proxy struct {
	Template string
	Client   *http.Client
}

// NewProxy returns a Proxy strategy for template.
func NewProxy(template string, timeout time.Duration) *Proxy {
	return &Proxy{Template: template, Client: &http.Client{Timeout: timeout}}
}

func (p *Proxy) Name() string {
	if u, err := url.Parse(p.Template); err == nil && u.Host != "" {
		return "proxy " + u.Host
	}
	return "proxy"
}

func (p *Proxy) Fetch(ctx context.Context, formURL string) (string, error) {
	target := strings.NewReplacer(
		"{url}", url.QueryEscape(formURL),
		"{rawurl}", formURL,
	).Replace(p.Template)
	return get(ctx, p.Client, target, "")
}

func get(ctx context.Context, client *http.Client, target, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBody {
		return "", fmt.Errorf("response exceeds %d bytes", maxBody)
	}
	return string(body), nil
}
