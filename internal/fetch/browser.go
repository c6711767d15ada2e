package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Browser renders the page in headless Chrome. It is the last resort when
// plain HTTP is blocked. Each call launches and tears down its own browser.
type Browser struct {
	// RemoteURL connects to an existing DevTools endpoint instead of launching.
	RemoteURL string
	// Bin overrides the Chrome binary; empty lets the launcher find or download one.
	Bin     string
	Timeout time.Duration
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Fetch(ctx context.Context, formURL string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wsURL := b.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		if b.Bin != "" {
			l = l.Bin(b.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return "", fmt.Errorf("launch: %w", err)
		}
		defer l.Kill()
		wsURL = u
	}

	br := rod.New().ControlURL(wsURL).Context(ctx)
	if err := br.Connect(); err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer br.Close()

	page, err := stealth.Page(br)
	if err != nil {
		return "", fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(formURL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}
