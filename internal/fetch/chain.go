package fetch

import (
	"log/slog"

	"github.com/dgallion1/formgest/internal/config"
)

// FromConfig builds the strategy order from configuration: direct, then
// each proxy template, then headless Chrome when enabled.
func FromConfig(cfg config.Config, log *slog.Logger) *Fetcher {
	strategies := []Strategy{NewDirect(cfg.FetchTimeout)}
	for _, t := range cfg.ProxyTemplates {
		strategies = append(strategies, NewProxy(t, cfg.FetchTimeout))
	}
	if cfg.BrowserFallback || cfg.BrowserURL != "" {
		strategies = append(strategies, &Browser{RemoteURL: cfg.BrowserURL})
	}
	return New(log, strategies...)
}

// Strategies lists strategy names in the order they are tried.
func (f *Fetcher) Strategies() []string {
	names := make([]string, len(f.strategies))
	for i, s := range f.strategies {
		names[i] = s.Name()
	}
	return names
}
