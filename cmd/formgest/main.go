// Command formgest parses Google Forms questionnaires and synthesizes
// survey responses for them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/dgallion1/formgest/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "formgest",
	Short: "Parse Google Forms and generate survey responses",
	Long: `formgest extracts the questions of a Google Form from its page, a saved
HTML file, a JSON payload dump, or a plain outline, and can generate
sentiment-weighted responses for them with Gemini.

Configuration comes from flags, FORMGEST_* environment variables and an
optional config file (--config).`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.StringSlice("proxy-templates", nil, "proxy URL templates with {url} or {rawurl}")
	pf.Bool("browser-fallback", false, "render the page in headless Chrome when HTTP fetches fail")
	pf.String("browser-url", "", "DevTools websocket of an existing browser")
	pf.Duration("fetch-timeout", 20*time.Second, "per-request fetch timeout")
	pf.StringSlice("gemini-models", nil, "Gemini models to try in order")
	pf.Int("max-concurrent-generate", 3, "concurrent completions per job")

	rootCmd.AddCommand(parseCmd, generateCmd, serveCmd)
}

// loadConfig reads configuration with cmd's flags taking precedence.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

// newLogger returns a slog logger writing human-readable lines to stderr.
func newLogger(level string) *slog.Logger {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	h := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "formgest",
	})
	return slog.New(h)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
