package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Auth for the HTTP API; empty disables it.
	APIKey string

	// Gemini completion
	GeminiAPIKey string
	GeminiModels []string

	// Fetching
	ProxyTemplates  []string
	BrowserFallback bool
	BrowserURL      string
	FetchTimeout    time.Duration

	// Worker pool
	WorkerCount           int
	MaxQueueSize          int
	MaxConcurrentGenerate int
	MaxResponses          int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Parsing
	Thresholds           form.Thresholds
	PersonalInfoKeywords []string
}

// DefaultProxyTemplates are public CORS relays tried after a direct fetch.
var DefaultProxyTemplates = []string{
	"https://api.allorigins.win/raw?url={url}",
	"https://thingproxy.freeboard.io/fetch/{rawurl}",
}

func setDefaults(v *viper.Viper) {
	th := form.DefaultThresholds()

	v.SetDefault("port", "8090")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("gemini_models", strings.Join(generate.DefaultModels, ","))
	v.SetDefault("proxy_templates", strings.Join(DefaultProxyTemplates, ","))
	v.SetDefault("browser_fallback", false)
	v.SetDefault("fetch_timeout", "20s")
	v.SetDefault("worker_count", 4)
	v.SetDefault("max_queue_size", 100)
	v.SetDefault("max_concurrent_generate", 3)
	v.SetDefault("max_responses", 50)
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("job_ttl", "1h")

	v.SetDefault("thresholds.min_question_length", th.MinQuestionLength)
	v.SetDefault("thresholds.min_prompt_words", th.MinPromptWords)
	v.SetDefault("thresholds.short_option_length", th.ShortOptionLength)
	v.SetDefault("thresholds.short_option_words", th.ShortOptionWords)
	v.SetDefault("thresholds.tiny_option_length", th.TinyOptionLength)
	v.SetDefault("thresholds.tiny_option_words", th.TinyOptionWords)
	v.SetDefault("thresholds.question_array_ratio", th.QuestionArrayRatio)
	v.SetDefault("thresholds.default_max_length", th.DefaultMaxLength)
	v.SetDefault("thresholds.long_answer_min_length", th.LongAnswerMinLength)
	v.SetDefault("thresholds.search_depth", th.SearchDepth)
}

// Load reads configuration from defaults, an optional config file, the
// environment (FORMGEST_* plus PORT and GEMINI_API_KEY) and flags, in
// increasing precedence. Flag names map to keys with '-' read as '_';
// a "config" flag or FORMGEST_CONFIG names the file.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FORMGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "FORMGEST_PORT", "PORT")
	_ = v.BindEnv("gemini_api_key", "FORMGEST_GEMINI_API_KEY", "GEMINI_API_KEY")

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Port:        v.GetString("port"),
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log_level"),

		APIKey: v.GetString("api_key"),

		GeminiAPIKey: v.GetString("gemini_api_key"),
		GeminiModels: list(v, "gemini_models"),

		ProxyTemplates:  list(v, "proxy_templates"),
		BrowserFallback: v.GetBool("browser_fallback"),
		BrowserURL:      v.GetString("browser_url"),
		FetchTimeout:    v.GetDuration("fetch_timeout"),

		WorkerCount:           v.GetInt("worker_count"),
		MaxQueueSize:          v.GetInt("max_queue_size"),
		MaxConcurrentGenerate: v.GetInt("max_concurrent_generate"),
		MaxResponses:          v.GetInt("max_responses"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		JobTTL: v.GetDuration("job_ttl"),

		Thresholds: form.Thresholds{
			MinQuestionLength:   v.GetInt("thresholds.min_question_length"),
			MinPromptWords:      v.GetInt("thresholds.min_prompt_words"),
			ShortOptionLength:   v.GetInt("thresholds.short_option_length"),
			ShortOptionWords:    v.GetInt("thresholds.short_option_words"),
			TinyOptionLength:    v.GetInt("thresholds.tiny_option_length"),
			TinyOptionWords:     v.GetInt("thresholds.tiny_option_words"),
			QuestionArrayRatio:  v.GetFloat64("thresholds.question_array_ratio"),
			DefaultMaxLength:    v.GetInt("thresholds.default_max_length"),
			LongAnswerMinLength: v.GetInt("thresholds.long_answer_min_length"),
			SearchDepth:         v.GetInt("thresholds.search_depth"),
		}.WithDefaults(),
		PersonalInfoKeywords: list(v, "personal_info_keywords"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentGenerate <= 0 {
		cfg.MaxConcurrentGenerate = 3
	}
	if cfg.MaxResponses <= 0 {
		cfg.MaxResponses = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if len(cfg.GeminiModels) == 0 {
		cfg.GeminiModels = generate.DefaultModels
	}

	return cfg, nil
}

// list reads a key that may hold a YAML list or a comma-separated string.
func list(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}
	for _, t := range c.ProxyTemplates {
		if !strings.Contains(t, "{url}") && !strings.Contains(t, "{rawurl}") {
			return fmt.Errorf("proxy template %q has no {url} or {rawurl} placeholder", t)
		}
	}
	if c.MaxConcurrentGenerate > c.MaxResponses {
		return fmt.Errorf("max_concurrent_generate (%d) exceeds max_responses (%d)", c.MaxConcurrentGenerate, c.MaxResponses)
	}
	return nil
}

// ErrNoGeminiKey is returned by RequireGemini when no key is configured.
var ErrNoGeminiKey = errors.New("GEMINI_API_KEY is required")

// RequireGemini checks the settings the generation path needs.
func (c Config) RequireGemini() error {
	if c.GeminiAPIKey == "" {
		return ErrNoGeminiKey
	}
	return nil
}
