package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModels is the fallback order tried for each completion.
var DefaultModels = []string{
	"gemini-2.5-pro",
	"gemini-2.0-flash-exp",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-pro",
}

// Completion is the text a model returned for one prompt.
type Completion struct {
	Text       string
	Model      string
	DurationMs int64
}

// Completer turns a fully formed prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// modelAPI is the part of *genai.Models the client uses.
type modelAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API, walking a model list until one answers.
type GeminiClient struct {
	models  modelAPI
	names   []string
	config  *genai.GenerateContentConfig
	timeout time.Duration
	Stats   *CompletionStats
	log     *slog.Logger
}

// NewGeminiClient builds a client for apiKey. An empty model list selects DefaultModels.
func NewGeminiClient(ctx context.Context, apiKey string, models []string, log *slog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiClient(client.Models, models, log), nil
}

func newGeminiClient(api modelAPI, models []string, log *slog.Logger) *GeminiClient {
	if len(models) == 0 {
		models = DefaultModels
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &GeminiClient{
		models:  api,
		names:   models,
		config:  defaultGenerationConfig(),
		timeout: 120 * time.Second,
		Stats:   NewCompletionStats(time.Hour),
		log:     log,
	}
}

func defaultGenerationConfig() *genai.GenerateContentConfig {
	block := func(c genai.HarmCategory) *genai.SafetySetting {
		return &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove}
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 4096,
		CandidateCount:  1,
		SafetySettings: []*genai.SafetySetting{
			block(genai.HarmCategoryHarassment),
			block(genai.HarmCategoryHateSpeech),
			block(genai.HarmCategorySexuallyExplicit),
			block(genai.HarmCategoryDangerousContent),
		},
	}
}

// Model returns the first model in the fallback order.
func (c *GeminiClient) Model() string { return c.names[0] }

// Complete sends prompt to each model in order and returns the first
// non-empty answer. When every model fails and the last failure was
// transient, the error is a *RetryableError.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	var lastErr error
	for _, model := range c.names {
		if err := ctx.Err(); err != nil {
			return Completion{}, err
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		resp, err := c.models.GenerateContent(callCtx, model, genai.Text(prompt), c.config)
		elapsed := time.Since(start).Milliseconds()
		cancel()

		if err == nil {
			text := strings.TrimSpace(stripCodeBlock(responseText(resp)))
			if text != "" {
				c.Stats.Record(model, elapsed)
				c.log.Debug("completion received", "model", model, "duration_ms", elapsed, "chars", len(text))
				return Completion{Text: text, Model: model, DurationMs: elapsed}, nil
			}
			err = errors.New("empty response")
		}
		c.Stats.RecordFailure(model, elapsed)
		lastErr = classify(model, err)
		c.log.Warn("gemini model failed", "model", model, "error", lastErr)
	}
	return Completion{}, lastErr
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// classify maps API failures onto RetryableError where a retry may help.
func classify(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiStatusError(model, apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiStatusError(model, apiErrPtr.Code, apiErrPtr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RetryableError{StatusCode: http.StatusGatewayTimeout, Message: model + ": " + err.Error()}
	}
	return fmt.Errorf("gemini %s: %w", model, err)
}

func apiStatusError(model string, code int, msg string) error {
	if code == http.StatusTooManyRequests || code >= 500 {
		return &RetryableError{StatusCode: code, Message: model + ": " + msg}
	}
	return fmt.Errorf("gemini %s status %d: %s", model, code, truncate(msg, 200))
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:[a-z]+)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}
