package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/formgest/internal/generate"
	"golang.org/x/sync/errgroup"
)

// Worker generates the responses of a single job.
type Worker struct {
	completer generate.Completer
	log       *slog.Logger

	maxConcurrent int

	// Overridable in tests.
	backoff func(attempt int) time.Duration
	rng     *rand.Rand
}

func NewWorker(completer generate.Completer, log *slog.Logger, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		completer:     completer,
		log:           log,
		maxConcurrent: maxConcurrent,
		backoff:       Backoff,
	}
}

// Process runs prompting and generation for a job and leaves it in a
// terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "form_hash", short(job.FormHash))

	// Phase 1: one prompt per sentiment, shared by every response of that tone.
	job.SetStatus(StatusPrompting, "building prompts")
	queue := job.Distribution.Queue(job.Count, w.rng)
	prompts := make(map[generate.Sentiment]string, 3)
	for _, s := range queue {
		if _, ok := prompts[s]; !ok {
			prompts[s] = generate.BuildPrompt(job.Questions, s)
		}
	}
	log.Info("prompts built", "responses", len(queue), "sentiments", len(prompts))

	// Phase 2: generate with bounded concurrency. Failures are recorded on the
	// job; a failing response never cancels its siblings.
	job.SetStatus(StatusGenerating, "generating responses")
	var g errgroup.Group
	g.SetLimit(w.maxConcurrent)
	for i, s := range queue {
		g.Go(func() error {
			c, err := w.complete(ctx, log, i, prompts[s])
			if err != nil {
				log.Error("generation failed", "response", i+1, "sentiment", s, "error", err)
				job.FailResponse(i, err)
				return nil
			}
			job.RecordResponse(i, generate.Assemble(i+1, s, job.Questions, c))
			return nil
		})
	}
	_ = g.Wait()

	snap := job.Snapshot()
	log.Info("generation complete",
		"done", snap.Progress.ResponsesDone,
		"failed", snap.Progress.ResponsesFailed)

	switch {
	case snap.Progress.ResponsesDone == snap.Progress.ResponsesTotal:
		job.SetStatus(StatusCompleted, "done")
	case snap.Progress.ResponsesDone > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "generating")
	}
}

// complete calls the model, retrying transient failures with backoff.
func (w *Worker) complete(ctx context.Context, log *slog.Logger, i int, prompt string) (generate.Completion, error) {
	var lastErr error
	for attempt := range MaxRetries {
		if err := ctx.Err(); err != nil {
			return generate.Completion{}, err
		}
		c, err := w.completer.Complete(ctx, prompt)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if !IsRetryable(ctx, err) {
			break
		}
		if attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable generation error", "response", i+1, "attempt", attempt, "error", err)
		if err := sleep(ctx, w.backoff(attempt)); err != nil {
			return generate.Completion{}, err
		}
	}
	if IsRetryable(ctx, lastErr) {
		return generate.Completion{}, fmt.Errorf("gave up after %d attempts: %w", MaxRetries, lastErr)
	}
	return generate.Completion{}, lastErr
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
