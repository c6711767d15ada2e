package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/formgest/internal/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoAnswers = "Question 1: Blue\nQuestion 2: Good"

// fakeCompleter answers every prompt through fn and records what it saw.
type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	calls   atomic.Int32
	fn      func(call int, prompt string) (generate.Completion, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (generate.Completion, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.fn == nil {
		return generate.Completion{Text: twoAnswers, Model: "fake"}, nil
	}
	return f.fn(n, prompt)
}

func testWorker(c generate.Completer, maxConcurrent int) *Worker {
	w := NewWorker(c, slog.New(slog.DiscardHandler), maxConcurrent)
	w.backoff = func(int) time.Duration { return 0 }
	w.rng = rand.New(rand.NewPCG(1, 2))
	return w
}

func newTestJob(t *testing.T, dist generate.Distribution, count int) *Job {
	t.Helper()
	job, err := NewJob(testQuestions, dist, count, 0)
	require.NoError(t, err)
	return job
}

func TestProcess_AllSucceed(t *testing.T) {
	fc := &fakeCompleter{}
	dist := generate.DefaultDistribution()
	job := newTestJob(t, dist, 5)

	testWorker(fc, 2).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 5, snap.Progress.ResponsesDone)
	assert.Empty(t, snap.Progress.Errors)

	responses := job.Responses()
	require.Len(t, responses, 5)
	counts := map[generate.Sentiment]int{}
	for i, r := range responses {
		assert.Equal(t, i+1, r.ResponseNumber)
		assert.Equal(t, "fake", r.Model)
		require.Len(t, r.Questions, 2)
		assert.Equal(t, "Blue", r.Questions[0].Answer)
		assert.Equal(t, "Good", r.Questions[1].Answer)
		counts[r.Sentiment]++
	}
	p, n, g := dist.Counts(5)
	assert.Equal(t, p, counts[generate.Positive])
	assert.Equal(t, n, counts[generate.Neutral])
	assert.Equal(t, g, counts[generate.Negative])
}

func TestProcess_OnePromptPerSentiment(t *testing.T) {
	fc := &fakeCompleter{}
	job := newTestJob(t, generate.Distribution{Positive: 100}, 3)

	testWorker(fc, 1).Process(context.Background(), job)

	require.Len(t, fc.prompts, 3)
	for _, p := range fc.prompts {
		assert.Equal(t, fc.prompts[0], p)
		assert.Contains(t, p, "SENTIMENT CONTEXT: POSITIVE")
		assert.Contains(t, p, "1. What is your favourite colour? (Type: short_answer)")
	}
}

func TestProcess_RetriesTransientErrors(t *testing.T) {
	fc := &fakeCompleter{fn: func(call int, _ string) (generate.Completion, error) {
		if call < MaxRetries {
			return generate.Completion{}, &generate.RetryableError{StatusCode: 429, Message: "slow down"}
		}
		return generate.Completion{Text: twoAnswers}, nil
	}}
	job := newTestJob(t, generate.DefaultDistribution(), 1)

	testWorker(fc, 1).Process(context.Background(), job)

	assert.Equal(t, StatusCompleted, job.Snapshot().Status)
	assert.Equal(t, int32(MaxRetries), fc.calls.Load())
}

func TestProcess_GivesUpAfterMaxRetries(t *testing.T) {
	fc := &fakeCompleter{fn: func(int, string) (generate.Completion, error) {
		return generate.Completion{}, &generate.RetryableError{StatusCode: 503, Message: "overloaded"}
	}}
	job := newTestJob(t, generate.DefaultDistribution(), 1)

	testWorker(fc, 1).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, int32(MaxRetries), fc.calls.Load())
	require.Len(t, snap.Progress.Errors, 1)
	assert.Contains(t, snap.Progress.Errors[0], "gave up after 3 attempts")
}

func TestProcess_PermanentErrorNotRetried(t *testing.T) {
	fc := &fakeCompleter{fn: func(int, string) (generate.Completion, error) {
		return generate.Completion{}, errors.New("gemini status 400: bad request")
	}}
	job := newTestJob(t, generate.DefaultDistribution(), 1)

	testWorker(fc, 1).Process(context.Background(), job)

	assert.Equal(t, StatusFailed, job.Snapshot().Status)
	assert.Equal(t, int32(1), fc.calls.Load())
}

func TestProcess_Partial(t *testing.T) {
	fc := &fakeCompleter{fn: func(call int, _ string) (generate.Completion, error) {
		if call%2 == 0 {
			return generate.Completion{}, errors.New("gemini status 400: bad request")
		}
		return generate.Completion{Text: twoAnswers}, nil
	}}
	job := newTestJob(t, generate.DefaultDistribution(), 4)

	testWorker(fc, 1).Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 2, snap.Progress.ResponsesDone)
	assert.Equal(t, 2, snap.Progress.ResponsesFailed)

	// Surviving responses keep their own numbers.
	for _, r := range job.Responses() {
		assert.Equal(t, 1, r.ResponseNumber%2)
	}
}

func TestProcess_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	fc := &fakeCompleter{fn: func(int, string) (generate.Completion, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return generate.Completion{Text: twoAnswers}, nil
	}}
	job := newTestJob(t, generate.DefaultDistribution(), 10)

	testWorker(fc, 3).Process(context.Background(), job)

	assert.Equal(t, StatusCompleted, job.Snapshot().Status)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestProcess_CanceledContext(t *testing.T) {
	fc := &fakeCompleter{}
	job := newTestJob(t, generate.DefaultDistribution(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	testWorker(fc, 2).Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 3, snap.Progress.ResponsesFailed)
	assert.Equal(t, int32(0), fc.calls.Load())
	for _, e := range snap.Progress.Errors {
		assert.True(t, strings.Contains(e, context.Canceled.Error()), e)
	}
}

func TestIsRetryable(t *testing.T) {
	ctx := context.Background()
	retry := &generate.RetryableError{StatusCode: 429}

	assert.True(t, IsRetryable(ctx, retry))
	assert.True(t, IsRetryable(ctx, errors.Join(errors.New("wrapped"), retry)))
	assert.False(t, IsRetryable(ctx, errors.New("plain")))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, IsRetryable(canceled, retry))
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
	assert.Less(t, Backoff(10), 45*time.Second)
}
