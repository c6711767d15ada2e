package pipeline

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/google/uuid"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusPrompting  JobStatus = "prompting"
	StatusGenerating JobStatus = "generating"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

var (
	ErrNoQuestions    = errors.New("at least one question is required")
	ErrInvalidCount   = errors.New("response count out of range")
	ErrJobNotFinished = errors.New("job has not finished")
)

// Job tracks the synthesis of Count responses for one question list.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Questions    []form.Question       `json:"questions"`
	Distribution generate.Distribution `json:"distribution"`
	Count        int                   `json:"count"`

	Progress Progress `json:"progress"`

	FormHash  string    `json:"form_hash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// One slot per response, nil until generated.
	responses []*generate.Response
	errors    []string
}

// Progress tracks generation progress.
type Progress struct {
	ResponsesTotal  int      `json:"responses_total"`
	ResponsesDone   int      `json:"responses_done"`
	ResponsesFailed int      `json:"responses_failed"`
	Errors          []string `json:"errors"`
}

// NewJob validates the request and returns a queued job. count must lie in
// [1, maxResponses]; maxResponses <= 0 disables the upper bound.
func NewJob(questions []form.Question, dist generate.Distribution, count, maxResponses int) (*Job, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if count < 1 || (maxResponses > 0 && count > maxResponses) {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidCount, count, maxResponses)
	}
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	qs := make([]form.Question, len(questions))
	copy(qs, questions)
	return &Job{
		ID:           uuid.NewString(),
		Status:       StatusQueued,
		Phase:        "queued",
		Questions:    qs,
		Distribution: dist,
		Count:        count,
		Progress:     Progress{ResponsesTotal: count},
		FormHash:     FormHash(qs),
		CreatedAt:    now,
		UpdatedAt:    now,
		responses:    make([]*generate.Response, count),
	}, nil
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// RecordResponse stores the response for slot i (zero-based).
func (j *Job) RecordResponse(i int, r generate.Response) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if i < 0 || i >= len(j.responses) || j.responses[i] != nil {
		return
	}
	j.responses[i] = &r
	j.Progress.ResponsesDone++
	j.UpdatedAt = time.Now()
}

// FailResponse marks slot i as permanently failed.
func (j *Job) FailResponse(i int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ResponsesFailed++
	j.errors = append(j.errors, fmt.Sprintf("response %d: %s", i+1, err))
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Responses returns the generated responses in response-number order.
func (j *Job) Responses() []generate.Response {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]generate.Response, 0, j.Progress.ResponsesDone)
	for _, r := range j.responses {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Finished returns the responses once the job reached a terminal status.
func (j *Job) Finished() ([]generate.Response, error) {
	j.mu.Lock()
	status := j.Status
	j.mu.Unlock()
	if !status.Done() {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFinished, status)
	}
	return j.Responses(), nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string                `json:"job_id"`
	Status       JobStatus             `json:"status"`
	Phase        string                `json:"phase"`
	Questions    int                   `json:"questions"`
	Distribution generate.Distribution `json:"distribution"`
	FormHash     string                `json:"form_hash"`
	Progress     Progress              `json:"progress"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:           j.ID,
		Status:       j.Status,
		Phase:        j.Phase,
		Questions:    len(j.Questions),
		Distribution: j.Distribution,
		FormHash:     j.FormHash,
		Progress: Progress{
			ResponsesTotal:  j.Progress.ResponsesTotal,
			ResponsesDone:   j.Progress.ResponsesDone,
			ResponsesFailed: j.Progress.ResponsesFailed,
			Errors:          errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// FormHash fingerprints a question list by text, type and options.
func FormHash(questions []form.Question) string {
	var sb strings.Builder
	for _, q := range questions {
		sb.WriteString(q.Text)
		sb.WriteByte(0)
		sb.WriteString(string(q.Type))
		for _, o := range q.Options {
			sb.WriteByte(0)
			sb.WriteString(o)
		}
		sb.WriteByte('\n')
	}
	return ContentHashHex([]byte(sb.String()))
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
