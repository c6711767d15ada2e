package parser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/formgest/internal/form"
)

// Stage is a step of one parse run.
type Stage int

const (
	StageIdle Stage = iota
	StageExtracting
	StageGrouping
	StageResolving
	StageFiltering
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageExtracting:
		return "extracting"
	case StageGrouping:
		return "grouping"
	case StageResolving:
		return "resolving"
	case StageFiltering:
		return "filtering"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Run is the record of a single parse. Result is meaningful only when Stage
// is StageDone; Err only when it is StageFailed.
type Run struct {
	Stage  Stage
	Trace  []Stage
	Err    error
	Result form.ParseResult
}

// FailedAt returns the stage that was active when the run failed.
func (r *Run) FailedAt() Stage {
	if r.Stage != StageFailed || len(r.Trace) < 2 {
		return StageIdle
	}
	return r.Trace[len(r.Trace)-2]
}

func (r *Run) advance(s Stage) {
	r.Stage = s
	r.Trace = append(r.Trace, s)
}

func (r *Run) fail(err error) *Run {
	r.Err = err
	r.advance(StageFailed)
	return r
}

// Options configures an Orchestrator. Zero values select the defaults.
type Options struct {
	Thresholds           form.Thresholds
	PersonalInfoKeywords []string
	Selectors            []string
	Strategies           []Strategy
	Query                QueryFunc
	Logger               *slog.Logger
}

// Orchestrator sequences extraction, grouping, type resolution and filtering.
// It holds no per-parse state, so one value may serve concurrent callers.
type Orchestrator struct {
	classifier *Classifier
	resolver   *Resolver
	filter     *PersonalInfoFilter
	strategies []Strategy
	selectors  []string
	query      QueryFunc
	log        *slog.Logger
}

// New returns an Orchestrator for o.
func New(o Options) *Orchestrator {
	c := NewClassifier(o.Thresholds)
	p := &Orchestrator{
		classifier: c,
		resolver:   NewResolver(o.Thresholds),
		filter:     NewPersonalInfoFilter(o.PersonalInfoKeywords),
		strategies: o.Strategies,
		selectors:  o.Selectors,
		query:      o.Query,
		log:        o.Logger,
	}
	if len(p.strategies) == 0 {
		p.strategies = DefaultStrategies(c)
	}
	if len(p.selectors) == 0 {
		p.selectors = DefaultSelectors
	}
	if p.query == nil {
		p.query = NewGoqueryDocument
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	return p
}

// Classifier exposes the question/option predicates in use.
func (p *Orchestrator) Classifier() *Classifier { return p.classifier }

// Parse runs the full pipeline over an HTML document.
func (p *Orchestrator) Parse(document string) (form.ParseResult, error) {
	r := p.Run(document)
	return r.Result, r.Err
}

// Run is Parse with the stage trace retained.
func (p *Orchestrator) Run(document string) *Run {
	r := &Run{}
	r.advance(StageIdle)
	r.advance(StageExtracting)

	source := form.SourcePayload
	var frags []form.RawFragment

	data, err := ExtractPayload(document)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return r.fail(err)
	case err != nil:
		frags = p.dom(document)
		if len(frags) == 0 {
			return r.fail(fmt.Errorf("%w: %w", ErrQuestionsNotFound, err))
		}
		source = form.SourceDOM
	default:
		loc, strategy, lerr := Locate(data, p.strategies)
		if lerr == nil {
			p.log.Debug("payload located", "strategy", strategy, "path", loc.Path, "items", len(loc.Items))
			frags = Fragments(loc)
		}
		if len(frags) == 0 {
			if dom := p.dom(document); len(dom) > 0 {
				frags, source = dom, form.SourceDOM
			} else if lerr != nil {
				return r.fail(lerr)
			}
		}
	}

	p.log.Debug("fragments extracted", "source", source, "count", len(frags))
	p.finish(r, frags, source)
	return r
}

// ParseData runs the pipeline over an already decoded payload. There is no
// document to fall back to.
func (p *Orchestrator) ParseData(data []any) (form.ParseResult, error) {
	r := &Run{}
	r.advance(StageIdle)
	r.advance(StageExtracting)
	loc, _, err := Locate(data, p.strategies)
	if err != nil {
		r.fail(err)
		return r.Result, r.Err
	}
	p.finish(r, Fragments(loc), form.SourcePayload)
	return r.Result, nil
}

// ParseFragments groups, resolves and filters fragments supplied by the
// caller, for outline and plain-text input.
func (p *Orchestrator) ParseFragments(frags []form.RawFragment, source form.Source) form.ParseResult {
	r := &Run{}
	r.advance(StageIdle)
	r.advance(StageExtracting)
	p.finish(r, frags, source)
	return r.Result
}

func (p *Orchestrator) finish(r *Run, frags []form.RawFragment, source form.Source) {
	r.advance(StageGrouping)
	var typed []form.RawFragment
	var untyped []form.RawFragment
	for _, f := range frags {
		if f.Typed {
			typed = append(typed, f)
		} else {
			untyped = append(untyped, f)
		}
	}
	groups := p.classifier.Group(untyped)

	r.advance(StageResolving)
	questions := make([]form.Question, 0, len(groups)+len(typed))
	for _, f := range typed {
		q := form.Question{Text: f.Text, Type: f.Type, Options: append([]string{}, f.Options...)}
		if !q.Type.IsChoice() {
			q.Options = []string{}
		}
		questions = append(questions, q)
	}
	for _, g := range groups {
		questions = append(questions, p.resolver.Resolve(g))
	}

	r.advance(StageFiltering)
	res := p.filter.Filter(questions)
	res.Source = source

	r.Result = res
	r.advance(StageDone)
	p.log.Debug("form parsed", "source", source, "total", res.TotalFound, "filtered", res.FilteredOut)
}

func (p *Orchestrator) dom(document string) []form.RawFragment {
	q, err := p.query(document)
	if err != nil {
		p.log.Warn("dom fallback unavailable", "error", err)
		return nil
	}
	return p.classifier.domFragments(q, p.selectors)
}
