package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

var (
	// ErrPayloadNotFound means the embedded data marker is absent.
	ErrPayloadNotFound = errors.New("embedded form data not found")

	// ErrMalformedPayload means the marker was found but its literal is not valid JSON.
	ErrMalformedPayload = errors.New("embedded form data is not valid json")

	// ErrQuestionsNotFound means no extraction path produced any fragment.
	ErrQuestionsNotFound = errors.New("no question data found")

	// ErrNoQuestions means parsing succeeded but nothing survived filtering.
	ErrNoQuestions = errors.New("form has no usable questions")
)

// StrategyError aggregates why every locate strategy missed.
type StrategyError struct {
	Reasons []string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuestionsNotFound, strings.Join(e.Reasons, "; "))
}

func (e *StrategyError) Unwrap() error {
	return ErrQuestionsNotFound
}

// RequireQuestions turns an empty result into ErrNoQuestions.
func RequireQuestions(r form.ParseResult) error {
	if r.Empty() {
		return ErrNoQuestions
	}
	return nil
}
