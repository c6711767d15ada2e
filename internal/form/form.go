package form

// QuestionType is the answer-type tag of a question.
type QuestionType string

const (
	ShortAnswer    QuestionType = "short_answer"
	LongAnswer     QuestionType = "long_answer"
	MultipleChoice QuestionType = "multiple_choice"
	Checkboxes     QuestionType = "checkboxes"
)

// Valid reports whether t is one of the four known types.
func (t QuestionType) Valid() bool {
	switch t {
	case ShortAnswer, LongAnswer, MultipleChoice, Checkboxes:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from declared options.
func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == Checkboxes
}

// Source records which extraction path produced a result.
type Source string

const (
	SourcePayload   Source = "payload"
	SourceDOM       Source = "dom"
	SourceFragments Source = "fragments"
	SourceOutline   Source = "outline"
)

// RawFragment is one candidate text leaf recovered from a payload or document.
type RawFragment struct {
	Text string // Candidate stem or option text
	Path []int  // Location in the nested source structure

	// Fields is the source array the text was read from (primary path only).
	Fields []any

	// Set by the DOM fallback, which infers types from markup.
	Typed   bool
	Type    QuestionType
	Options []string
}

// Question is the canonical unit of parser output.
type Question struct {
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	IsPersonalInfo bool         `json:"isPersonalInfo"`
}

// ParseResult is the filtered question list plus provenance counters.
type ParseResult struct {
	Questions   []Question `json:"questions"`
	TotalFound  int        `json:"totalFound"`
	FilteredOut int        `json:"filteredOut"`
	Source      Source     `json:"source,omitempty"`

	// Excluded holds the filtered-out records, flagged IsPersonalInfo.
	Excluded []Question `json:"-"`
}

// Empty reports whether no question survived filtering.
func (r ParseResult) Empty() bool {
	return len(r.Questions) == 0
}

// Consistent checks the counter invariant.
func (r ParseResult) Consistent() bool {
	return r.TotalFound == len(r.Questions)+r.FilteredOut
}

// Thresholds are the empirically tuned cutoffs used by the classifier and
// payload locator. They are carried in configuration so they can be retuned.
type Thresholds struct {
	// Stems must be longer than this many runes, unless they carry an
	// explicit '?' and at least MinPromptWords words.
	MinQuestionLength int
	MinPromptWords    int

	// Short option: fewer runes than ShortOptionLength, at most
	// ShortOptionWords words, no question cue.
	ShortOptionLength int
	ShortOptionWords  int

	// Tiny option: at most TinyOptionWords words and fewer runes than
	// TinyOptionLength, regardless of cues.
	TinyOptionLength int
	TinyOptionWords  int

	// Minimum share of question-shaped elements for an array to count as
	// the question list.
	QuestionArrayRatio float64

	// Max-length constraint assumed when none is recorded, and the length
	// above which a "text" input becomes a long answer.
	DefaultMaxLength    int
	LongAnswerMinLength int

	// Depth cap for the recursive payload search.
	SearchDepth int
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinQuestionLength:   40,
		MinPromptWords:      3,
		ShortOptionLength:   50,
		ShortOptionWords:    3,
		TinyOptionLength:    30,
		TinyOptionWords:     2,
		QuestionArrayRatio:  0.3,
		DefaultMaxLength:    100,
		LongAnswerMinLength: 100,
		SearchDepth:         5,
	}
}

// WithDefaults fills zero or out-of-range fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MinQuestionLength <= 0 {
		t.MinQuestionLength = d.MinQuestionLength
	}
	if t.MinPromptWords <= 0 {
		t.MinPromptWords = d.MinPromptWords
	}
	if t.ShortOptionLength <= 0 {
		t.ShortOptionLength = d.ShortOptionLength
	}
	if t.ShortOptionWords <= 0 {
		t.ShortOptionWords = d.ShortOptionWords
	}
	if t.TinyOptionLength <= 0 {
		t.TinyOptionLength = d.TinyOptionLength
	}
	if t.TinyOptionWords <= 0 {
		t.TinyOptionWords = d.TinyOptionWords
	}
	if t.QuestionArrayRatio <= 0 || t.QuestionArrayRatio > 1 {
		t.QuestionArrayRatio = d.QuestionArrayRatio
	}
	if t.DefaultMaxLength <= 0 {
		t.DefaultMaxLength = d.DefaultMaxLength
	}
	if t.LongAnswerMinLength <= 0 {
		t.LongAnswerMinLength = d.LongAnswerMinLength
	}
	if t.SearchDepth <= 0 {
		t.SearchDepth = d.SearchDepth
	}
	return t
}
