package generate

import "github.com/dgallion1/formgest/internal/form"

// Weights per question type used for the complexity score.
var complexityWeight = map[form.QuestionType]int{
	form.ShortAnswer:    1,
	form.LongAnswer:     3,
	form.MultipleChoice: 1,
	form.Checkboxes:     2,
}

// Analysis summarizes how demanding a form is to answer.
type Analysis struct {
	Counts           map[form.QuestionType]int `json:"counts"`
	Complexity       int                       `json:"complexity"`
	Description      string                    `json:"description"`
	RecommendedCount int                       `json:"recommendedCount"`
}

// Analyze counts question types and derives a recommended response count.
func Analyze(questions []form.Question) Analysis {
	a := Analysis{Counts: map[form.QuestionType]int{
		form.ShortAnswer: 0, form.LongAnswer: 0, form.MultipleChoice: 0, form.Checkboxes: 0,
	}}
	for _, q := range questions {
		if w, ok := complexityWeight[q.Type]; ok {
			a.Counts[q.Type]++
			a.Complexity += w
		}
	}
	switch {
	case a.Complexity <= 5:
		a.Description, a.RecommendedCount = "Simple", 5
	case a.Complexity <= 10:
		a.Description, a.RecommendedCount = "Medium", 3
	case a.Complexity <= 15:
		a.Description, a.RecommendedCount = "Complex", 2
	default:
		a.Description, a.RecommendedCount = "Very Complex", 1
	}
	return a
}
