package parser

import "github.com/dgallion1/formgest/internal/form"

// GroupedQuestion is a stem fragment with the option texts that followed it.
type GroupedQuestion struct {
	Stem    form.RawFragment
	Options []string
}

// Group folds option fragments under the most recent question fragment in a
// single pass. Options seen before any question, and fragments that are
// neither, are dropped.
func (c *Classifier) Group(fragments []form.RawFragment) []GroupedQuestion {
	var out []GroupedQuestion
	var current *GroupedQuestion

	for _, f := range fragments {
		switch {
		case c.IsQuestion(f.Text):
			if current != nil {
				out = append(out, *current)
			}
			current = &GroupedQuestion{Stem: f, Options: []string{}}
		case current != nil && c.IsOption(f.Text):
			current.Options = append(current.Options, f.Text)
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}
