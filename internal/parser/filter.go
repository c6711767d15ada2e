package parser

import (
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

// DefaultPersonalInfoKeywords are matched as lower-cased substrings of a stem.
var DefaultPersonalInfoKeywords = []string{
	"name", "email", "e-mail", "e mail", "phone", "contact", "address", "personal",
	"first name", "last name", "full name", "your name", "what is your name", "what's your name",
	"phone number", "mobile number", "cell phone", "home phone", "work phone", "contact number",
	"email address", "contact information", "contact details",
	"personal information", "personal details",
}

// PersonalInfoFilter drops questions that ask for identifying details.
type PersonalInfoFilter struct {
	keywords []string
}

// NewPersonalInfoFilter returns a filter over keywords, or the default list when empty.
func NewPersonalInfoFilter(keywords []string) *PersonalInfoFilter {
	if len(keywords) == 0 {
		keywords = DefaultPersonalInfoKeywords
	}
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &PersonalInfoFilter{keywords: kw}
}

// Matches reports whether text asks for personal information.
func (f *PersonalInfoFilter) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Filter splits questions into kept and excluded. The input slice is not
// modified; excluded copies carry IsPersonalInfo.
func (f *PersonalInfoFilter) Filter(questions []form.Question) form.ParseResult {
	res := form.ParseResult{Questions: []form.Question{}, TotalFound: len(questions)}
	for _, q := range questions {
		q.Options = append([]string{}, q.Options...)
		if f.Matches(q.Text) {
			q.IsPersonalInfo = true
			res.Excluded = append(res.Excluded, q)
			continue
		}
		q.IsPersonalInfo = false
		res.Questions = append(res.Questions, q)
	}
	res.FilteredOut = len(res.Excluded)
	return res
}
