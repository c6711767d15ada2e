package generate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/formgest/internal/form"
)

// FallbackAnswer stands in when the completion has no line for a question.
const FallbackAnswer = "Response generated based on question context"

// MaxAnswerLength caps a single answer in runes.
const MaxAnswerLength = 2000

// Response is one synthesized submission of the whole form.
type Response struct {
	ResponseNumber int                `json:"responseNumber"`
	Sentiment      Sentiment          `json:"sentiment"`
	Questions      []AnsweredQuestion `json:"questions"`
	Model          string             `json:"model,omitempty"`
}

// AnsweredQuestion pairs a question with its generated answer.
type AnsweredQuestion struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

var answerLineRe = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?(?:question[ \t]*|q)(\d+)(?:\*\*)?[ \t]*[:.)-][ \t]*(?:\*\*)?[ \t]*(.*)$`)

// Answers indexes the "Question N:" / "QN:" lines of a completion by N.
// The first non-empty line for a number wins.
func Answers(text string) map[int]string {
	out := make(map[int]string)
	for _, m := range answerLineRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, seen := out[n]; seen {
			continue
		}
		if a := strings.TrimSpace(m[2]); a != "" {
			out[n] = a
		}
	}
	return out
}

// ExtractAnswer returns the answer for the zero-based question index.
func ExtractAnswer(text string, index int) string {
	if a, ok := Answers(text)[index+1]; ok {
		return a
	}
	return FallbackAnswer
}

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|` +
		`new\s+instructions)`,
)

// SanitizeAnswer trims and caps an answer and rejects text that tries to
// steer whoever reads the export.
func SanitizeAnswer(s string) string {
	s = strings.TrimSpace(stripCodeBlock(s))
	s = strings.Trim(s, "*_` ")
	if s == "" || injectionPattern.MatchString(s) {
		return FallbackAnswer
	}
	if utf8.RuneCountInString(s) > MaxAnswerLength {
		r := []rune(s)
		s = string(r[:MaxAnswerLength]) + "..."
	}
	return s
}

var explanations = map[Sentiment]map[form.QuestionType]string{
	Positive: {
		form.MultipleChoice: "Selected this option as it reflects a positive, enthusiastic perspective that aligns with the respondent's satisfaction and optimism.",
		form.Checkboxes:     "Chose these options based on positive experiences and satisfaction with the available choices.",
		form.ShortAnswer:    "Provided a concise, positive response that reflects enthusiasm and satisfaction with the topic.",
		form.LongAnswer:     "Wrote a detailed, positive response with specific examples and constructive feedback that demonstrates satisfaction and optimism.",
	},
	Neutral: {
		form.MultipleChoice: "Selected this option as it represents a balanced, objective choice that reflects measured consideration.",
		form.Checkboxes:     "Chose these options based on practical considerations and balanced assessment of the available choices.",
		form.ShortAnswer:    "Provided a moderate, factual response that reflects objective consideration of the topic.",
		form.LongAnswer:     "Wrote a detailed, balanced response with both positive and negative considerations, reflecting objective analysis.",
	},
	Negative: {
		form.MultipleChoice: "Selected this option as it reflects concerns or dissatisfaction with the available choices.",
		form.Checkboxes:     "Chose these options based on critical assessment and identification of areas needing improvement.",
		form.ShortAnswer:    "Provided a critical response that reflects concerns or dissatisfaction with the topic.",
		form.LongAnswer:     "Wrote a detailed response highlighting issues and areas for improvement, reflecting constructive criticism.",
	},
}

// Explanation describes why an answer of type t reads the way it does.
func Explanation(t form.QuestionType, s Sentiment) string {
	byType, ok := explanations[s]
	if !ok {
		byType = explanations[Neutral]
	}
	if e, ok := byType[t]; ok {
		return e
	}
	return byType[form.ShortAnswer]
}

// Assemble maps a completion onto the questions it answers.
func Assemble(number int, s Sentiment, questions []form.Question, c Completion) Response {
	answers := Answers(c.Text)
	resp := Response{
		ResponseNumber: number,
		Sentiment:      s,
		Model:          c.Model,
		Questions:      make([]AnsweredQuestion, len(questions)),
	}
	for i, q := range questions {
		a, ok := answers[i+1]
		if !ok {
			a = FallbackAnswer
		}
		resp.Questions[i] = AnsweredQuestion{
			Question:    q.Text,
			Answer:      SanitizeAnswer(a),
			Explanation: Explanation(q.Type, s),
		}
	}
	return resp
}
