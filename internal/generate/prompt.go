package generate

import (
	"fmt"
	"strings"

	"github.com/dgallion1/formgest/internal/form"
)

const promptTemplate = `You are an expert at generating realistic survey responses. Generate responses for the following Google Form questions with a {s} sentiment.

FORM QUESTIONS:
{questions}

SENTIMENT CONTEXT: {S}
{guidance}

RESPONSE GUIDELINES:
1. For multiple choice: Select exactly one of the listed options that aligns with the {s} sentiment
2. For checkboxes: Choose one or more of the listed options that reflect the {s} perspective, separated by commas
3. For short answer: Provide concise, {s}-appropriate responses with realistic details
4. For long answer: Write detailed responses with proper context, reasoning, and {s} tone
5. Ensure all responses are authentic, realistic, and contextually appropriate
6. Maintain consistent {s} sentiment throughout all responses

OUTPUT FORMAT:
Question 1: [Your response here]
Question 2: [Your response here]
...and so on for all questions, one line each

Respond with ONLY the answer lines, no other text.`

// BuildPrompt creates the full completion prompt for one response.
func BuildPrompt(questions []form.Question, s Sentiment) string {
	var sb strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&sb, "%d. %s (Type: %s", i+1, q.Text, q.Type)
		if len(q.Options) > 0 {
			sb.WriteString(", Options: ")
			sb.WriteString(strings.Join(q.Options, ", "))
		}
		sb.WriteString(")\n")
	}

	return strings.NewReplacer(
		"{questions}", strings.TrimRight(sb.String(), "\n"),
		"{guidance}", Guidance(s),
		"{S}", strings.ToUpper(string(s)),
		"{s}", string(s),
	).Replace(promptTemplate)
}
