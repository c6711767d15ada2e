package generate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Sentiment is the tone a synthesized response is written in.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// ParseSentiment accepts the three tone names; anything else is neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case Positive, Negative:
		return Sentiment(s)
	}
	return Neutral
}

// ErrDistribution means the percentages do not add up to 100.
var ErrDistribution = errors.New("sentiment distribution must total 100")

// Distribution is the percentage split of responses across sentiments.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// DefaultDistribution is the stock 60/30/10 mix.
func DefaultDistribution() Distribution {
	return Distribution{Positive: 60, Neutral: 30, Negative: 10}
}

func (d Distribution) Validate() error {
	if d.Positive < 0 || d.Neutral < 0 || d.Negative < 0 {
		return fmt.Errorf("%w: negative share in %d/%d/%d", ErrDistribution, d.Positive, d.Neutral, d.Negative)
	}
	if total := d.Positive + d.Neutral + d.Negative; total != 100 {
		return fmt.Errorf("%w: got %d", ErrDistribution, total)
	}
	return nil
}

// Counts splits n responses: positive and neutral are rounded from their
// shares and negative takes the remainder, so the sum is always n.
func (d Distribution) Counts(n int) (positive, neutral, negative int) {
	positive = int(math.Round(float64(d.Positive) / 100 * float64(n)))
	neutral = int(math.Round(float64(d.Neutral) / 100 * float64(n)))
	if positive > n {
		positive = n
	}
	if positive+neutral > n {
		neutral = n - positive
	}
	return positive, neutral, n - positive - neutral
}

// Queue returns the n sentiments in shuffled order. rng may be nil.
func (d Distribution) Queue(n int, rng *rand.Rand) []Sentiment {
	p, u, g := d.Counts(n)
	q := make([]Sentiment, 0, n)
	for i := 0; i < p; i++ {
		q = append(q, Positive)
	}
	for i := 0; i < u; i++ {
		q = append(q, Neutral)
	}
	for i := 0; i < g; i++ {
		q = append(q, Negative)
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })
	return q
}

var guidance = map[Sentiment]string{
	Positive: `- POSITIVE: Enthusiastic, satisfied, optimistic, constructive feedback
- Use positive language: "great", "excellent", "love", "appreciate", "beneficial"
- Express satisfaction and enthusiasm
- Provide constructive suggestions with positive framing
- Show appreciation for services, products, or experiences
- Focus on strengths, improvements, and positive outcomes`,
	Neutral: `- NEUTRAL: Balanced, objective, factual, mixed opinions
- Use moderate language: "adequate", "reasonable", "satisfactory", "acceptable"
- Present balanced viewpoints with pros and cons
- Avoid extreme language or strong emotional expressions
- Provide factual observations and measured feedback
- Focus on objective assessment and practical considerations`,
	Negative: `- NEGATIVE: Critical, concerned, dissatisfied, areas for improvement
- Use critical language: "disappointing", "frustrating", "needs improvement", "concerned"
- Express dissatisfaction or concerns constructively
- Identify specific problems or areas for improvement
- Focus on issues, limitations, and areas needing attention
- Provide constructive criticism with specific examples`,
}

// Guidance returns the tone instructions for s.
func Guidance(s Sentiment) string {
	if g, ok := guidance[s]; ok {
		return g
	}
	return guidance[Neutral]
}
