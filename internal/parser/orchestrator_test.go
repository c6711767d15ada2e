package parser

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `[null,[
 ["How would you rate the cleanliness of the campus library?","choice",null,[],[["Excellent"],["Good"],["Average"],["Poor"],0]],
 ["Which facilities do you use at least once a week?","choice",null,[],[["Library"],["Cafeteria"],["Sports facilities"],2]],
 ["Please describe any improvements you would like to see on campus.","paragraph",null,[],[]],
 ["What is your email address so we can follow up?","short",null,[],[]],
 ["Explain how often you visit the cafeteria during a typical week.","text",null,[500],[]],
 ["What time do you usually arrive on campus each morning?","text",null,[50],[]]
],"/forms","Campus survey"]`

func sampleDocument() string {
	return "<html><head><script>var FB_PUBLIC_LOAD_DATA_ = " + samplePayload + ";</script></head><body></body></html>"
}

// fakeQuery is a DocumentQuery over canned elements.
type fakeQuery map[string][]Element

func (q fakeQuery) Select(selector string) []Element { return q[selector] }

type fakeElement struct {
	text     string
	html     string
	children map[string][]Element
	attrs    map[string]string
}

func (e fakeElement) Text() string                   { return e.text }
func (e fakeElement) HTML() string                   { return e.html }
func (e fakeElement) Find(selector string) []Element { return e.children[selector] }
func (e fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func queryOf(q DocumentQuery) QueryFunc {
	return func(string) (DocumentQuery, error) { return q, nil }
}

// emptyStrategy locates an empty array.
type emptyStrategy struct{}

func (emptyStrategy) Name() string                   { return "empty" }
func (emptyStrategy) Locate([]any) (Location, bool) { return Location{Items: []any{}}, true }

func assertWellFormed(t *testing.T, c *Classifier, res form.ParseResult) {
	t.Helper()
	assert.True(t, res.Consistent(), "totalFound %d != %d + %d", res.TotalFound, len(res.Questions), res.FilteredOut)
	for _, q := range res.Questions {
		assert.NotEmpty(t, q.Text)
		assert.False(t, c.IsOption(q.Text), "question %q reads as an option", q.Text)
		assert.False(t, q.IsPersonalInfo)
		assert.True(t, q.Type.Valid())
		if !q.Type.IsChoice() {
			assert.Empty(t, q.Options)
		}
	}
}

func TestParse_Payload(t *testing.T) {
	o := New(Options{})
	res, err := o.Parse(sampleDocument())
	require.NoError(t, err)
	assertWellFormed(t, o.Classifier(), res)

	assert.Equal(t, form.SourcePayload, res.Source)
	assert.Equal(t, 6, res.TotalFound)
	assert.Equal(t, 1, res.FilteredOut)
	require.Len(t, res.Questions, 5)

	want := []struct {
		typ     form.QuestionType
		options []string
	}{
		{form.MultipleChoice, []string{"Excellent", "Good", "Average", "Poor"}},
		{form.Checkboxes, []string{"Library", "Cafeteria", "Sports facilities"}},
		{form.LongAnswer, []string{}},
		{form.LongAnswer, []string{}},
		{form.ShortAnswer, []string{}},
	}
	for i, w := range want {
		assert.Equal(t, w.typ, res.Questions[i].Type, res.Questions[i].Text)
		assert.Equal(t, w.options, res.Questions[i].Options, res.Questions[i].Text)
	}
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "What is your email address so we can follow up?", res.Excluded[0].Text)
	assert.True(t, res.Excluded[0].IsPersonalInfo)
}

func TestRun_Trace(t *testing.T) {
	r := New(Options{}).Run(sampleDocument())
	assert.Equal(t, StageDone, r.Stage)
	assert.Equal(t, []Stage{StageIdle, StageExtracting, StageGrouping, StageResolving, StageFiltering, StageDone}, r.Trace)
	assert.NoError(t, r.Err)

	r = New(Options{}).Run(`var FB_PUBLIC_LOAD_DATA_ = [1, ];`)
	assert.Equal(t, StageFailed, r.Stage)
	assert.Equal(t, StageExtracting, r.FailedAt())
	assert.Equal(t, []Stage{StageIdle, StageExtracting, StageFailed}, r.Trace)
}

func TestParseFragments_LibraryScenario(t *testing.T) {
	o := New(Options{})
	res := o.ParseFragments(frags(
		"How would you rate our library?", "Excellent", "Good", "Average", "Poor", "What is your department?",
	), form.SourceFragments)

	assertWellFormed(t, o.Classifier(), res)
	assert.Equal(t, []form.Question{
		{Text: "How would you rate our library?", Type: form.MultipleChoice, Options: []string{"Excellent", "Good", "Average", "Poor"}},
		{Text: "What is your department?", Type: form.ShortAnswer, Options: []string{}},
	}, res.Questions)
	assert.Equal(t, 2, res.TotalFound)
	assert.Zero(t, res.FilteredOut)
}

func TestParseFragments_EmailFiltered(t *testing.T) {
	o := New(Options{})
	without := o.ParseFragments(frags("How would you rate our library?", "Good"), form.SourceFragments)
	with := o.ParseFragments(frags("How would you rate our library?", "Good", "What is your email address?"), form.SourceFragments)

	assert.Equal(t, without.Questions, with.Questions)
	assert.Equal(t, without.FilteredOut+1, with.FilteredOut)
	assertWellFormed(t, o.Classifier(), with)
}

func TestParse_NoMarkerNoDOM(t *testing.T) {
	o := New(Options{Query: queryOf(fakeQuery{})})
	_, err := o.Parse("<html><body><p>Hello</p></body></html>")
	assert.ErrorIs(t, err, ErrQuestionsNotFound)
	assert.ErrorIs(t, err, ErrPayloadNotFound)
}

func TestParse_NoMarkerNoDOM_Goquery(t *testing.T) {
	_, err := New(Options{}).Parse("<html><body><p>Hello</p></body></html>")
	assert.ErrorIs(t, err, ErrQuestionsNotFound)
}

func TestParse_Malformed(t *testing.T) {
	dom := fakeQuery{`div[role="listitem"]`: {fakeElement{text: "What is your favourite campus building and why?"}}}
	_, err := New(Options{Query: queryOf(dom)}).Parse(`<script>var FB_PUBLIC_LOAD_DATA_ = [null, [["What?", 1]], ];</script>`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.NotErrorIs(t, err, ErrQuestionsNotFound)
}

func TestParse_StrategiesExhausted(t *testing.T) {
	o := New(Options{Query: queryOf(fakeQuery{})})
	_, err := o.Parse(`var FB_PUBLIC_LOAD_DATA_ = [1, "two", [3]];`)

	var se *StrategyError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, ErrQuestionsNotFound)
}

func TestParse_EmptyLocationIsEmptyResult(t *testing.T) {
	o := New(Options{Strategies: []Strategy{emptyStrategy{}}, Query: queryOf(fakeQuery{})})
	res, err := o.Parse(`var FB_PUBLIC_LOAD_DATA_ = [1];`)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.True(t, res.Consistent())
	assert.ErrorIs(t, RequireQuestions(res), ErrNoQuestions)
}

func TestParse_DOMFallback(t *testing.T) {
	heading := func(s string) map[string][]Element {
		return map[string][]Element{`[role="heading"]`: {fakeElement{text: s}}}
	}
	mc := fakeElement{
		text: "ignored",
		html: `<div role="radiogroup"></div>`,
		children: map[string][]Element{
			`[role="heading"]`: {fakeElement{text: "  How satisfied are you with the\n shuttle service?"}},
			"[data-value]": {
				fakeElement{attrs: map[string]string{"data-value": "Very satisfied"}},
				fakeElement{attrs: map[string]string{"data-value": " Neutral "}},
				fakeElement{},
			},
		},
	}
	dom := fakeQuery{
		`.freebirdFormviewerViewItemsItemItem`: {
			mc,
			fakeElement{html: `<div role="checkbox"></div>`, children: heading("Which services have you used this year?")},
			fakeElement{html: `<textarea></textarea>`, children: heading("Please describe your ideal study space on campus.")},
			fakeElement{text: "What is your full name?"},
			fakeElement{text: "Your answer"},
			fakeElement{text: "   "},
		},
		`[data-item-id]`: {fakeElement{text: "lower priority selector must not be used at all here"}},
	}

	o := New(Options{Query: queryOf(dom)})
	res, err := o.Parse("<html><body>no payload</body></html>")
	require.NoError(t, err)
	assertWellFormed(t, o.Classifier(), res)

	assert.Equal(t, form.SourceDOM, res.Source)
	assert.Equal(t, 4, res.TotalFound)
	assert.Equal(t, 1, res.FilteredOut)
	assert.Equal(t, []form.Question{
		{Text: "How satisfied are you with the shuttle service?", Type: form.MultipleChoice, Options: []string{"Very satisfied", "Neutral"}},
		{Text: "Which services have you used this year?", Type: form.Checkboxes, Options: []string{}},
		{Text: "Please describe your ideal study space on campus.", Type: form.LongAnswer, Options: []string{}},
	}, res.Questions)
}

func TestParse_DOMFallback_Goquery(t *testing.T) {
	doc := `<html><body><form>
<div role="listitem"><div role="heading">How satisfied are you with the campus shuttle service?</div>
  <div role="radiogroup"><div data-value="Very satisfied">Very satisfied</div><div data-value="Neutral">Neutral</div></div></div>
<div role="listitem"><div role="heading">Please describe your ideal study space on campus.</div><textarea></textarea></div>
<div role="listitem"><div role="heading">Your answer</div></div>
</form></body></html>`

	res, err := New(Options{}).Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, form.SourceDOM, res.Source)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, form.MultipleChoice, res.Questions[0].Type)
	assert.Equal(t, []string{"Very satisfied", "Neutral"}, res.Questions[0].Options)
	assert.Equal(t, form.LongAnswer, res.Questions[1].Type)
}

func TestParse_Idempotent(t *testing.T) {
	o := New(Options{})
	a, errA := o.Parse(sampleDocument())
	b, errB := o.Parse(sampleDocument())
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestParse_Concurrent(t *testing.T) {
	o := New(Options{})
	want, err := o.Parse(sampleDocument())
	require.NoError(t, err)

	other := strings.Replace(sampleDocument(), "campus library", "student union", 1)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := sampleDocument()
			if i%2 == 1 {
				doc = other
			}
			got, err := o.Parse(doc)
			assert.NoError(t, err)
			if i%2 == 0 {
				assert.Equal(t, want, got)
			} else {
				assert.Contains(t, got.Questions[0].Text, "student union")
			}
		}(i)
	}
	wg.Wait()
}

func TestParseData(t *testing.T) {
	data, err := ExtractPayload(sampleDocument())
	require.NoError(t, err)

	res, err := New(Options{}).ParseData(data)
	require.NoError(t, err)
	assert.Len(t, res.Questions, 5)

	_, err = New(Options{}).ParseData([]any{"nothing"})
	assert.ErrorIs(t, err, ErrQuestionsNotFound)
}
