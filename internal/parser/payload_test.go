package parser

import (
	"errors"
	"testing"

	"github.com/dgallion1/formgest/internal/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayload(t *testing.T) {
	doc := "<script>\nvar FB_PUBLIC_LOAD_DATA_ = [null,\n [[\"What?\", 1]], \"x\"];\n</script>"
	data, err := ExtractPayload(doc)
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Nil(t, data[0])
	assert.Equal(t, "x", data[2])
}

func TestExtractPayload_NotFound(t *testing.T) {
	_, err := ExtractPayload("<html><body>nothing here</body></html>")
	assert.ErrorIs(t, err, ErrPayloadNotFound)
}

func TestExtractPayload_Malformed(t *testing.T) {
	_, err := ExtractPayload(`var FB_PUBLIC_LOAD_DATA_ = [null, ["How are you?", ];`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.NotErrorIs(t, err, ErrPayloadNotFound)
}

func TestPositional(t *testing.T) {
	c := NewClassifier(form.DefaultThresholds())
	questions := []any{[]any{"What is your favourite course?", nil}}
	data := []any{questions, nil, questions}

	loc, ok := Positional{Indices: []int{1, 2, 3, 4, 5}, classifier: c}.Locate(data)
	require.True(t, ok)
	assert.Equal(t, []int{2}, loc.Path, "index 0 is not probed")
}

func TestRecursive_DepthCap(t *testing.T) {
	c := NewClassifier(form.DefaultThresholds())
	var nested any = []any{[]any{"What is your favourite course?", nil}}
	for i := 0; i < 3; i++ {
		nested = []any{nested}
	}
	data := []any{nested}

	loc, ok := Recursive{MaxDepth: 5, classifier: c}.Locate(data)
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 0, 0}, loc.Path)

	_, ok = Recursive{MaxDepth: 2, classifier: c}.Locate(data)
	assert.False(t, ok)
}

func TestPattern(t *testing.T) {
	data := []any{
		"title",
		[]any{
			[]any{"Cafeteria opening times", nil, 1.0},
			[]any{"Library opening times", nil, 2.0},
			"stray",
		},
	}
	loc, ok := Pattern{}.Locate(data)
	require.True(t, ok)
	assert.Equal(t, []int{1}, loc.Path)

	_, ok = Pattern{}.Locate([]any{[]any{[]any{"only one", nil, 1.0}}})
	assert.False(t, ok, "needs two similar siblings")

	loc, ok = Pattern{}.Locate([]any{[]any{
		[]any{"Opening times", nil, 1.0},
		[]any{"Short sibling", nil},
	}})
	require.True(t, ok, "a short string-headed sibling still counts")
	assert.Equal(t, []int{0}, loc.Path)

	_, ok = Pattern{}.Locate([]any{[]any{[]any{"Only short", nil}, []any{"Entries", nil}}})
	assert.False(t, ok, "needs one record of three or more fields")
}

func TestPattern_LargeContainer(t *testing.T) {
	container := make([]any, 0, 50001)
	container = append(container, []any{"lonely record", nil, 1.0})
	for i := 0; i < 50000; i++ {
		container = append(container, []any{float64(i)})
	}
	_, ok := Pattern{}.Locate([]any{container})
	assert.False(t, ok)
}

func TestLocate_AggregatesReasons(t *testing.T) {
	c := NewClassifier(form.DefaultThresholds())
	_, _, err := Locate([]any{1.0, "x"}, DefaultStrategies(c))

	var se *StrategyError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Reasons, 3)
	assert.ErrorIs(t, err, ErrQuestionsNotFound)
	assert.Contains(t, err.Error(), "positional")
	assert.Contains(t, err.Error(), "pattern")
}

func TestFragments(t *testing.T) {
	loc := Location{
		Path: []int{1},
		Items: []any{
			[]any{"  <b>How</b> would you\n rate &amp; review? ", nil},
			[]any{"lonely"},
			"not an item",
			[]any{12.0, "numeric head"},
			[]any{"", nil},
			[]any{"Second", 4.0},
		},
	}
	got := Fragments(loc)
	require.Len(t, got, 2)
	assert.Equal(t, "How would you rate & review?", got[0].Text)
	assert.Equal(t, []int{1, 0}, got[0].Path)
	assert.Equal(t, "Second", got[1].Text)
	assert.Equal(t, []int{1, 5}, got[1].Path)
	assert.Len(t, got[1].Fields, 2)
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Is speed a<b for you, please explain why?", "Is speed a<b for you, please explain why?"},
		{"Which do you prefer: <none> or something else entirely?", "Which do you prefer: <none> or something else entirely?"},
		{"Is x < 5 or y > 3 in your data?", "Is x < 5 or y > 3 in your data?"},
		{"Rate a &lt;b&gt; tag", "Rate a <b> tag"},
		{"<b>How</b> would you rate it?", "How would you rate it?"},
		{"Line one<br>line two", "Line one line two"},
		{"  spaced\n\tout  ", "spaced out"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanText(tc.in), "cleanText(%q)", tc.in)
	}
}

func TestParseData_LiteralAngleBracket(t *testing.T) {
	stem := "Is speed a<b for you, please explain why in detail?"
	data := []any{nil, []any{
		[]any{stem, "paragraph", nil, []any{}, []any{}},
	}}

	res, err := New(Options{}).ParseData(data)
	require.NoError(t, err)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, stem, res.Questions[0].Text)
}
