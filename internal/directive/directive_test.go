package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSingleTags(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    Kind
		payload string
	}{
		{"search", "before <SEARCH>cats</SEARCH> after", Search, "cats"},
		{"deep tag", "<DEEP>quantum computing</DEEP>", DeepSearch, "quantum computing"},
		{"search promoted to deep", "<SEARCH>deep dive into rust</SEARCH>", DeepSearch, "deep dive into rust"},
		{"think", "<THINK>prove the lemma</THINK>", Think, "prove the lemma"},
		{"image", "<IMAGE>a red fox</IMAGE>", Image, "a red fox"},
		{"project", "<PROJECT>todo app</PROJECT>", Project, "todo app"},
		{"canvas", "<CANVAS>landing page</CANVAS>", Canvas, "landing page"},
		{"study", "<STUDY>linear algebra</STUDY>", Study, "linear algebra"},
		{"payload trimmed", "<SEARCH>  cats  </SEARCH>", Search, "cats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Scan(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.payload, d.Payload)
		})
	}
}

func TestScanNoDirective(t *testing.T) {
	tests := []string{
		"",
		"plain answer with no tags",
		"math uses < and > signs: 1 < 2 > 0",
		"<UNKNOWN>payload</UNKNOWN>",
	}

	for _, text := range tests {
		_, ok := Scan(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestScanPrecedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
	}{
		{
			"deep beats search",
			"<SEARCH>cats</SEARCH> <DEEP>dogs</DEEP>",
			DeepSearch,
		},
		{
			"search beats think",
			"<THINK>hard</THINK> <SEARCH>cats</SEARCH>",
			Search,
		},
		{
			"think beats image",
			"<IMAGE>fox</IMAGE> <THINK>hard</THINK>",
			Think,
		},
		{
			"image beats project",
			"<PROJECT>app</PROJECT> <IMAGE>fox</IMAGE>",
			Image,
		},
		{
			"project beats canvas",
			"<CANVAS>page</CANVAS> <PROJECT>app</PROJECT>",
			Project,
		},
		{
			"canvas beats study",
			"<STUDY>topic</STUDY> <CANVAS>page</CANVAS>",
			Canvas,
		},
		{
			"all tags present",
			"<STUDY>s</STUDY><CANVAS>c</CANVAS><PROJECT>p</PROJECT><IMAGE>i</IMAGE><THINK>t</THINK><SEARCH>q</SEARCH><DEEP>d</DEEP>",
			DeepSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Scan(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.kind, d.Kind)
		})
	}
}

func TestScanBareThinkFallsBackToEmptyPayload(t *testing.T) {
	d, ok := Scan("I need to reason about this <THINK>")
	require.True(t, ok)
	assert.Equal(t, Think, d.Kind)
	assert.Empty(t, d.Payload)
}

func TestScanUnclosedTagsAreIgnored(t *testing.T) {
	// Re-routing requires closed tags; only THINK has a bare-tag fallback.
	_, ok := Scan("<SEARCH>cats with no close")
	assert.False(t, ok)

	_, ok = Scan("<IMAGE>fox with no close")
	assert.False(t, ok)
}

func TestScanInitialAllowsUnterminatedTags(t *testing.T) {
	d, ok := ScanInitial("<SEARCH>latest go release")
	require.True(t, ok)
	assert.Equal(t, Search, d.Kind)
	assert.Equal(t, "latest go release", d.Payload)

	d, ok = ScanInitial("<SEARCH>deep history of unicode")
	require.True(t, ok)
	assert.Equal(t, DeepSearch, d.Kind)

	_, ok = ScanInitial("no tags at all")
	assert.False(t, ok)
}

func TestScanIsIdempotentOnCleanOutput(t *testing.T) {
	// A final answer that went through the scanner once must not
	// re-trigger: no tags in, no directive out.
	_, ok := Scan("The answer is 42. Sources: [1] example.com")
	assert.False(t, ok)
}
