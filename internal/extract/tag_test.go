package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagExtractor(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "simple match",
			text:   "The code is <answer>EFPTGK</answer>.",
			want:   "EFPTGK",
			wantOK: true,
		},
		{
			name:   "case-insensitive markers",
			text:   "<ANSWER>EFPTGK</ANSWER>",
			want:   "EFPTGK",
			wantOK: true,
		},
		{
			name:   "mixed case markers",
			text:   "<Answer>efptgk</ANSWER>",
			want:   "efptgk",
			wantOK: true,
		},
		{
			name:   "body whitespace trimmed",
			text:   "<answer>  efptgk \n</answer>",
			want:   "efptgk",
			wantOK: true,
		},
		{
			name:   "multiline body",
			text:   "<answer>line one\nline two</answer>",
			want:   "line one\nline two",
			wantOK: true,
		},
		{
			name:   "first pair wins",
			text:   "<answer>first</answer> and <answer>second</answer>",
			want:   "first",
			wantOK: true,
		},
		{
			name:   "unclosed then closed pair",
			text:   "<answer>no close here <answer>X</answer>",
			want:   "no close here <answer>X",
			wantOK: true,
		},
		{
			name:   "no markers",
			text:   "the answer is EFPTGK",
			wantOK: false,
		},
		{
			name:   "missing closing marker",
			text:   "<answer>EFPTGK",
			wantOK: false,
		},
		{
			name:   "empty body is no payload",
			text:   "<answer>   </answer>",
			wantOK: false,
		},
		{
			name:   "empty input",
			text:   "",
			wantOK: false,
		},
	}

	extractor := NewTagExtractor("answer")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractor.Extract(tt.text)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTagExtractor_CustomTag(t *testing.T) {
	extractor := NewTagExtractor("code")

	got, ok := extractor.Extract("<code>XYZZY</code> but not <answer>NOPE</answer>")
	require.True(t, ok)
	require.Equal(t, "XYZZY", got)
}

func TestTagExtractor_EmptyTagUsesDefault(t *testing.T) {
	extractor := NewTagExtractor("")
	require.Equal(t, "<answer>", extractor.Open)
	require.Equal(t, "</answer>", extractor.Close)
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "efptgk", want: "EFPTGK"},
		{in: "  EFPTGK  ", want: "EFPTGK"},
		{in: " efptgk \n", want: "EFPTGK"},
		{in: "EFPTGK", want: "EFPTGK"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeAnswer(tt.in))
	}
}

// Normalization makes the two spellings from the task README land on the
// same canonical answer.
func TestNormalizeAnswer_EquivalentSpellings(t *testing.T) {
	extractor := NewTagExtractor("answer")

	first, ok := extractor.Extract("<answer> efptgk </answer>")
	require.True(t, ok)
	second, ok := extractor.Extract("<ANSWER>EFPTGK</ANSWER>")
	require.True(t, ok)

	require.Equal(t, "EFPTGK", NormalizeAnswer(first))
	require.Equal(t, NormalizeAnswer(first), NormalizeAnswer(second))
}

var _ Extractor = TagExtractor{}
