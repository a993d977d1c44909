package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Total   int `json:"total"`
	Results []struct {
		File string `json:"file"`
	} `json:"results"`
}

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantRepaired bool
		wantTotal    int
		wantResults  int
	}{
		{name: "strict json", input: `{"total": 2, "results": [{"file": "a"}, {"file": "b"}]}`, wantTotal: 2, wantResults: 2},
		{name: "truncated", input: `{"total": 3, "results": [{"file": "a"}, {"file": "b"`, wantRepaired: true, wantTotal: 3, wantResults: 2},
		{name: "trailing comma", input: `{"total": 1, "results": [{"file": "a"},]}`, wantRepaired: true, wantTotal: 1, wantResults: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s summary
			repaired, err := DecodeLenient([]byte(tt.input), &s)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRepaired, repaired)
			assert.Equal(t, tt.wantTotal, s.Total)
			assert.Len(t, s.Results, tt.wantResults)
		})
	}
}

func TestDecodeHJSON(t *testing.T) {
	src := []byte(`
	# anchors for annual reports
	{
	  "10-K": {
	    balance_sheet: ["consolidated_balance_sheets", "balance_sheet"]
	  }
	}`)
	var got map[string]map[string][]string
	require.NoError(t, DecodeHJSON(src, &got))
	assert.Equal(t, []string{"consolidated_balance_sheets", "balance_sheet"}, got["10-K"]["balance_sheet"])

	assert.Error(t, DecodeHJSON([]byte(`{"a": [}`), &got))
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown([]byte("# Item 1\n\nBusiness overview."))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>Item 1</h1>")
	assert.Contains(t, string(out), "<p>Business overview.</p>")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\#1 \*note\*`, EscapeMarkdown("#1 *note*"))
	assert.Equal(t, `a\|b`, EscapeMarkdown("a|b"))
}
