package documents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Metadata
	}{
		{
			name:  "well formed",
			reply: "SUMMARY: Pump maintenance guide.\nNEEDS: hydraulics, seal wear \nEXPLICIT: manual_v2.pdf, specs.pdf",
			want: Metadata{
				Summary:      "Pump maintenance guide.",
				Needs:        []string{"hydraulics", "seal wear"},
				ExplicitRefs: []string{"manual_v2.pdf", "specs.pdf"},
			},
		},
		{
			name:  "none sentinel",
			reply: "SUMMARY: s\nNEEDS: a\nEXPLICIT: NONE",
			want:  Metadata{Summary: "s", Needs: []string{"a"}, ExplicitRefs: []string{}},
		},
		{
			name:  "none mixed in",
			reply: "SUMMARY: s\nNEEDS: a\nEXPLICIT: x.pdf, None",
			want:  Metadata{Summary: "s", Needs: []string{"a"}, ExplicitRefs: []string{}},
		},
		{
			name:  "lowercase labels and preamble",
			reply: "Sure! summary: s\nneeds: a,, b\nexplicit: c",
			want:  Metadata{Summary: "s", Needs: []string{"a", "b"}, ExplicitRefs: []string{"c"}},
		},
		{
			name:  "label word inside summary prose",
			reply: "SUMMARY: The plant needs: steady water flow. NEEDS: turbine efficiency, grid load EXPLICIT: NONE",
			want: Metadata{
				Summary:      "The plant needs: steady water flow.",
				Needs:        []string{"turbine efficiency", "grid load"},
				ExplicitRefs: []string{},
			},
		},
		{
			name:  "exact label preferred over earlier lowercase",
			reply: "SUMMARY: Covers explicit: references between reports. NEEDS: a EXPLICIT: b.pdf",
			want:  Metadata{Summary: "Covers explicit: references between reports.", Needs: []string{"a"}, ExplicitRefs: []string{"b.pdf"}},
		},
		{
			name:  "empty sections",
			reply: "SUMMARY:\nNEEDS:\nEXPLICIT:",
			want:  Metadata{Summary: SummaryUnavailable, Needs: []string{}, ExplicitRefs: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetadata(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMetadata_Malformed(t *testing.T) {
	for _, reply := range []string{
		"",
		"SUMMARY: s",
		"SUMMARY: s\nEXPLICIT: x",
		"NEEDS: a\nSUMMARY: s\nEXPLICIT: x",
	} {
		_, err := ParseMetadata(reply)
		assert.ErrorIs(t, err, ErrMalformedMetadata, reply)
	}
}

func TestSynthesize_ProviderFailure(t *testing.T) {
	model := &fakeText{err: errProvider}
	md := NewSynthesizer(model, nil, nil, nil, 0).Synthesize(context.Background(), "text")
	assert.Equal(t, Metadata{Summary: "Summary unavailable", Needs: []string{}, ExplicitRefs: []string{}}, md)
}

func TestSynthesize_MalformedReply(t *testing.T) {
	model := &fakeText{reply: "I cannot help with that."}
	md := NewSynthesizer(model, nil, nil, nil, 0).Synthesize(context.Background(), "text")
	assert.Equal(t, DefaultMetadata(), md)
}

func TestSynthesize_TruncatesInput(t *testing.T) {
	model := &fakeText{reply: "SUMMARY: s NEEDS: n EXPLICIT: none"}
	text := strings.Repeat("a", 50) + strings.Repeat("b", 50)

	md := NewSynthesizer(model, nil, nil, nil, 50).Synthesize(context.Background(), text)
	assert.Equal(t, "s", md.Summary)
	assert.Equal(t, []string{"n"}, md.Needs)
	assert.Empty(t, md.ExplicitRefs)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], strings.Repeat("a", 50)+"...")
	assert.NotContains(t, model.prompts[0], "ab")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héé", truncateRunes("héééé", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
