package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/llm"
	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/metrics"
)

// SummaryUnavailable is the summary recorded when synthesis fails
const SummaryUnavailable = "Summary unavailable"

// DefaultSummaryChars bounds the text sent for synthesis
const DefaultSummaryChars = 4000

// ErrMalformedMetadata is returned when a reply lacks one of the labels
var ErrMalformedMetadata = errors.New("malformed metadata response")

const (
	labelSummary  = "SUMMARY:"
	labelNeeds    = "NEEDS:"
	labelExplicit = "EXPLICIT:"
)

const metadataPrompt = `
Analyze the following document text.
1. Provide a 2-sentence summary of what this document is about.
2. Identify specific outside topics or documents this text infers a need for to be fully understood.
3. List any explicit filenames mentioned.

Text: %s...

Format your response exactly as:
SUMMARY: <summary>
NEEDS: <comma_separated_needs>
EXPLICIT: <comma_separated_filenames_or_NONE>
`

// Metadata is the document-level semantic summary
type Metadata struct {
	Summary      string
	Needs        []string
	ExplicitRefs []string
}

// DefaultMetadata is used whenever synthesis fails
func DefaultMetadata() Metadata {
	return Metadata{Summary: SummaryUnavailable, Needs: []string{}, ExplicitRefs: []string{}}
}

// TextModel completes a prompt
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer asks the text model for a summary, information needs and
// explicit filename references
type Synthesizer struct {
	model    TextModel
	guard    *llm.Guard
	metrics  *metrics.Metrics
	logger   *zap.Logger
	maxChars int
}

// NewSynthesizer creates a synthesizer. maxChars <= 0 uses DefaultSummaryChars.
func NewSynthesizer(model TextModel, guard *llm.Guard, m *metrics.Metrics, logger *zap.Logger, maxChars int) *Synthesizer {
	if maxChars <= 0 {
		maxChars = DefaultSummaryChars
	}
	return &Synthesizer{model: model, guard: guard, metrics: m, logger: logging.OrNop(logger), maxChars: maxChars}
}

// Synthesize never fails: provider and parse errors yield DefaultMetadata
func (s *Synthesizer) Synthesize(ctx context.Context, fullText string) Metadata {
	prompt := fmt.Sprintf(metadataPrompt, truncateRunes(fullText, s.maxChars))

	res := llm.Call(ctx, s.guard, func(ctx context.Context) (string, error) {
		return s.model.Complete(ctx, prompt)
	})
	if !res.OK() {
		s.logger.Warn("metadata synthesis failed", zap.Error(res.Failure))
		s.metrics.ProviderFallback(res.Failure.Provider, string(res.Failure.Reason))
		return DefaultMetadata()
	}

	md, err := ParseMetadata(res.Value)
	if err != nil {
		s.logger.Warn("metadata response rejected", zap.Error(err))
		s.metrics.ProviderFallback(s.guard.Name(), string(llm.ReasonBadResponse))
		return DefaultMetadata()
	}
	return md
}

// ParseMetadata reads the SUMMARY, NEEDS and EXPLICIT sections of a reply.
// Labels must appear in that order. The exact uppercase label is preferred so
// prose such as "needs:" inside a summary does not end the section; a label
// matches case-insensitively only when its uppercase form is absent. Items are
// trimmed and empty items dropped; an explicit section containing "none"
// yields no references.
func ParseMetadata(reply string) (Metadata, error) {
	i := findLabel(reply, labelSummary, 0)
	if i < 0 {
		return Metadata{}, fmt.Errorf("%w: missing %s", ErrMalformedMetadata, labelSummary)
	}
	j := findLabel(reply, labelNeeds, i+len(labelSummary))
	if j < 0 {
		return Metadata{}, fmt.Errorf("%w: missing %s", ErrMalformedMetadata, labelNeeds)
	}
	k := findLabel(reply, labelExplicit, j+len(labelNeeds))
	if k < 0 {
		return Metadata{}, fmt.Errorf("%w: missing %s", ErrMalformedMetadata, labelExplicit)
	}

	md := Metadata{
		Summary:      strings.TrimSpace(reply[i+len(labelSummary) : j]),
		Needs:        splitItems(reply[j+len(labelNeeds) : k]),
		ExplicitRefs: splitItems(reply[k+len(labelExplicit):]),
	}
	if md.Summary == "" {
		md.Summary = SummaryUnavailable
	}
	if strings.Contains(strings.ToLower(reply[k+len(labelExplicit):]), "none") {
		md.ExplicitRefs = []string{}
	}
	return md, nil
}

// findLabel finds label at or after from, exact match first
func findLabel(s, label string, from int) int {
	if i := strings.Index(s[from:], label); i >= 0 {
		return from + i
	}
	return indexLabel(s, label, from)
}

// indexLabel finds an ASCII label case-insensitively at or after from
func indexLabel(s, label string, from int) int {
	for i := from; i+len(label) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(label)], label) {
			return i
		}
	}
	return -1
}

func splitItems(section string) []string {
	items := []string{}
	for _, item := range strings.Split(section, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
