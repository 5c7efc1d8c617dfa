package highlight

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
)

// DefaultMaxHighlights is the number of spans returned per section.
const DefaultMaxHighlights = 3

// Highlight is a span of section text. Offsets are byte positions:
// Text == sectionText[StartOffset:EndOffset].
type Highlight struct {
	Text        string  `json:"text"`
	StartOffset int     `json:"startOffset"`
	EndOffset   int     `json:"endOffset"`
	Score       float64 `json:"-"`
}

// Extractor selects the sentences of a section most relevant to a query.
type Extractor struct {
	scorer         Scorer
	split          SplitFunc
	maxHighlights  int
	threshold      float64
	minSentenceLen int
}

// SplitFunc breaks text into candidate sentences of at least minLen runes.
type SplitFunc func(text string, minLen int) []string

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxHighlights caps the number of highlights. Non-positive values keep the default.
func WithMaxHighlights(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxHighlights = n
		}
	}
}

// WithScoreThreshold overrides the scorer's default threshold.
func WithScoreThreshold(t float64) Option {
	return func(e *Extractor) { e.threshold = t }
}

// WithMinSentenceLength overrides the minimum sentence length in runes.
func WithMinSentenceLength(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minSentenceLen = n
		}
	}
}

// WithSplitter replaces SplitSentences as the sentence source.
func WithSplitter(fn SplitFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.split = fn
		}
	}
}

// NewExtractor creates an extractor backed by scorer.
func NewExtractor(scorer Scorer, opts ...Option) *Extractor {
	e := &Extractor{
		scorer:         scorer,
		split:          SplitSentences,
		maxHighlights:  DefaultMaxHighlights,
		threshold:      scorer.DefaultThreshold(),
		minSentenceLen: DefaultMinSentenceLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type scored struct {
	sentence string
	score    float64
}

// Extract returns up to maxHighlights non-overlapping spans ordered by descending relevance.
// Ties keep sentence order. A sentence that cannot be found verbatim in text, or whose first
// occurrence overlaps a span already taken, is skipped and the next candidate takes its place.
func (e *Extractor) Extract(ctx context.Context, text, query string) ([]Highlight, error) {
	out := []Highlight{}
	if text == "" || query == "" {
		return out, nil
	}

	sentences := e.split(text, e.minSentenceLen)
	if len(sentences) == 0 {
		return out, nil
	}

	candidates := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		score, err := e.scorer.Score(ctx, query, s)
		if err != nil {
			return nil, fmt.Errorf("score sentence: %w", err)
		}
		if score > e.threshold {
			candidates = append(candidates, scored{sentence: s, score: score})
		}
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	for _, c := range candidates {
		if len(out) == e.maxHighlights {
			break
		}
		start := strings.Index(text, c.sentence)
		if start < 0 || overlaps(out, start, start+len(c.sentence)) {
			continue
		}
		out = append(out, Highlight{
			Text:        c.sentence,
			StartOffset: start,
			EndOffset:   start + len(c.sentence),
			Score:       c.score,
		})
	}
	return out, nil
}

func overlaps(hs []Highlight, start, end int) bool {
	for _, h := range hs {
		if start < h.EndOffset && h.StartOffset < end {
			return true
		}
	}
	return false
}
