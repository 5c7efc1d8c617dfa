package highlight

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kailas-cloud/citeflow/internal/domain"
)

// Scorer rates how relevant a sentence is to a query.
type Scorer interface {
	Score(ctx context.Context, query, sentence string) (float64, error)
	// DefaultThreshold is the score a sentence must exceed to be highlighted.
	DefaultThreshold() float64
}

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {},
	"how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "who": {}, "do": {}, "does": {},
	"did": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "and": {}, "or": {},
	"but": {}, "not": {}, "this": {}, "that": {}, "it": {}, "can": {}, "will": {}, "be": {},
	"has": {}, "have": {}, "had": {}, "with": {}, "from": {}, "about": {}, "than": {}, "more": {},
	"most": {}, "some": {}, "any": {}, "all": {}, "each": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "much": {}, "many": {},
}

// Keywords returns the lower-cased query terms longer than two runes, minus stop words.
// Repeated terms are kept, so a word named twice weighs twice.
func Keywords(query string) []string {
	words := wordRegex.FindAllString(query, -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// KeywordScorer scores by the share of query keywords found in the sentence.
type KeywordScorer struct{}

// NewKeywordScorer creates a keyword-overlap scorer.
func NewKeywordScorer() *KeywordScorer { return &KeywordScorer{} }

// Score returns matched keyword tokens / total keyword tokens, or 0 when the query has no keywords.
func (KeywordScorer) Score(_ context.Context, query, sentence string) (float64, error) {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return 0, nil
	}
	lower := strings.ToLower(sentence)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords)), nil
}

// DefaultThreshold accepts any sentence with at least one keyword match.
func (KeywordScorer) DefaultThreshold() float64 { return 0 }

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SemanticScorer scores by cosine similarity between query and sentence embeddings.
type SemanticScorer struct {
	embed Embedder

	mu        sync.Mutex
	lastQuery string
	lastVec   []float32
}

// NewSemanticScorer creates an embedding-backed scorer.
func NewSemanticScorer(embed Embedder) *SemanticScorer {
	return &SemanticScorer{embed: embed}
}

// Score returns the cosine similarity in [-1, 1].
// The most recent query vector is kept so one extraction embeds its query once.
func (s *SemanticScorer) Score(ctx context.Context, query, sentence string) (float64, error) {
	qv, err := s.queryVector(ctx, query)
	if err != nil {
		return 0, err
	}
	res, err := s.embed.Embed(domain.WithEmbeddingPurpose(ctx, domain.PurposeSentence), sentence)
	if err != nil {
		return 0, fmt.Errorf("embed sentence: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return Cosine(qv, res.Embedding)
}

// DefaultThreshold is the similarity cut-off used by the original semantic highlighter.
func (s *SemanticScorer) DefaultThreshold() float64 { return 0.5 }

func (s *SemanticScorer) queryVector(ctx context.Context, query string) ([]float32, error) {
	s.mu.Lock()
	if s.lastVec != nil && s.lastQuery == query {
		v := s.lastVec
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	res, err := s.embed.Embed(domain.WithEmbeddingPurpose(ctx, domain.PurposeQuery), query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	s.mu.Lock()
	s.lastQuery, s.lastVec = query, res.Embedding
	s.mu.Unlock()
	return res.Embedding, nil
}

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrVectorDimMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
