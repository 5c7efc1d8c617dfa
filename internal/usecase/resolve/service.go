package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain/citation"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/domain/source"
	"github.com/kailas-cloud/citeflow/internal/logger"
	"github.com/kailas-cloud/citeflow/internal/metrics"
)

// matchPlaceholder labels sources built without a section.
const matchPlaceholder = "placeholder"

// Result is a normalized answer with its sources ordered by citation number.
type Result struct {
	Answer  string          `json:"answer"`
	Sources []source.Source `json:"sources"`
}

// Service turns an answer with inline citation markers into numbered sources.
type Service struct {
	extract    Extractor
	scorerName string
}

// New creates a resolver. scorerName labels highlight metrics.
func New(extract Extractor, scorerName string) *Service {
	return &Service{extract: extract, scorerName: scorerName}
}

// Resolve parses, numbers and resolves every citation in answer.
// A nil catalog means no tree is available and every citation gets a placeholder source.
// Highlight failures degrade to sources without highlights. Only context cancellation fails.
func (s *Service) Resolve(
	ctx context.Context, answer, query string, catalog *section.Catalog,
) (Result, error) {
	start := time.Now()
	defer func() { metrics.ResolveDuration.Observe(time.Since(start).Seconds()) }()

	citations := citation.Parse(answer)
	metrics.CitationsParsedTotal.Add(float64(len(citations)))
	if len(citations) == 0 {
		return Result{Answer: answer, Sources: []source.Source{}}, nil
	}

	normalized, numbers := citation.Normalize(answer, citations)
	unique := citation.Unique(citations)

	sources := make([]source.Source, 0, len(unique))
	for _, c := range unique {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("resolve citations: %w", err)
		}
		n, _ := numbers.Number(c.Key())
		sources = append(sources, s.resolveOne(ctx, c, n, query, catalog.For(c.DocumentName())))
	}

	logger.FromContext(ctx).Debug("Citations resolved",
		zap.Int("markers", len(citations)),
		zap.Int("sources", len(sources)),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{Answer: normalized, Sources: sources}, nil
}

func (s *Service) resolveOne(
	ctx context.Context, c citation.Citation, number int, query string, idx *section.Index,
) source.Source {
	entry, match := idx.Locate(c.PageNumber())
	if match == section.MatchNone {
		metrics.SourcesResolvedTotal.WithLabelValues(matchPlaceholder).Inc()
		return source.Placeholder(c, number)
	}
	metrics.SourcesResolvedTotal.WithLabelValues(string(match)).Inc()

	hs, err := s.extract.Extract(ctx, entry.Node.Text, query)
	if err != nil {
		metrics.HighlightErrorsTotal.WithLabelValues(s.scorerName).Inc()
		logger.FromContext(ctx).Warn("Highlight extraction failed, returning source without highlights",
			zap.String("citation", c.Key().String()),
			zap.String("node_id", entry.Node.NodeID),
			zap.Error(err),
		)
		hs = nil
	}
	metrics.HighlightsTotal.WithLabelValues(s.scorerName).Add(float64(len(hs)))

	return source.FromEntry(c, number, entry, hs)
}
