package resolve

import (
	"context"

	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
)

// Extractor finds the spans of a section most relevant to a query.
type Extractor interface {
	Extract(ctx context.Context, text, query string) ([]highlight.Highlight, error)
}
