package query

import (
	"context"
	"iter"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

// TreeReader loads stored section trees.
type TreeReader interface {
	Get(ctx context.Context, docID string) (*section.Tree, error)
}

// AnswerProvider generates answers with inline citation markers.
type AnswerProvider interface {
	Complete(ctx context.Context, req domain.AnswerRequest) (domain.Answer, error)
	Stream(ctx context.Context, req domain.AnswerRequest) iter.Seq2[domstream.Chunk, error]
	Model() string
}

// Resolver resolves the citations of a complete answer.
type Resolver interface {
	Resolve(ctx context.Context, answer, query string, catalog *section.Catalog) (resolve.Result, error)
}
