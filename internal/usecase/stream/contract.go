package stream

import (
	"context"

	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

// Resolver resolves the citations of a complete answer.
type Resolver interface {
	Resolve(ctx context.Context, answer, query string, catalog *section.Catalog) (resolve.Result, error)
}
