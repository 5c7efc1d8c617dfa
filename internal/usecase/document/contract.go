package document

import (
	"context"
	"io"

	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// Repository defines the storage contract for section trees.
type Repository interface {
	Save(ctx context.Context, t *section.Tree) (created bool, err error)
	Get(ctx context.Context, docID string) (*section.Tree, error)
	Delete(ctx context.Context, docID string) error
	List(ctx context.Context) ([]string, error)
}

// Parser turns a raw document into a section tree.
type Parser interface {
	Parse(r io.Reader, docID, name string) (*section.Tree, error)
}
