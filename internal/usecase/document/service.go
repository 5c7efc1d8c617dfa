// Package document manages the section trees that citations resolve against.
package document

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/logger"
)

// Service handles section tree storage and PDF ingestion.
type Service struct {
	repo            Repository
	pdf             Parser
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
}

// New creates a document service.
func New(repo Repository, pdf Parser) *Service {
	return &Service{
		repo:            repo,
		pdf:             pdf,
		now:             time.Now,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// PutTree validates and stores a tree. Returns true if the tree was created, false if replaced.
// An empty name defaults to the document id.
func (s *Service) PutTree(ctx context.Context, t *section.Tree) (bool, error) {
	if err := Validate(t); err != nil {
		return false, err
	}
	if t.Name == "" {
		t.Name = t.DocID
	}
	t.UpdatedAt = s.now().UTC()

	created, err := s.repo.Save(ctx, t)
	if err != nil {
		return false, fmt.Errorf("save tree: %w", err)
	}

	logger.FromContext(ctx).Info("Section tree stored",
		zap.String("doc_id", t.DocID),
		zap.String("name", t.Name),
		zap.Bool("created", created),
	)
	return created, nil
}

// IngestPDF extracts a page-level tree from a PDF and stores it.
func (s *Service) IngestPDF(ctx context.Context, docID, name string, r io.Reader) (*section.Tree, bool, error) {
	t, err := s.pdf.Parse(r, docID, name)
	if err != nil {
		return nil, false, fmt.Errorf("parse pdf: %w", err)
	}
	if len(t.Nodes) == 0 {
		return nil, false, fmt.Errorf("pdf has no extractable text: %w", domain.ErrUnsupportedDocument)
	}

	created, err := s.PutTree(ctx, t)
	if err != nil {
		return nil, false, err
	}
	return t, created, nil
}

// GetTree returns the tree stored for docID.
func (s *Service) GetTree(ctx context.Context, docID string) (*section.Tree, error) {
	t, err := s.repo.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get tree: %w", err)
	}
	return t, nil
}

// DeleteTree removes the tree stored for docID.
func (s *Service) DeleteTree(ctx context.Context, docID string) error {
	if err := s.repo.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	return nil
}

// ListTrees returns one page of stored document ids and the total count.
func (s *Service) ListTrees(ctx context.Context, limit, offset int) ([]string, int, error) {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list trees: %w", err)
	}

	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	offset = max(offset, 0)

	total := len(ids)
	if offset >= total {
		return []string{}, total, nil
	}
	end := min(offset+limit, total)
	return ids[offset:end], total, nil
}
