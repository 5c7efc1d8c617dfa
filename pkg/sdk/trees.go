package citeflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	documentuc "github.com/kailas-cloud/citeflow/internal/usecase/document"
)

// TreeService stores and loads section trees.
type TreeService struct {
	svc *documentuc.Service
	obs *observer
}

// Put validates and stores t under t.DocID. Reports whether the tree is new.
func (s *TreeService) Put(ctx context.Context, t *Tree) (bool, error) {
	start := time.Now()
	created, err := s.svc.PutTree(ctx, t)
	s.obs.observe(ctx, "tree_put", start, err, slog.String("doc_id", t.DocID))
	if err != nil {
		return false, fmt.Errorf("put tree: %w", err)
	}
	return created, nil
}

// PutPDF builds a page-level tree from a PDF and stores it.
func (s *TreeService) PutPDF(ctx context.Context, docID, name string, r io.Reader) (*Tree, error) {
	start := time.Now()
	t, _, err := s.svc.IngestPDF(ctx, docID, name, r)
	s.obs.observe(ctx, "tree_put_pdf", start, err, slog.String("doc_id", docID))
	if err != nil {
		return nil, fmt.Errorf("put pdf: %w", err)
	}
	return t, nil
}

// Get returns the stored tree or ErrTreeNotFound.
func (s *TreeService) Get(ctx context.Context, docID string) (*Tree, error) {
	start := time.Now()
	t, err := s.svc.GetTree(ctx, docID)
	s.obs.observe(ctx, "tree_get", start, err, slog.String("doc_id", docID))
	if err != nil {
		return nil, fmt.Errorf("get tree: %w", err)
	}
	return t, nil
}

// Delete removes the stored tree or returns ErrTreeNotFound.
func (s *TreeService) Delete(ctx context.Context, docID string) error {
	start := time.Now()
	err := s.svc.DeleteTree(ctx, docID)
	s.obs.observe(ctx, "tree_delete", start, err, slog.String("doc_id", docID))
	if err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	return nil
}

// List returns one page of stored document ids in ascending order and the total count.
func (s *TreeService) List(ctx context.Context, limit, offset int) ([]string, int, error) {
	start := time.Now()
	ids, total, err := s.svc.ListTrees(ctx, limit, offset)
	s.obs.observe(ctx, "tree_list", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("list trees: %w", err)
	}
	return ids, total, nil
}
