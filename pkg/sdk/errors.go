package citeflow

import "github.com/kailas-cloud/citeflow/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrTreeNotFound           = domain.ErrTreeNotFound
	ErrInvalidTree            = domain.ErrInvalidTree
	ErrUnsupportedDocument    = domain.ErrUnsupportedDocument
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStreamClosed           = domain.ErrStreamClosed
	ErrStreamAborted          = domain.ErrStreamAborted
)
