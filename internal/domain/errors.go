package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrTreeNotFound signals that no section tree is stored for a document.
	ErrTreeNotFound = errors.New("section tree not found")
	// ErrInvalidTree signals a malformed section tree.
	ErrInvalidTree = errors.New("invalid section tree")
	// ErrUnsupportedDocument signals a document that cannot be turned into a tree.
	ErrUnsupportedDocument = errors.New("unsupported document")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAnswerProviderError signals a chat completion provider failure.
	ErrAnswerProviderError = errors.New("answer provider error")

	// ErrStreamClosed signals a push after the stream finished or aborted.
	ErrStreamClosed = errors.New("stream closed")
	// ErrStreamAborted signals a stream that was aborted before completion.
	ErrStreamAborted = errors.New("stream aborted")
)
