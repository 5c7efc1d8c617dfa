package domain

import "context"

// EmbeddingPurpose tells the embedder chain what a text is embedded for.
type EmbeddingPurpose string

// Embedding purposes. Query vectors are compared against sentence vectors.
const (
	PurposeQuery    EmbeddingPurpose = "query"
	PurposeSentence EmbeddingPurpose = "sentence"
)

type embeddingPurposeKey struct{}

// WithEmbeddingPurpose tags ctx with the purpose of the next Embed calls.
func WithEmbeddingPurpose(ctx context.Context, p EmbeddingPurpose) context.Context {
	return context.WithValue(ctx, embeddingPurposeKey{}, p)
}

// EmbeddingPurposeFromContext returns the tagged purpose. Untagged calls are queries.
func EmbeddingPurposeFromContext(ctx context.Context) EmbeddingPurpose {
	if p, ok := ctx.Value(embeddingPurposeKey{}).(EmbeddingPurpose); ok {
		return p
	}
	return PurposeQuery
}
