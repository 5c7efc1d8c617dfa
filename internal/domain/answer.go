package domain

import "github.com/kailas-cloud/citeflow/internal/domain/section"

// AnswerRequest is what the answer provider needs to produce a cited answer.
type AnswerRequest struct {
	Query     string
	Documents []*section.Tree
}

// Answer is a complete provider answer with inline citation markers.
type Answer struct {
	Text         string
	Model        string
	PromptTokens int
	TotalTokens  int
}
