// Package query answers questions over stored documents and resolves the answer's citations.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/domain/source"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/logger"
	"github.com/kailas-cloud/citeflow/internal/usecase/stream"
)

// RetrievalMethod labels answers grounded on stored section trees.
const RetrievalMethod = "section_tree"

const toolLoadTrees = "load_section_trees"

// Request is a question over a set of stored documents.
type Request struct {
	Query           string
	DocumentIDs     []string
	ConversationID  string
	EnableCitations bool
}

// Metadata describes how an answer was produced.
type Metadata struct {
	Model           string `json:"model"`
	TokensUsed      int    `json:"tokensUsed"`
	RetrievalMethod string `json:"retrievalMethod"`
	ConversationID  string `json:"conversationId"`
}

// Response is a resolved answer.
type Response struct {
	Answer   string          `json:"answer"`
	Sources  []source.Source `json:"sources"`
	Metadata Metadata        `json:"metadata"`
}

// Service orchestrates tree loading, answer generation and citation resolution.
type Service struct {
	trees    TreeReader
	answers  AnswerProvider
	resolver Resolver
}

// New creates a query service.
func New(trees TreeReader, answers AnswerProvider, resolver Resolver) *Service {
	return &Service{trees: trees, answers: answers, resolver: resolver}
}

// Query answers req in one round trip.
func (s *Service) Query(ctx context.Context, req Request) (Response, error) {
	convID := conversationID(req)
	ctx, _ = logger.With(ctx, zap.String("conversation_id", convID))

	docs, _ := s.loadTrees(ctx, req.DocumentIDs)

	ans, err := s.answers.Complete(ctx, domain.AnswerRequest{Query: req.Query, Documents: docs})
	if err != nil {
		return Response{}, fmt.Errorf("generate answer: %w", err)
	}

	resp := Response{
		Answer:  ans.Text,
		Sources: []source.Source{},
		Metadata: Metadata{
			Model:           ans.Model,
			TokensUsed:      ans.TotalTokens,
			RetrievalMethod: RetrievalMethod,
			ConversationID:  convID,
		},
	}
	if !req.EnableCitations {
		return resp, nil
	}

	res, err := s.resolver.Resolve(ctx, ans.Text, req.Query, section.CatalogOf(docs))
	if err != nil {
		return Response{}, fmt.Errorf("resolve citations: %w", err)
	}
	resp.Answer = res.Answer
	resp.Sources = res.Sources
	return resp, nil
}

// Stream answers req as a sequence of events passed to emit.
// Tree loading is reported as a tool_start / tool_result pair, then answer tokens follow,
// then the resolved sources and a done event carrying the answer metadata.
func (s *Service) Stream(ctx context.Context, req Request, emit func(domstream.Event) error) error {
	convID := conversationID(req)
	ctx, log := logger.With(ctx, zap.String("conversation_id", convID))

	callID := uuid.NewString()
	err := emit(domstream.Event{Type: domstream.EventToolStart, Metadata: map[string]any{
		"toolName":   toolLoadTrees,
		"toolCallId": callID,
		"documents":  len(req.DocumentIDs),
	}})
	if err != nil {
		return fmt.Errorf("emit tool_start: %w", err)
	}

	docs, missing := s.loadTrees(ctx, req.DocumentIDs)

	err = emit(domstream.Event{Type: domstream.EventToolResult, Metadata: map[string]any{
		"toolName":   toolLoadTrees,
		"toolCallId": callID,
		"found":      len(docs),
		"missing":    missing,
	}})
	if err != nil {
		return fmt.Errorf("emit tool_result: %w", err)
	}

	done := map[string]any{
		"model":           s.answers.Model(),
		"retrievalMethod": RetrievalMethod,
		"conversationId":  convID,
	}
	withMeta := func(ev domstream.Event) error {
		if ev.Type == domstream.EventDone {
			ev.Metadata = done
		}
		return emit(ev)
	}

	coord := stream.NewCoordinator(s.resolver, req.Query, section.CatalogOf(docs),
		stream.WithCitations(req.EnableCitations))
	upstream := s.answers.Stream(ctx, domain.AnswerRequest{Query: req.Query, Documents: docs})

	if err := coord.Run(ctx, upstream, withMeta); err != nil {
		return fmt.Errorf("stream answer: %w", err)
	}
	log.Debug("Stream completed", zap.Int("answer_bytes", len(coord.Answer())))
	return nil
}

// loadTrees fetches the trees for ids in order. Missing or failing trees are skipped
// with a warning so their citations fall back to placeholder sources.
func (s *Service) loadTrees(ctx context.Context, ids []string) ([]*section.Tree, []string) {
	log := logger.FromContext(ctx)
	docs := make([]*section.Tree, 0, len(ids))
	missing := []string{}
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		t, err := s.trees.Get(ctx, id)
		if err != nil {
			missing = append(missing, id)
			if errors.Is(err, domain.ErrTreeNotFound) {
				log.Warn("Section tree not found, citations will use placeholders", zap.String("doc_id", id))
			} else {
				log.Warn("Section tree load failed, citations will use placeholders",
					zap.String("doc_id", id), zap.Error(err))
			}
			continue
		}
		docs = append(docs, t)
	}
	return docs, missing
}

func conversationID(req Request) string {
	if req.ConversationID != "" {
		return req.ConversationID
	}
	return uuid.NewString()
}
