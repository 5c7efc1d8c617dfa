package query

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

// --- Mocks ---

type mockTrees struct {
	trees map[string]*section.Tree
	err   error
	calls []string
}

func (m *mockTrees) Get(_ context.Context, docID string) (*section.Tree, error) {
	m.calls = append(m.calls, docID)
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.trees[docID]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return t, nil
}

type mockAnswers struct {
	answer    domain.Answer
	err       error
	chunks    []domstream.Chunk
	streamErr error
	lastReq   domain.AnswerRequest
}

func (m *mockAnswers) Complete(_ context.Context, req domain.AnswerRequest) (domain.Answer, error) {
	m.lastReq = req
	return m.answer, m.err
}

func (m *mockAnswers) Stream(_ context.Context, req domain.AnswerRequest) iter.Seq2[domstream.Chunk, error] {
	m.lastReq = req
	return func(yield func(domstream.Chunk, error) bool) {
		for _, c := range m.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(domstream.Chunk{}, m.streamErr)
		}
	}
}

func (m *mockAnswers) Model() string { return "test-chat" }

func reportTree() *section.Tree {
	return &section.Tree{
		DocID: "doc-1",
		Name:  "report.pdf",
		Nodes: []*section.Node{
			{NodeID: "0001", Title: "Revenue", StartPage: 1, EndPage: 4,
				Text: "Revenue grew by twelve percent in the fourth quarter. Costs were flat."},
			{NodeID: "0002", Title: "Outlook", StartPage: 5, EndPage: 9,
				Text: "Analysts expect revenue growth to continue next year."},
		},
	}
}

func newService(trees *mockTrees, answers *mockAnswers) *Service {
	resolver := resolve.New(highlight.NewExtractor(highlight.NewKeywordScorer()), "keyword")
	return New(trees, answers, resolver)
}

// --- Query ---

func TestQuery_ResolvesCitations(t *testing.T) {
	trees := &mockTrees{trees: map[string]*section.Tree{"doc-1": reportTree()}}
	answers := &mockAnswers{answer: domain.Answer{
		Text:        "Revenue grew <doc=report.pdf;page=3> and will keep growing <doc=report.pdf;page=6>.",
		Model:       "test-chat",
		TotalTokens: 321,
	}}

	resp, err := newService(trees, answers).Query(context.Background(), Request{
		Query:           "revenue growth",
		DocumentIDs:     []string{"doc-1"},
		EnableCitations: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != "Revenue grew [1] and will keep growing [2]." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].NodeID != "0001" || resp.Sources[1].NodeID != "0002" {
		t.Errorf("unexpected nodes %s %s", resp.Sources[0].NodeID, resp.Sources[1].NodeID)
	}
	if len(resp.Sources[0].Highlights) == 0 {
		t.Error("expected highlights on the first source")
	}
	if resp.Metadata.Model != "test-chat" || resp.Metadata.TokensUsed != 321 {
		t.Errorf("unexpected metadata %+v", resp.Metadata)
	}
	if resp.Metadata.RetrievalMethod != RetrievalMethod || resp.Metadata.ConversationID == "" {
		t.Errorf("unexpected metadata %+v", resp.Metadata)
	}
	if len(answers.lastReq.Documents) != 1 || answers.lastReq.Query != "revenue growth" {
		t.Errorf("provider got unexpected request %+v", answers.lastReq)
	}
}

func TestQuery_CitationsDisabled(t *testing.T) {
	raw := "Revenue grew <doc=report.pdf;page=3>."
	answers := &mockAnswers{answer: domain.Answer{Text: raw}}

	resp, err := newService(&mockTrees{}, answers).Query(context.Background(), Request{
		Query: "q", ConversationID: "conv-7",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != raw {
		t.Errorf("answer should be untouched, got %q", resp.Answer)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("expected empty non-nil sources, got %#v", resp.Sources)
	}
	if resp.Metadata.ConversationID != "conv-7" {
		t.Errorf("conversation id should be kept, got %q", resp.Metadata.ConversationID)
	}
}

func TestQuery_MissingTreeFallsBackToPlaceholder(t *testing.T) {
	trees := &mockTrees{err: errors.New("store down")}
	answers := &mockAnswers{answer: domain.Answer{Text: "See <doc=a.pdf;page=2>."}}

	resp, err := newService(trees, answers).Query(context.Background(), Request{
		Query: "q", DocumentIDs: []string{"doc-1", "doc-1"}, EnableCitations: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trees.calls) != 1 {
		t.Errorf("duplicate ids should be loaded once, got %v", trees.calls)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].NodeID != "page_2" {
		t.Fatalf("expected placeholder source, got %+v", resp.Sources)
	}
}

func TestQuery_ProviderError(t *testing.T) {
	answers := &mockAnswers{err: domain.ErrAnswerProviderError}
	_, err := newService(&mockTrees{}, answers).Query(context.Background(), Request{Query: "q"})
	if !errors.Is(err, domain.ErrAnswerProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

// --- Stream ---

func collect(events *[]domstream.Event) func(domstream.Event) error {
	return func(ev domstream.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestStream_EventOrder(t *testing.T) {
	trees := &mockTrees{trees: map[string]*section.Tree{"doc-1": reportTree()}}
	answers := &mockAnswers{chunks: []domstream.Chunk{
		domstream.TextChunk("Revenue grew "),
		domstream.TextChunk("<doc=report.pdf;page=3>"),
		domstream.TextChunk(" again <doc=report.pdf;page=3>."),
	}}

	var events []domstream.Event
	err := newService(trees, answers).Stream(context.Background(), Request{
		Query: "revenue", DocumentIDs: []string{"doc-1", "doc-x"}, EnableCitations: true,
	}, collect(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var types []string
	for _, ev := range events {
		types = append(types, string(ev.Type))
	}
	want := "tool_start,tool_result,token,token,token,source,done"
	if strings.Join(types, ",") != want {
		t.Fatalf("got %v, want %s", types, want)
	}

	result := events[1].Metadata
	if result["found"] != 1 {
		t.Errorf("expected 1 tree found, got %v", result["found"])
	}
	if missing, _ := result["missing"].([]string); len(missing) != 1 || missing[0] != "doc-x" {
		t.Errorf("expected doc-x missing, got %v", result["missing"])
	}
	if events[0].Metadata["toolCallId"] != result["toolCallId"] {
		t.Error("tool events should share a call id")
	}

	src := events[5].Source
	if src == nil || src.CitationNumber != 1 || src.NodeID != "0001" {
		t.Errorf("unexpected source %+v", src)
	}
	done := events[6]
	if done.Metadata["model"] != "test-chat" || done.Metadata["conversationId"] == "" {
		t.Errorf("done event should carry metadata, got %+v", done.Metadata)
	}
}

func TestStream_CitationsDisabled(t *testing.T) {
	answers := &mockAnswers{chunks: []domstream.Chunk{domstream.TextChunk("See <doc=a.pdf;page=1>.")}}

	var events []domstream.Event
	err := newService(&mockTrees{}, answers).Stream(context.Background(), Request{Query: "q"}, collect(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ev := range events {
		if ev.Type == domstream.EventSource {
			t.Fatal("no sources expected with citations disabled")
		}
	}
	if events[len(events)-1].Type != domstream.EventDone {
		t.Error("stream should end with done")
	}
}

func TestStream_UpstreamError(t *testing.T) {
	answers := &mockAnswers{
		chunks:    []domstream.Chunk{domstream.TextChunk("partial")},
		streamErr: domain.ErrAnswerProviderError,
	}

	var events []domstream.Event
	err := newService(&mockTrees{}, answers).Stream(context.Background(), Request{Query: "q"}, collect(&events))
	if !errors.Is(err, domain.ErrStreamAborted) || !errors.Is(err, domain.ErrAnswerProviderError) {
		t.Fatalf("expected aborted provider error, got %v", err)
	}
	for _, ev := range events {
		if ev.Type == domstream.EventDone {
			t.Fatal("aborted stream must not emit done")
		}
	}
}

func TestStream_EmitFailureBeforeAnswer(t *testing.T) {
	answers := &mockAnswers{}
	gone := errors.New("client gone")

	err := newService(&mockTrees{}, answers).Stream(context.Background(), Request{Query: "q"},
		func(domstream.Event) error { return gone })
	if !errors.Is(err, gone) {
		t.Fatalf("expected emit error, got %v", err)
	}
}
