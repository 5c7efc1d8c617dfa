package chi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/db/memory"
	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/parser"
	treerepo "github.com/kailas-cloud/citeflow/internal/repository/tree"
	documentuc "github.com/kailas-cloud/citeflow/internal/usecase/document"
	healthuc "github.com/kailas-cloud/citeflow/internal/usecase/health"
	queryuc "github.com/kailas-cloud/citeflow/internal/usecase/query"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
)

const testAnswer = "Revenue grew <doc=report.pdf;page=3>. Costs were flat <doc=report.pdf;page=6>."

type fakeAnswers struct {
	text string
	err  error
}

func (f *fakeAnswers) Complete(context.Context, domain.AnswerRequest) (domain.Answer, error) {
	if f.err != nil {
		return domain.Answer{}, f.err
	}
	return domain.Answer{Text: f.text, Model: "fake-chat", TotalTokens: 42}, nil
}

func (f *fakeAnswers) Stream(context.Context, domain.AnswerRequest) iter.Seq2[domstream.Chunk, error] {
	return func(yield func(domstream.Chunk, error) bool) {
		if f.err != nil {
			yield(domstream.Chunk{}, f.err)
			return
		}
		for _, word := range strings.SplitAfter(f.text, " ") {
			if !yield(domstream.TextChunk(word), nil) {
				return
			}
		}
	}
}

func (f *fakeAnswers) Model() string { return "fake-chat" }

func newTestRouter(t *testing.T, answers *fakeAnswers) http.Handler {
	t.Helper()
	store := memory.NewStore()
	trees := treerepo.New(store, "test:", 0)

	docs := documentuc.New(trees, parser.PDF{})
	resolver := resolve.New(highlight.NewExtractor(highlight.NewKeywordScorer()), "keyword")
	query := queryuc.New(trees, answers, resolver)
	health := healthuc.New(store, nil)

	r := chi.NewRouter()
	NewServer(query, docs, health, zap.NewNop()).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const reportTreeJSON = `{
  "name": "report.pdf",
  "page_count": 10,
  "nodes": [
    {"node_id": "0001", "title": "Revenue", "start_index": 1, "end_index": 4,
     "text": "Revenue grew by twelve percent in the fourth quarter.", "summary": "Revenue up."},
    {"node_id": "0002", "title": "Costs", "start_index": 5, "end_index": 10,
     "text": "Operating costs were flat across all regions this year."}
  ]
}`

func TestTreeLifecycle(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})

	rr := do(t, h, http.MethodPut, "/api/documents/doc-1/tree", reportTreeJSON)
	if rr.Code != http.StatusCreated {
		t.Fatalf("put: got %d: %s", rr.Code, rr.Body)
	}
	var summary TreeSummary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.DocID != "doc-1" || summary.NodeCount != 2 || summary.UpdatedAt.IsZero() {
		t.Errorf("unexpected summary %+v", summary)
	}

	if rr = do(t, h, http.MethodPut, "/api/documents/doc-1/tree", reportTreeJSON); rr.Code != http.StatusOK {
		t.Errorf("replace: got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/doc-1/tree", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"start_index":5`) {
		t.Errorf("get: got %d: %s", rr.Code, rr.Body)
	}

	rr = do(t, h, http.MethodGet, "/api/documents?limit=10", "")
	var list DocumentListResponse
	_ = json.NewDecoder(rr.Body).Decode(&list)
	if list.Total != 1 || len(list.Documents) != 1 || list.Documents[0] != "doc-1" {
		t.Errorf("list: unexpected %+v", list)
	}

	if rr = do(t, h, http.MethodDelete, "/api/documents/doc-1/tree", ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete: got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/api/documents/doc-1/tree", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rr.Code)
	}
	var errResp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != ErrorCodeTreeNotFound {
		t.Errorf("expected tree_not_found, got %q", errResp.Code)
	}
}

func TestPutTree_Invalid(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})

	rr := do(t, h, http.MethodPut, "/api/documents/doc-1/tree", `{"nodes": []}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
	var errResp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp.Code != ErrorCodeValidationFailed {
		t.Errorf("expected validation_failed, got %q", errResp.Code)
	}

	if rr = do(t, h, http.MethodPut, "/api/documents/doc-1/tree", `{`); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: got %d", rr.Code)
	}
}

func TestListDocuments_InvalidLimit(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})
	if rr := do(t, h, http.MethodGet, "/api/documents?limit=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("got %d", rr.Code)
	}
}

func TestQuery(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{text: testAnswer})
	do(t, h, http.MethodPut, "/api/documents/doc-1/tree", reportTreeJSON)

	rr := do(t, h, http.MethodPost, "/api/rag/query", `{"query": "how did revenue grow", "docId": "doc-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}

	var resp queryuc.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Revenue grew [1]. Costs were flat [2]." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].NodeID != "0001" || resp.Sources[1].EndPageIndex != 10 {
		t.Fatalf("unexpected sources %+v", resp.Sources)
	}
	if len(resp.Sources[0].Highlights) != 1 {
		t.Errorf("expected one highlight, got %+v", resp.Sources[0].Highlights)
	}
	if resp.Metadata.Model != "fake-chat" || resp.Metadata.TokensUsed != 42 {
		t.Errorf("unexpected metadata %+v", resp.Metadata)
	}
}

func TestQuery_DocIDList(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{text: testAnswer})
	rr := do(t, h, http.MethodPost, "/api/rag/query",
		`{"query": "q", "docId": ["missing-1", "missing-2"], "enableCitations": true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	var resp queryuc.Response
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.Sources) != 2 || resp.Sources[0].NodeID != "page_3" {
		t.Errorf("missing trees should give placeholders, got %+v", resp.Sources)
	}
}

func TestQuery_BadRequests(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{text: testAnswer})

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"query":`},
		{"empty query", `{"query": ""}`},
		{"bad docId", `{"query": "q", "docId": 5}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rr := do(t, h, http.MethodPost, "/api/rag/query", tc.body); rr.Code != http.StatusBadRequest {
				t.Errorf("got %d", rr.Code)
			}
		})
	}
}

func TestQuery_ProviderError(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{err: domain.ErrAnswerProviderError})
	rr := do(t, h, http.MethodPost, "/api/rag/query", `{"query": "q"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), string(ErrorCodeAnswerProviderError)) {
		t.Errorf("unexpected body %s", rr.Body)
	}
}

func readEvents(t *testing.T, body *bytes.Buffer) []domstream.Event {
	t.Helper()
	var events []domstream.Event
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		var ev domstream.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestStream(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{text: testAnswer})
	do(t, h, http.MethodPut, "/api/documents/doc-1/tree", reportTreeJSON)

	rr := do(t, h, http.MethodPost, "/api/rag/stream", `{"query": "revenue", "docId": "doc-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}

	events := readEvents(t, rr.Body)
	if len(events) < 5 {
		t.Fatalf("too few events: %+v", events)
	}
	if events[0].Type != domstream.EventToolStart || events[1].Type != domstream.EventToolResult {
		t.Errorf("expected tool events first, got %s %s", events[0].Type, events[1].Type)
	}

	var answer strings.Builder
	var sources []int
	for _, ev := range events {
		switch ev.Type {
		case domstream.EventToken:
			answer.WriteString(ev.Content)
		case domstream.EventSource:
			sources = append(sources, ev.Source.CitationNumber)
		}
	}
	if answer.String() != testAnswer {
		t.Errorf("tokens should reassemble the raw answer, got %q", answer.String())
	}
	if len(sources) != 2 || sources[0] != 1 || sources[1] != 2 {
		t.Errorf("unexpected source numbers %v", sources)
	}
	last := events[len(events)-1]
	if last.Type != domstream.EventDone || last.Metadata["model"] != "fake-chat" {
		t.Errorf("expected done with metadata, got %+v", last)
	}
}

func TestStream_ProviderErrorIsInBand(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{err: domain.ErrAnswerProviderError})

	rr := do(t, h, http.MethodPost, "/api/rag/stream", `{"query": "q"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	events := readEvents(t, rr.Body)
	last := events[len(events)-1]
	if last.Type != domstream.EventError {
		t.Fatalf("expected error event, got %+v", last)
	}
	if last.Error != domain.ErrAnswerProviderError.Error() {
		t.Errorf("error should be a safe sentinel message, got %q", last.Error)
	}
}

func TestUploadPDF_NotAPDF(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.pdf")
	_, _ = fw.Write([]byte("definitely not a pdf"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/doc-2/pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
}

func TestUploadPDF_MissingFile(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})
	if rr := do(t, h, http.MethodPost, "/api/documents/doc-2/pdf", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, &fakeAnswers{})
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"database":"ok"`) {
		t.Errorf("got %d: %s", rr.Code, rr.Body)
	}
}

func TestDocIDs_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`"a"`, []string{"a"}},
		{`["a","b"]`, []string{"a", "b"}},
		{`null`, nil},
		{`""`, nil},
	}
	for _, tc := range tests {
		var d DocIDs
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if strings.Join(d, ",") != strings.Join(tc.want, ",") || (tc.want == nil) != (d == nil) {
			t.Errorf("%s: got %#v", tc.in, d)
		}
	}
}
