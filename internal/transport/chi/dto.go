package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/kailas-cloud/citeflow/internal/domain/section"
	queryuc "github.com/kailas-cloud/citeflow/internal/usecase/query"
)

// ErrorCode is the machine-readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeTreeNotFound           ErrorCode = "tree_not_found"
	ErrorCodeUnsupportedDocument    ErrorCode = "unsupported_document"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeAnswerProviderError    ErrorCode = "answer_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DocIDs accepts a single document id or a list of ids.
type DocIDs []string

// UnmarshalJSON decodes a string, an array of strings or null.
func (d *DocIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err //nolint:wrapcheck // json error is the decode error
		}
		if id == "" {
			*d = nil
			return nil
		}
		*d = DocIDs{id}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return errors.New("docId must be a string or an array of strings")
	}
	*d = ids
	return nil
}

// QueryRequest is the body of POST /api/rag/query and /api/rag/stream.
type QueryRequest struct {
	Query           string `json:"query"`
	DocID           DocIDs `json:"docId"`
	ConversationID  string `json:"conversationId"`
	EnableCitations *bool  `json:"enableCitations"`
}

func (q QueryRequest) toDomain() queryuc.Request {
	enable := true
	if q.EnableCitations != nil {
		enable = *q.EnableCitations
	}
	return queryuc.Request{
		Query:           q.Query,
		DocumentIDs:     q.DocID,
		ConversationID:  q.ConversationID,
		EnableCitations: enable,
	}
}

// TreeRequest is the body of PUT /api/documents/{docId}/tree.
type TreeRequest struct {
	Name      string          `json:"name"`
	PageCount int             `json:"page_count"`
	Nodes     []*section.Node `json:"nodes"`
}

func (t TreeRequest) toDomain(docID string) *section.Tree {
	return &section.Tree{
		DocID:     docID,
		Name:      t.Name,
		PageCount: t.PageCount,
		Nodes:     t.Nodes,
	}
}

// TreeSummary describes a stored tree without its nodes.
type TreeSummary struct {
	DocID     string    `json:"doc_id"`
	Name      string    `json:"name"`
	PageCount int       `json:"page_count"`
	NodeCount int       `json:"node_count"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func treeSummary(t *section.Tree) TreeSummary {
	return TreeSummary{
		DocID:     t.DocID,
		Name:      t.Name,
		PageCount: t.PageCount,
		NodeCount: t.Index().Len(),
		UpdatedAt: t.UpdatedAt,
	}
}

// DocumentListResponse is the body of GET /api/documents.
type DocumentListResponse struct {
	Documents []string `json:"documents"`
	Total     int      `json:"total"`
	Offset    int      `json:"offset"`
}
