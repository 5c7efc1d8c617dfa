package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const maxTreeBodyBytes = 16 << 20

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid limit")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid offset")
		return
	}

	ids, total, err := s.documents.ListTrees(r.Context(), derefInt(limit), derefInt(offset))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DocumentListResponse{
		Documents: ids,
		Total:     total,
		Offset:    derefInt(offset),
	})
}

// PutTree handles PUT /api/documents/{docId}/tree.
func (s *Server) PutTree(w http.ResponseWriter, r *http.Request) {
	docID, ok := bindDocID(w, r)
	if !ok {
		return
	}

	var req TreeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTreeBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return
	}

	tree := req.toDomain(docID)
	created, err := s.documents.PutTree(r.Context(), tree)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, createdStatus(created), treeSummary(tree))
}

// GetTree handles GET /api/documents/{docId}/tree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	docID, ok := bindDocID(w, r)
	if !ok {
		return
	}

	tree, err := s.documents.GetTree(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tree)
}

// DeleteTree handles DELETE /api/documents/{docId}/tree.
func (s *Server) DeleteTree(w http.ResponseWriter, r *http.Request) {
	docID, ok := bindDocID(w, r)
	if !ok {
		return
	}

	if err := s.documents.DeleteTree(r.Context(), docID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadPDF handles POST /api/documents/{docId}/pdf (multipart field "file", optional "name").
func (s *Server) UploadPDF(w http.ResponseWriter, r *http.Request) {
	docID, ok := bindDocID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = filepath.Base(header.Filename)
	}

	tree, created, err := s.documents.IngestPDF(r.Context(), docID, name, file)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, createdStatus(created), treeSummary(tree))
}

// bindDocID binds the docId path parameter the way generated chi wrappers do.
func bindDocID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var docID string
	err := runtime.BindStyledParameterWithOptions("simple", "docId", chi.URLParam(r, "docId"), &docID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid docId")
		return "", false
	}
	return docID, true
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
