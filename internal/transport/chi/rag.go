package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/logger"
)

const maxQueryBodyBytes = 1 << 20

// Query handles POST /api/rag/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.query.Query(ctx, req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// Stream handles POST /api/rag/stream as server-sent events, one JSON event per data line.
// Errors after the first event are reported in-band as an error event.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "streaming unsupported")
		return
	}

	// Streams outlive the server write timeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev domstream.Event) error {
		if err := writeEvent(w, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	err := s.query.Stream(ctx, req.toDomain(), emit)
	log := logger.FromContext(ctx)
	if err == nil {
		if usage.Used() {
			log.Debug("Stream used embeddings", zap.Int("embedding_tokens", usage.TotalTokens()))
		}
		return
	}

	if errors.Is(r.Context().Err(), context.Canceled) {
		log.Info("Client disconnected during stream")
		return
	}
	log.Warn("Stream failed", zap.Error(err))
	if werr := emit(domstream.Error(safeDomainMessage(err))); werr != nil {
		log.Debug("write error event", zap.Error(werr))
	}
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return QueryRequest{}, false
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return QueryRequest{}, false
	}
	return req, true
}

func writeEvent(w http.ResponseWriter, ev domstream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
