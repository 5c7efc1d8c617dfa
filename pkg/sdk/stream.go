package citeflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/citeflow/internal/usecase/stream"
)

// Stream resolves the citations of one streamed answer. Not safe for concurrent use.
type Stream struct {
	coord *stream.Coordinator
	obs   *observer
	start time.Time
}

// Push appends the next token. Fails with ErrStreamClosed after Finish or Abort.
func (s *Stream) Push(token string) error {
	if err := s.coord.Push(token); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// Answer returns the raw text accumulated so far.
func (s *Stream) Answer() string { return s.coord.Answer() }

// Finish resolves the answer and returns one source event per distinct citation,
// followed by the done event.
func (s *Stream) Finish(ctx context.Context) ([]Event, error) {
	events, err := s.coord.Finish(ctx)
	sources := 0
	if err == nil {
		sources = len(events) - 1
	}
	s.obs.observe(ctx, "stream", s.start, err,
		slog.Int("answer_bytes", len(s.coord.Answer())), slog.Int("sources", sources))
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	s.obs.addSources(sources)
	return events, nil
}

// Abort ends the stream without resolving. Later calls to Push and Finish fail.
func (s *Stream) Abort() { s.coord.Abort() }
