// Package stream drives citation resolution for one streamed answer.
package stream

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/citation"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	domstream "github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/logger"
	"github.com/kailas-cloud/citeflow/internal/metrics"
)

// State is the lifecycle stage of a Coordinator.
type State int

// Coordinator states. Done and Aborted are terminal.
const (
	StateStreaming State = iota
	StateResolving
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateResolving:
		return "resolving"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Coordinator accumulates one streamed answer and resolves its citations once the stream ends.
// It owns per-request state and must not be shared between requests or goroutines.
type Coordinator struct {
	resolver  Resolver
	query     string
	catalog   *section.Catalog
	citations bool

	state   State
	answer  strings.Builder
	emitted map[citation.Key]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCitations toggles resolution. Disabled, Finish emits only the done event.
func WithCitations(enabled bool) Option {
	return func(c *Coordinator) { c.citations = enabled }
}

// NewCoordinator creates a coordinator for one request. A nil catalog resolves to placeholders.
func NewCoordinator(resolver Resolver, query string, catalog *section.Catalog, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver:  resolver,
		query:     query,
		catalog:   catalog,
		citations: true,
		emitted:   make(map[citation.Key]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle stage.
func (c *Coordinator) State() State { return c.state }

// Answer returns the text accumulated so far.
func (c *Coordinator) Answer() string { return c.answer.String() }

// Push appends a token. Tokens must arrive in upstream order.
func (c *Coordinator) Push(token string) error {
	if c.state != StateStreaming {
		return fmt.Errorf("push in state %s: %w", c.state, domain.ErrStreamClosed)
	}
	c.answer.WriteString(token)
	return nil
}

// Abort ends the stream without resolution. Aborting a finished stream is a no-op.
func (c *Coordinator) Abort() {
	if c.state == StateDone || c.state == StateAborted {
		return
	}
	c.state = StateAborted
	metrics.StreamsTotal.WithLabelValues("aborted").Inc()
}

// Finish resolves the accumulated answer and returns one source event per citation key
// not emitted before, followed by the done event. The caller owns delivery, so the stream
// counts as done once the events are returned.
func (c *Coordinator) Finish(ctx context.Context) ([]domstream.Event, error) {
	events, err := c.finish(ctx)
	if err != nil {
		return nil, err
	}
	metrics.StreamsTotal.WithLabelValues("done").Inc()
	return events, nil
}

func (c *Coordinator) finish(ctx context.Context) ([]domstream.Event, error) {
	if c.state != StateStreaming {
		return nil, fmt.Errorf("finish in state %s: %w", c.state, domain.ErrStreamClosed)
	}
	c.state = StateResolving

	var events []domstream.Event
	if c.citations {
		res, err := c.resolver.Resolve(ctx, c.answer.String(), c.query, c.catalog)
		if err != nil {
			c.Abort()
			return nil, fmt.Errorf("%w: %w", domain.ErrStreamAborted, err)
		}
		events = make([]domstream.Event, 0, len(res.Sources)+1)
		for _, src := range res.Sources {
			key := citation.Key{DocumentName: src.DocumentName, PageNumber: src.PageIndex}
			if _, seen := c.emitted[key]; seen {
				continue
			}
			c.emitted[key] = struct{}{}
			events = append(events, domstream.SourceEvent(src))
		}
	}

	c.state = StateDone
	return append(events, domstream.Done()), nil
}

// Run consumes upstream until it ends, passing tokens and tool notifications to emit,
// then emits the resolved sources and the done event.
// An upstream error, a failed emit or a canceled context aborts the stream: nothing is
// resolved and no done event is sent. Events already emitted stay valid.
func (c *Coordinator) Run(
	ctx context.Context,
	upstream iter.Seq2[domstream.Chunk, error],
	emit func(domstream.Event) error,
) error {
	log := logger.FromContext(ctx)

	for chunk, err := range upstream {
		if err != nil {
			c.Abort()
			log.Warn("Upstream stream failed", zap.Int("answer_bytes", c.answer.Len()), zap.Error(err))
			return fmt.Errorf("%w: upstream: %w", domain.ErrStreamAborted, err)
		}
		if err = ctx.Err(); err != nil {
			break
		}
		if err = c.handle(chunk, emit); err != nil {
			c.Abort()
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		c.Abort()
		log.Info("Stream canceled", zap.Int("answer_bytes", c.answer.Len()))
		return fmt.Errorf("%w: %w", domain.ErrStreamAborted, err)
	}

	events, err := c.finish(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err = emit(ev); err != nil {
			metrics.StreamsTotal.WithLabelValues("disconnected").Inc()
			if ev.Type != domstream.EventDone {
				log.Info("Client went away while sending sources", zap.Error(err))
			}
			return fmt.Errorf("emit %s: %w", ev.Type, err)
		}
	}
	metrics.StreamsTotal.WithLabelValues("done").Inc()
	return nil
}

func (c *Coordinator) handle(chunk domstream.Chunk, emit func(domstream.Event) error) error {
	if ev, ok := domstream.Passthrough(chunk); ok {
		if err := emit(ev); err != nil {
			return fmt.Errorf("%w: emit %s: %w", domain.ErrStreamAborted, ev.Type, err)
		}
		return nil
	}
	if chunk.Kind != domstream.ChunkText || chunk.Text == "" {
		return nil
	}
	if err := c.Push(chunk.Text); err != nil {
		return err
	}
	if err := emit(domstream.Token(chunk.Text)); err != nil {
		return fmt.Errorf("%w: emit token: %w", domain.ErrStreamAborted, err)
	}
	return nil
}
