package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/domain/stream"
	"github.com/kailas-cloud/citeflow/internal/metrics"
)

const (
	modeComplete = "complete"
	modeStream   = "stream"
)

// DefaultMaxContextChars bounds the document context sent with each question.
const DefaultMaxContextChars = 60000

const systemPrompt = `You answer questions using only the document sections below.
Each section starts with a marker of the form <doc=NAME;page=N>.
After every claim, cite the page it came from by copying that marker verbatim, for example <doc=report.pdf;page=12>.
If the sections do not contain the answer, say so and cite nothing.

Sections:
`

// Answerer generates cited answers through an OpenAI-compatible chat completion API.
type Answerer struct {
	client          *openai.Client
	model           string
	temperature     float32
	maxContextChars int
	provider        string
	logger          *zap.Logger
}

// AnswererConfig holds the answer provider settings.
type AnswererConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	MaxContextChars int
	Provider        string
	Logger          *zap.Logger
}

// NewAnswerer creates an OpenAI-compatible answer provider.
func NewAnswerer(cfg *AnswererConfig) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxChars := cfg.MaxContextChars
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Answerer{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxContextChars: maxChars,
		provider:        cfg.Provider,
		logger:          logger,
	}
}

// Model returns the configured model name.
func (a *Answerer) Model() string { return a.model }

// Complete returns the whole answer in one response.
func (a *Answerer) Complete(ctx context.Context, req domain.AnswerRequest) (domain.Answer, error) {
	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, a.request(req, false))
	if err != nil {
		a.recordFailure(modeComplete)
		return domain.Answer{}, parseAPIError("answer", domain.ErrAnswerProviderError, err)
	}
	if len(resp.Choices) == 0 {
		a.recordFailure(modeComplete)
		return domain.Answer{}, fmt.Errorf("empty chat response: %w", domain.ErrAnswerProviderError)
	}

	a.recordSuccess(modeComplete, time.Since(start), resp.Usage)

	model := resp.Model
	if model == "" {
		model = a.model
	}
	return domain.Answer{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// Stream yields the answer as text deltas. The sequence ends after the first error.
// The underlying HTTP stream is closed when iteration stops, including early breaks.
func (a *Answerer) Stream(ctx context.Context, req domain.AnswerRequest) iter.Seq2[stream.Chunk, error] {
	return func(yield func(stream.Chunk, error) bool) {
		start := time.Now()
		s, err := a.client.CreateChatCompletionStream(ctx, a.request(req, true))
		if err != nil {
			a.recordFailure(modeStream)
			yield(stream.Chunk{}, parseAPIError("answer", domain.ErrAnswerProviderError, err))
			return
		}
		defer func() {
			if cerr := s.Close(); cerr != nil {
				a.logger.Debug("close chat stream", zap.Error(cerr))
			}
		}()

		var usage openai.Usage
		for {
			resp, err := s.Recv()
			if errors.Is(err, io.EOF) {
				a.recordSuccess(modeStream, time.Since(start), usage)
				return
			}
			if err != nil {
				a.recordFailure(modeStream)
				yield(stream.Chunk{}, parseAPIError("answer", domain.ErrAnswerProviderError, err))
				return
			}
			if resp.Usage != nil {
				usage = *resp.Usage
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(stream.TextChunk(choice.Delta.Content), nil) {
					return
				}
			}
		}
	}
}

// HealthCheck verifies API availability via ListModels.
func (a *Answerer) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (a *Answerer) request(req domain.AnswerRequest, streaming bool) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + BuildContext(req.Documents, a.maxContextChars)},
			{Role: openai.ChatMessageRoleUser, Content: req.Query},
		},
	}
	if streaming {
		r.Stream = true
		r.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return r
}

func (a *Answerer) recordSuccess(mode string, d time.Duration, usage openai.Usage) {
	metrics.AnswerRequestsTotal.WithLabelValues(a.provider, a.model, mode, "success").Inc()
	metrics.AnswerRequestDuration.WithLabelValues(a.provider, a.model, mode).Observe(d.Seconds())
	if usage.TotalTokens > 0 {
		metrics.AnswerTokensTotal.WithLabelValues(a.provider, a.model, "prompt").Add(float64(usage.PromptTokens))
		metrics.AnswerTokensTotal.WithLabelValues(a.provider, a.model, "completion").Add(float64(usage.CompletionTokens))
	}
}

func (a *Answerer) recordFailure(mode string) {
	metrics.AnswerRequestsTotal.WithLabelValues(a.provider, a.model, mode, "error").Inc()
}

// BuildContext renders every section of docs as a marker line followed by its title and text.
// Sections are written in tree order and rendering stops before maxChars would be exceeded.
// A non-positive maxChars means no limit.
func BuildContext(docs []*section.Tree, maxChars int) string {
	var b strings.Builder
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for e := range doc.Index().All() {
			block := sectionBlock(doc.Name, e)
			if block == "" {
				continue
			}
			if maxChars > 0 && b.Len()+len(block) > maxChars {
				return b.String()
			}
			b.WriteString(block)
		}
	}
	return b.String()
}

func sectionBlock(docName string, e section.Entry) string {
	body := e.Node.Text
	if body == "" {
		body = e.Node.DisplaySummary()
	}
	if body == "" && e.Node.Title == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("<doc=")
	b.WriteString(docName)
	b.WriteString(";page=")
	b.WriteString(strconv.Itoa(e.StartPage))
	b.WriteString(">\n")
	if e.Node.Title != "" {
		b.WriteString(e.Node.Title)
		b.WriteByte('\n')
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
