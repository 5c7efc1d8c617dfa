package citeflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kailas-cloud/citeflow/internal/db"
	"github.com/kailas-cloud/citeflow/internal/db/memory"
	dbRedis "github.com/kailas-cloud/citeflow/internal/db/redis"
	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
	"github.com/kailas-cloud/citeflow/internal/parser"
	treerepo "github.com/kailas-cloud/citeflow/internal/repository/tree"
	documentuc "github.com/kailas-cloud/citeflow/internal/usecase/document"
	"github.com/kailas-cloud/citeflow/internal/usecase/resolve"
	"github.com/kailas-cloud/citeflow/internal/usecase/stream"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "citeflow:"
)

// Client resolves citations against the section trees it stores.
type Client struct {
	store    db.Store
	docs     *documentuc.Service
	resolver *resolve.Service
	obs      *observer
}

// New creates a Client and connects to the store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != "memory" && len(cfg.addrs) == 0 {
		return nil, errors.New("citeflow: store required (use WithValkey, WithRedis or WithMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("citeflow: store not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("citeflow: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("citeflow: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	trees := treerepo.New(store, cfg.keyPrefix, cfg.treeTTL)

	var scorer highlight.Scorer = highlight.NewKeywordScorer()
	scorerName := "keyword"
	if cfg.embedder != nil {
		scorer = highlight.NewSemanticScorer(&embedderAdapter{inner: cfg.embedder})
		scorerName = "semantic"
	}

	hopts := []highlight.Option{
		highlight.WithMaxHighlights(cfg.maxHighlights),
		highlight.WithMinSentenceLength(cfg.minSentenceLength),
	}
	if cfg.scoreThreshold != nil {
		hopts = append(hopts, highlight.WithScoreThreshold(*cfg.scoreThreshold))
	}

	return &Client{
		store:    store,
		docs:     documentuc.New(trees, parser.PDF{}),
		resolver: resolve.New(highlight.NewExtractor(scorer, hopts...), scorerName),
		obs:      obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Trees returns the section tree service.
func (c *Client) Trees() *TreeService {
	return &TreeService{svc: c.docs, obs: c.obs}
}

// Resolve numbers the citations in answer and resolves them against the trees of docIDs.
// Missing trees are skipped; their citations resolve to placeholder sources.
func (c *Client) Resolve(ctx context.Context, answer, query string, docIDs ...string) (Result, error) {
	start := time.Now()
	trees, err := c.loadTrees(ctx, docIDs)
	if err != nil {
		c.obs.observe(ctx, "resolve", start, err)
		return Result{}, err
	}

	res, err := c.resolver.Resolve(ctx, answer, query, section.CatalogOf(trees))
	c.obs.observe(ctx, "resolve", start, err,
		slog.Int("trees", len(trees)), slog.Int("sources", len(res.Sources)))
	if err != nil {
		return Result{}, fmt.Errorf("resolve: %w", err)
	}
	c.obs.addSources(len(res.Sources))
	return res, nil
}

// NewStream starts resolving a streamed answer to query over the trees of docIDs.
func (c *Client) NewStream(ctx context.Context, query string, docIDs ...string) (*Stream, error) {
	trees, err := c.loadTrees(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	return &Stream{
		coord: stream.NewCoordinator(c.resolver, query, section.CatalogOf(trees)),
		obs:   c.obs,
		start: time.Now(),
	}, nil
}

func (c *Client) loadTrees(ctx context.Context, docIDs []string) ([]*section.Tree, error) {
	trees := make([]*section.Tree, 0, len(docIDs))
	for _, id := range docIDs {
		t, err := c.docs.GetTree(ctx, id)
		if errors.Is(err, domain.ErrTreeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load tree %s: %w", id, err)
		}
		trees = append(trees, t)
	}
	return trees, nil
}
