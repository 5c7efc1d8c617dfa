package citeflow

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "memory"
	addrs    []string
	password string

	keyPrefix string
	treeTTL   time.Duration

	embedder          Embedder
	maxHighlights     int
	minSentenceLength int
	scoreThreshold    *float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey stores trees in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores trees in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps trees in process memory. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.addrs = nil
	})
}

// WithKeyPrefix sets the storage key prefix. Default: "citeflow:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTreeTTL expires stored trees after ttl. Zero (default) keeps them forever.
func WithTreeTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.treeTTL = ttl
	})
}

// WithEmbedder scores highlights by semantic similarity instead of keyword overlap.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithMaxHighlights caps highlights per source. Default: 3.
func WithMaxHighlights(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxHighlights = n
	})
}

// WithMinSentenceLength skips shorter sentences when highlighting. Default: 20 characters.
func WithMinSentenceLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minSentenceLength = n
	})
}

// WithScoreThreshold overrides the score a sentence must exceed to be highlighted.
// Defaults: 0 for keyword scoring, 0.5 for semantic scoring.
func WithScoreThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoreThreshold = &t
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
