// Package tree stores document section trees as JSON documents.
package tree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/citeflow/internal/db"
	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// store is the consumer interface for trees (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the tree repositories of the query and document use cases.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a tree repository. Keys are "<prefix>tree:<docID>"; ttl 0 keeps trees forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Save creates or replaces a tree. Returns true if created.
func (r *Repo) Save(ctx context.Context, t *section.Tree) (bool, error) {
	key := r.key(t.DocID)
	data, err := json.Marshal(toDoc(t))
	if err != nil {
		return false, fmt.Errorf("marshal tree: %w", err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set %s: %w", key, err)
	}
	if r.ttl > 0 {
		if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	return !exists, nil
}

// Get returns the tree stored for docID.
func (r *Repo) Get(ctx context.Context, docID string) (*section.Tree, error) {
	key := r.key(docID)
	raw, err := r.store.JSONGet(ctx, key, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, fmt.Errorf("json.get %s: %w", key, err)
	}

	// JSONPath "$" wraps the document in an array.
	var docs []treeDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal tree %s: %w", key, err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrTreeNotFound
	}
	return fromDoc(docs[0]), nil
}

// Delete removes the tree stored for docID.
func (r *Repo) Delete(ctx context.Context, docID string) error {
	key := r.key(docID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrTreeNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// List returns the ids of all stored trees, sorted.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.key("*"))
	if err != nil {
		return nil, fmt.Errorf("scan trees: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, r.key("")))
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Repo) key(docID string) string {
	return r.prefix + "tree:" + docID
}
