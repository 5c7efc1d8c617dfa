package document

import (
	"fmt"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// MaxDocIDLength bounds document ids, which become store keys.
const MaxDocIDLength = 256

// Validate checks that a tree can be stored and indexed.
// Every node needs an id and a non-negative start page; an end page, when set, may not precede it.
func Validate(t *section.Tree) error {
	if t == nil {
		return fmt.Errorf("tree is required: %w", domain.ErrInvalidTree)
	}
	if t.DocID == "" || len(t.DocID) > MaxDocIDLength {
		return fmt.Errorf("doc_id must be 1-%d bytes: %w", MaxDocIDLength, domain.ErrInvalidTree)
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes: %w", domain.ErrInvalidTree)
	}
	if t.PageCount < 0 {
		return fmt.Errorf("page_count is negative: %w", domain.ErrInvalidTree)
	}

	stack := append([]*section.Node(nil), t.Nodes...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil {
			return fmt.Errorf("null node: %w", domain.ErrInvalidTree)
		}
		if n.NodeID == "" {
			return fmt.Errorf("node %q has no node_id: %w", n.Title, domain.ErrInvalidTree)
		}
		if n.StartPage < 0 {
			return fmt.Errorf("node %s: start_index is negative: %w", n.NodeID, domain.ErrInvalidTree)
		}
		if n.EndPage != 0 && n.EndPage < n.StartPage {
			return fmt.Errorf("node %s: end_index %d before start_index %d: %w",
				n.NodeID, n.EndPage, n.StartPage, domain.ErrInvalidTree)
		}
		stack = append(stack, n.Nodes...)
	}
	return nil
}
