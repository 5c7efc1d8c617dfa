package section

import "time"

// Node is a titled, page-ranged section of a document. Nodes form a tree through Nodes.
// JSON names follow the PageIndex tree format.
type Node struct {
	NodeID        string  `json:"node_id"`
	Title         string  `json:"title"`
	Text          string  `json:"text,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	PrefixSummary string  `json:"prefix_summary,omitempty"`
	StartPage     int     `json:"start_index"`
	EndPage       int     `json:"end_index,omitempty"`
	Nodes         []*Node `json:"nodes,omitempty"`
}

// DisplaySummary returns the summary, falling back to the prefix summary.
func (n *Node) DisplaySummary() string {
	if n.Summary != "" {
		return n.Summary
	}
	return n.PrefixSummary
}

// Tree is a stored document tree. Name is the document name used in citation markers.
type Tree struct {
	DocID     string    `json:"doc_id"`
	Name      string    `json:"name"`
	PageCount int       `json:"page_count,omitempty"`
	Nodes     []*Node   `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Index builds the lookup index for the tree. PageCount bounds derived end pages.
func (t *Tree) Index() *Index {
	if t == nil {
		return nil
	}
	return Build(t.Nodes, WithMaxPage(t.PageCount))
}
