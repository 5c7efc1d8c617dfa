package section

import "iter"

// Match tells how a page lookup was satisfied.
type Match string

// Lookup outcomes.
const (
	MatchExact   Match = "exact"
	MatchClosest Match = "closest"
	MatchNone    Match = "none"
)

// Entry is a flat view of one tree node with its resolved page range.
// Node is shared with the source tree and must be treated as read-only.
type Entry struct {
	Node      *Node
	StartPage int
	EndPage   int
	Parent    int // position of the parent entry, -1 for top-level nodes
	Depth     int
}

// Width returns the number of pages spanned minus one.
func (e Entry) Width() int { return e.EndPage - e.StartPage }

// Contains reports whether page lies inside the entry's range.
func (e Entry) Contains(page int) bool {
	return e.StartPage <= page && page <= e.EndPage
}

// Index is an immutable flat snapshot of a section tree.
// Entries are stored in pre-order; every node, not only leaves, is addressable by id.
// An Index is safe for concurrent use once built.
type Index struct {
	entries []Entry
	byID    map[string]int
}

type buildOptions struct {
	maxPage int
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithMaxPage sets the document page count used to close open-ended ranges.
func WithMaxPage(n int) BuildOption {
	return func(o *buildOptions) { o.maxPage = n }
}

// frame is a pending node on the traversal stack.
type frame struct {
	node      *Node
	parent    int
	depth     int
	parentEnd int
	nextStart int // start page of the next sibling, 0 if none
}

// Build flattens roots into an Index using an explicit stack, so tree depth is unbounded.
// Nodes whose end page is missing or before their start page get one derived from the next
// sibling, the parent range or the max page, in that order.
// When node ids repeat, Get returns the first in pre-order.
func Build(roots []*Node, opts ...BuildOption) *Index {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{byID: make(map[string]int)}

	stack := make([]frame, 0, len(roots))
	stack = pushChildren(stack, roots, -1, 0, o.maxPage)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		end := resolveEnd(f, o.maxPage)
		pos := len(idx.entries)
		idx.entries = append(idx.entries, Entry{
			Node:      f.node,
			StartPage: f.node.StartPage,
			EndPage:   end,
			Parent:    f.parent,
			Depth:     f.depth,
		})
		if _, dup := idx.byID[f.node.NodeID]; !dup && f.node.NodeID != "" {
			idx.byID[f.node.NodeID] = pos
		}

		stack = pushChildren(stack, f.node.Nodes, pos, f.depth+1, end)
	}

	return idx
}

// pushChildren pushes nodes in reverse so they pop in document order.
func pushChildren(stack []frame, nodes []*Node, parent, depth, parentEnd int) []frame {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i] == nil {
			continue
		}
		next := 0
		for j := i + 1; j < len(nodes); j++ {
			if nodes[j] != nil {
				next = nodes[j].StartPage
				break
			}
		}
		stack = append(stack, frame{
			node:      nodes[i],
			parent:    parent,
			depth:     depth,
			parentEnd: parentEnd,
			nextStart: next,
		})
	}
	return stack
}

func resolveEnd(f frame, maxPage int) int {
	start := f.node.StartPage
	if f.node.EndPage >= start {
		return f.node.EndPage
	}
	switch {
	case f.nextStart > 0:
		return max(start, f.nextStart-1)
	case f.parentEnd >= start:
		return f.parentEnd
	case maxPage >= start:
		return maxPage
	default:
		return start
	}
}

// Len returns the number of indexed nodes.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// All yields entries in pre-order.
func (x *Index) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if x == nil {
			return
		}
		for _, e := range x.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Get returns the entry for nodeID.
func (x *Index) Get(nodeID string) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	pos, ok := x.byID[nodeID]
	if !ok {
		return Entry{}, false
	}
	return x.entries[pos], true
}

// Parent returns the entry enclosing e.
func (x *Index) Parent(e Entry) (Entry, bool) {
	if x == nil || e.Parent < 0 || e.Parent >= len(x.entries) {
		return Entry{}, false
	}
	return x.entries[e.Parent], true
}

// EntryByPage returns the innermost entry whose range contains page.
// Among equally narrow ranges the first in pre-order wins.
func (x *Index) EntryByPage(page int) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	best := -1
	for i, e := range x.entries {
		if !e.Contains(page) {
			continue
		}
		if best < 0 || e.Width() < x.entries[best].Width() {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return x.entries[best], true
}

// FindByPage returns the innermost node containing page, or nil.
func (x *Index) FindByPage(page int) *Node {
	e, ok := x.EntryByPage(page)
	if !ok {
		return nil
	}
	return e.Node
}

// ClosestEntry returns the entry whose start page is nearest to page, visiting every node.
// The first in pre-order wins on equal distance. ok is false only for an empty index.
func (x *Index) ClosestEntry(page int) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	best := -1
	bestDist := 0
	for i, e := range x.entries {
		d := abs(e.StartPage - page)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return x.entries[best], true
}

// FindClosest returns the node whose start page is nearest to page, or nil for an empty index.
func (x *Index) FindClosest(page int) *Node {
	e, ok := x.ClosestEntry(page)
	if !ok {
		return nil
	}
	return e.Node
}

// Locate tries an exact containment lookup first and falls back to the closest node.
func (x *Index) Locate(page int) (Entry, Match) {
	if e, ok := x.EntryByPage(page); ok {
		return e, MatchExact
	}
	if e, ok := x.ClosestEntry(page); ok {
		return e, MatchClosest
	}
	return Entry{}, MatchNone
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
