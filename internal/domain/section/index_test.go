package section

import (
	"fmt"
	"testing"
)

func sampleTree() []*Node {
	return []*Node{
		{
			NodeID: "0001", Title: "Book", StartPage: 1, EndPage: 100,
			Nodes: []*Node{
				{NodeID: "0002", Title: "Intro", StartPage: 1, EndPage: 10},
				{
					NodeID: "0003", Title: "Middle", StartPage: 40, EndPage: 60,
					Nodes: []*Node{
						{NodeID: "0004", Title: "Deep", StartPage: 45, EndPage: 47},
					},
				},
			},
		},
		{NodeID: "0005", Title: "Appendix", StartPage: 120, EndPage: 130},
	}
}

func TestBuild_FlattensEveryNode(t *testing.T) {
	idx := Build(sampleTree())

	if idx.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", idx.Len())
	}
	for _, id := range []string{"0001", "0002", "0003", "0004", "0005"} {
		if _, ok := idx.Get(id); !ok {
			t.Errorf("node %s not addressable", id)
		}
	}

	var order []string
	for e := range idx.All() {
		order = append(order, e.Node.NodeID)
	}
	want := []string{"0001", "0002", "0003", "0004", "0005"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("pre-order mismatch: got %v, want %v", order, want)
		}
	}
}

func TestBuild_ParentAndDepth(t *testing.T) {
	idx := Build(sampleTree())

	deep, _ := idx.Get("0004")
	if deep.Depth != 2 {
		t.Errorf("expected depth 2, got %d", deep.Depth)
	}
	parent, ok := idx.Parent(deep)
	if !ok || parent.Node.NodeID != "0003" {
		t.Errorf("expected parent 0003, got %+v", parent.Node)
	}
	root, _ := idx.Get("0001")
	if _, ok := idx.Parent(root); ok {
		t.Error("root should have no parent")
	}
}

func TestFindByPage_PrefersInnermost(t *testing.T) {
	idx := Build(sampleTree())

	tests := []struct {
		page int
		want string
	}{
		{50, "0003"},
		{46, "0004"},
		{5, "0002"},
		{20, "0001"},
		{125, "0005"},
	}
	for _, tc := range tests {
		n := idx.FindByPage(tc.page)
		if n == nil {
			t.Errorf("page %d: no node", tc.page)
			continue
		}
		if n.NodeID != tc.want {
			t.Errorf("page %d: got %s, want %s", tc.page, n.NodeID, tc.want)
		}
	}
}

func TestFindByPage_Nested(t *testing.T) {
	idx := Build([]*Node{
		{NodeID: "outer", StartPage: 1, EndPage: 100, Nodes: []*Node{
			{NodeID: "inner", StartPage: 40, EndPage: 60},
		}},
	})
	if n := idx.FindByPage(50); n == nil || n.NodeID != "inner" {
		t.Fatalf("expected inner, got %+v", n)
	}
}

func TestFindByPage_Miss(t *testing.T) {
	idx := Build(sampleTree())
	if n := idx.FindByPage(110); n != nil {
		t.Errorf("expected nil, got %s", n.NodeID)
	}
}

func TestFindClosest(t *testing.T) {
	idx := Build(sampleTree())

	tests := []struct {
		page int
		want string
	}{
		{110, "0005"}, // |120-110|=10 beats |45-110|
		{200, "0005"},
		{0, "0001"}, // 0001 and 0002 both start at 1, pre-order wins
		{44, "0004"},
	}
	for _, tc := range tests {
		n := idx.FindClosest(tc.page)
		if n == nil || n.NodeID != tc.want {
			t.Errorf("page %d: got %+v, want %s", tc.page, n, tc.want)
		}
	}
}

func TestFindClosest_Empty(t *testing.T) {
	idx := Build(nil)
	if n := idx.FindClosest(3); n != nil {
		t.Errorf("expected nil, got %+v", n)
	}
	var nilIdx *Index
	if n := nilIdx.FindClosest(3); n != nil {
		t.Errorf("expected nil for nil index, got %+v", n)
	}
}

func TestLocate(t *testing.T) {
	idx := Build(sampleTree())

	if e, m := idx.Locate(46); m != MatchExact || e.Node.NodeID != "0004" {
		t.Errorf("expected exact 0004, got %s %+v", m, e.Node)
	}
	if e, m := idx.Locate(115); m != MatchClosest || e.Node.NodeID != "0005" {
		t.Errorf("expected closest 0005, got %s %+v", m, e.Node)
	}
	if _, m := Build(nil).Locate(1); m != MatchNone {
		t.Errorf("expected none, got %s", m)
	}
}

func TestBuild_DerivesMissingEndPages(t *testing.T) {
	idx := Build([]*Node{
		{NodeID: "a", StartPage: 1, Nodes: []*Node{
			{NodeID: "a1", StartPage: 1},
			{NodeID: "a2", StartPage: 4},
		}},
		{NodeID: "b", StartPage: 9},
	}, WithMaxPage(12))

	tests := []struct {
		id         string
		start, end int
	}{
		{"a", 1, 8},  // next sibling b starts at 9
		{"a1", 1, 3}, // next sibling a2 starts at 4
		{"a2", 4, 8}, // parent ends at 8
		{"b", 9, 12}, // max page
	}
	for _, tc := range tests {
		e, ok := idx.Get(tc.id)
		if !ok {
			t.Fatalf("missing %s", tc.id)
		}
		if e.StartPage != tc.start || e.EndPage != tc.end {
			t.Errorf("%s: got [%d,%d], want [%d,%d]", tc.id, e.StartPage, e.EndPage, tc.start, tc.end)
		}
	}
}

func TestBuild_EndPageWithoutMaxPage(t *testing.T) {
	idx := Build([]*Node{{NodeID: "solo", StartPage: 7}})
	e, _ := idx.Get("solo")
	if e.EndPage != 7 {
		t.Errorf("expected end 7, got %d", e.EndPage)
	}
}

func TestBuild_DeepTree(t *testing.T) {
	const depth = 100000
	root := &Node{NodeID: "n0", StartPage: 1, EndPage: depth}
	cur := root
	for i := 1; i < depth; i++ {
		child := &Node{NodeID: fmt.Sprintf("n%d", i), StartPage: 1 + i, EndPage: depth}
		cur.Nodes = []*Node{child}
		cur = child
	}

	idx := Build([]*Node{root})
	if idx.Len() != depth {
		t.Fatalf("expected %d entries, got %d", depth, idx.Len())
	}
	if n := idx.FindByPage(depth); n == nil || n.NodeID != fmt.Sprintf("n%d", depth-1) {
		t.Errorf("expected deepest node, got %+v", n)
	}
}

func TestBuild_DoesNotCopyNodes(t *testing.T) {
	tree := sampleTree()
	idx := Build(tree)
	e, _ := idx.Get("0001")
	if e.Node != tree[0] {
		t.Error("entry should reference the source node")
	}
}

func TestCatalog_For(t *testing.T) {
	a := Build([]*Node{{NodeID: "a", StartPage: 1, EndPage: 2}})
	b := Build([]*Node{{NodeID: "b", StartPage: 1, EndPage: 2}})

	single := SingleIndex(a)
	if single.For("anything.pdf") != a {
		t.Error("single index should serve any name")
	}

	c := NewCatalog()
	c.Add("a.pdf", a)
	c.Add("b.pdf", b)
	if c.For("b.pdf") != b {
		t.Error("expected b index")
	}
	if c.For("c.pdf") != nil {
		t.Error("unknown name should return nil with several indexes")
	}

	var nilCat *Catalog
	if nilCat.For("a.pdf") != nil {
		t.Error("nil catalog should return nil")
	}
}

func TestCatalogOf(t *testing.T) {
	if CatalogOf(nil) != nil {
		t.Error("no trees should give a nil catalog")
	}

	one := &Tree{Name: "a.pdf", Nodes: []*Node{{NodeID: "a", StartPage: 1, EndPage: 3}}}
	c := CatalogOf([]*Tree{one})
	if n := c.For("renamed.pdf").FindByPage(2); n == nil || n.NodeID != "a" {
		t.Error("a lone tree should serve any document name")
	}

	two := &Tree{Name: "b.pdf", Nodes: []*Node{{NodeID: "b", StartPage: 1, EndPage: 3}}}
	c = CatalogOf([]*Tree{one, two})
	if c.Len() != 2 {
		t.Fatalf("expected 2 indexes, got %d", c.Len())
	}
	if n := c.For("b.pdf").FindByPage(1); n == nil || n.NodeID != "b" {
		t.Error("expected the b.pdf index")
	}
	if c.For("c.pdf") != nil {
		t.Error("unknown name should miss with several trees")
	}
}

func TestDisplaySummary(t *testing.T) {
	n := &Node{PrefixSummary: "prefix"}
	if n.DisplaySummary() != "prefix" {
		t.Errorf("expected prefix fallback, got %q", n.DisplaySummary())
	}
	n.Summary = "full"
	if n.DisplaySummary() != "full" {
		t.Errorf("expected summary, got %q", n.DisplaySummary())
	}
}
