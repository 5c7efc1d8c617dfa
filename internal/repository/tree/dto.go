package tree

import (
	"time"

	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// treeDoc is the stored JSON shape. Node fields keep the PageIndex names.
type treeDoc struct {
	DocID     string          `json:"doc_id"`
	Name      string          `json:"name"`
	PageCount int             `json:"page_count,omitempty"`
	Nodes     []*section.Node `json:"nodes"`
	UpdatedAt int64           `json:"updated_at"` // unix millis
}

func toDoc(t *section.Tree) treeDoc {
	return treeDoc{
		DocID:     t.DocID,
		Name:      t.Name,
		PageCount: t.PageCount,
		Nodes:     t.Nodes,
		UpdatedAt: t.UpdatedAt.UnixMilli(),
	}
}

func fromDoc(d treeDoc) *section.Tree {
	t := &section.Tree{
		DocID:     d.DocID,
		Name:      d.Name,
		PageCount: d.PageCount,
		Nodes:     d.Nodes,
	}
	if d.UpdatedAt > 0 {
		t.UpdatedAt = time.UnixMilli(d.UpdatedAt).UTC()
	}
	return t
}
