// Package source holds the resolved, user-facing form of a citation.
package source

import (
	"fmt"

	"github.com/kailas-cloud/citeflow/internal/domain/citation"
	"github.com/kailas-cloud/citeflow/internal/domain/highlight"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// Source is one numbered citation resolved to a document section.
type Source struct {
	ID             string                `json:"id"`
	NodeID         string                `json:"nodeId"`
	Title          string                `json:"title"`
	DocumentName   string                `json:"documentName"`
	PageIndex      int                   `json:"pageIndex"`
	EndPageIndex   int                   `json:"endPageIndex"`
	Content        string                `json:"content"`
	Summary        string                `json:"summary"`
	CitationNumber int                   `json:"citationNumber"`
	Highlights     []highlight.Highlight `json:"highlights"`
	Score          *float64              `json:"score,omitempty"`
}

// FromEntry builds a source for a citation resolved to an index entry.
// PageIndex stays the cited page; EndPageIndex is the end of the section range.
func FromEntry(c citation.Citation, number int, e section.Entry, hs []highlight.Highlight) Source {
	if hs == nil {
		hs = []highlight.Highlight{}
	}
	s := Source{
		ID:             sourceID(c.DocumentName(), e.Node.NodeID),
		NodeID:         e.Node.NodeID,
		Title:          e.Node.Title,
		DocumentName:   c.DocumentName(),
		PageIndex:      c.PageNumber(),
		EndPageIndex:   e.EndPage,
		Content:        e.Node.Text,
		Summary:        e.Node.DisplaySummary(),
		CitationNumber: number,
		Highlights:     hs,
	}
	if len(hs) > 0 {
		top := hs[0].Score
		s.Score = &top
	}
	return s
}

// Placeholder builds the minimal source used when a citation matches no section.
func Placeholder(c citation.Citation, number int) Source {
	nodeID := fmt.Sprintf("page_%d", c.PageNumber())
	return Source{
		ID:             sourceID(c.DocumentName(), nodeID),
		NodeID:         nodeID,
		Title:          fmt.Sprintf("Page %d", c.PageNumber()),
		DocumentName:   c.DocumentName(),
		PageIndex:      c.PageNumber(),
		EndPageIndex:   c.PageNumber(),
		CitationNumber: number,
		Highlights:     []highlight.Highlight{},
	}
}

func sourceID(documentName, nodeID string) string {
	return documentName + "_" + nodeID
}
