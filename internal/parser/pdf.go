// Package parser turns uploaded documents into section trees.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/citeflow/internal/domain"
	"github.com/kailas-cloud/citeflow/internal/domain/section"
)

// PDF extracts page text from PDF documents.
type PDF struct{}

// Parse reads a whole PDF and returns a flat tree with one node per non-empty page.
func (PDF) Parse(r io.Reader, docID, name string) (*section.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	pages, err := ExtractPages(data)
	if err != nil {
		return nil, err
	}
	return PageTree(docID, name, pages), nil
}

// ExtractPages returns the plain text of every page, index 0 being page 1.
// Pages whose text cannot be decoded come back empty.
func ExtractPages(data []byte) (pages []string, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v: %w", p, domain.ErrUnsupportedDocument)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, domain.ErrUnsupportedDocument)
	}

	n := reader.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// PageTree builds a tree with one top-level node per non-empty page.
// Node ids are the zero-padded page number, titles "Page N".
func PageTree(docID, name string, pages []string) *section.Tree {
	tree := &section.Tree{
		DocID:     docID,
		Name:      name,
		PageCount: len(pages),
		Nodes:     make([]*section.Node, 0, len(pages)),
	}
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		page := i + 1
		tree.Nodes = append(tree.Nodes, &section.Node{
			NodeID:    fmt.Sprintf("%04d", page),
			Title:     fmt.Sprintf("Page %d", page),
			Text:      text,
			StartPage: page,
			EndPage:   page,
		})
	}
	return tree
}
