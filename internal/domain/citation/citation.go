package citation

import (
	"regexp"
	"strconv"
)

// markerRegex matches inline markers of the form <doc=NAME;page=N>.
var markerRegex = regexp.MustCompile(`<doc=([^;]+);page=(\d+)>`)

// Key identifies a cited document page.
type Key struct {
	DocumentName string
	PageNumber   int
}

// String returns the key in "name_pN" form.
func (k Key) String() string {
	return k.DocumentName + "_p" + strconv.Itoa(k.PageNumber)
}

// Citation is a single inline marker found in answer text.
type Citation struct {
	documentName string
	pageNumber   int
	raw          string
}

// New creates a citation. raw must be the exact marker substring.
func New(documentName string, pageNumber int, raw string) Citation {
	return Citation{documentName: documentName, pageNumber: pageNumber, raw: raw}
}

// DocumentName returns the cited document name.
func (c Citation) DocumentName() string { return c.documentName }

// PageNumber returns the cited page.
func (c Citation) PageNumber() int { return c.pageNumber }

// Raw returns the marker exactly as it appeared in the text.
func (c Citation) Raw() string { return c.raw }

// Key returns the identity key used for deduplication.
func (c Citation) Key() Key {
	return Key{DocumentName: c.documentName, PageNumber: c.pageNumber}
}

// Parse extracts every citation marker from text in order of appearance, duplicates included.
// Markers with a page number that does not fit an int are treated as malformed and skipped.
func Parse(text string) []Citation {
	matches := markerRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	citations := make([]Citation, 0, len(matches))
	for _, m := range matches {
		page, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		citations = append(citations, New(m[1], page, m[0]))
	}
	return citations
}

// ContainsMarker reports whether text still holds at least one well-formed marker.
func ContainsMarker(text string) bool {
	return markerRegex.MatchString(text)
}
