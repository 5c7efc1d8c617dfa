package section

// Catalog holds one Index per document name for a single resolution pass.
type Catalog struct {
	byName map[string]*Index
	only   *Index
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]*Index)}
}

// SingleIndex wraps one index so it serves every document name.
func SingleIndex(idx *Index) *Catalog {
	c := NewCatalog()
	if idx != nil {
		c.Add("", idx)
	}
	return c
}

// Add registers idx under name. Nil indexes are ignored.
func (c *Catalog) Add(name string, idx *Index) {
	if idx == nil {
		return
	}
	c.byName[name] = idx
	if len(c.byName) == 1 {
		c.only = idx
	} else {
		c.only = nil
	}
}

// Len returns the number of registered indexes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byName)
}

// For returns the index for documentName. With a single registered index it is returned
// for any name, since answer providers do not always echo the stored document name.
func (c *Catalog) For(documentName string) *Index {
	if c == nil {
		return nil
	}
	if idx, ok := c.byName[documentName]; ok {
		return idx
	}
	return c.only
}

// CatalogOf indexes trees by name. Nil without trees. A lone tree serves every cited name.
func CatalogOf(trees []*Tree) *Catalog {
	switch len(trees) {
	case 0:
		return nil
	case 1:
		return SingleIndex(trees[0].Index())
	}
	c := NewCatalog()
	for _, t := range trees {
		c.Add(t.Name, t.Index())
	}
	return c
}
