package citation

import (
	"strconv"
	"strings"
)

// NumberMap assigns citation numbers to identity keys in first-seen order.
// The zero value is not usable; create with NewNumberMap.
type NumberMap struct {
	numbers map[Key]int
	order   []Key
}

// NewNumberMap creates an empty map.
func NewNumberMap() *NumberMap {
	return &NumberMap{numbers: make(map[Key]int)}
}

// Assign returns the number for k, allocating the next one if k is new.
func (m *NumberMap) Assign(k Key) int {
	if n, ok := m.numbers[k]; ok {
		return n
	}
	m.order = append(m.order, k)
	n := len(m.order)
	m.numbers[k] = n
	return n
}

// Number returns the number assigned to k.
func (m *NumberMap) Number(k Key) (int, bool) {
	n, ok := m.numbers[k]
	return n, ok
}

// Len returns the count of distinct keys.
func (m *NumberMap) Len() int { return len(m.order) }

// Keys returns keys ordered by their assigned number.
func (m *NumberMap) Keys() []Key {
	out := make([]Key, len(m.order))
	copy(out, m.order)
	return out
}

// Normalize numbers citations by identity and rewrites every raw marker in text as [n].
// Citations are processed in input order, so numbering follows first appearance.
func Normalize(text string, citations []Citation) (string, *NumberMap) {
	numbers := NewNumberMap()
	replaced := make(map[string]struct{}, len(citations))

	for _, c := range citations {
		n := numbers.Assign(c.Key())
		if _, done := replaced[c.raw]; done {
			continue
		}
		replaced[c.raw] = struct{}{}
		text = strings.ReplaceAll(text, c.raw, "["+strconv.Itoa(n)+"]")
	}

	return text, numbers
}

// Unique returns the first occurrence of each identity key, preserving order.
func Unique(citations []Citation) []Citation {
	seen := make(map[Key]struct{}, len(citations))
	out := make([]Citation, 0, len(citations))
	for _, c := range citations {
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
