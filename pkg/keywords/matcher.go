package keywords

import (
	"sort"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// Matcher finds whole-word keyword occurrences in lowercased text. Where
// keywords overlap, the earliest and then longest occurrence wins and the
// scan resumes after it.
type Matcher struct {
	trie *ahocorasick.Trie
	size int
}

// NewMatcher builds a matcher over keywords. Empty keywords are ignored.
func NewMatcher(keywords []string) *Matcher {
	patterns := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k != "" {
			patterns = append(patterns, k)
		}
	}
	if len(patterns) == 0 {
		return &Matcher{}
	}

	return &Matcher{
		trie: ahocorasick.NewTrieBuilder().AddStrings(patterns).Build(),
		size: len(patterns),
	}
}

// Size is the number of keywords the matcher was built from.
func (m *Matcher) Size() int {
	return m.size
}

type span struct {
	start, end int
	term       string
}

// Extract returns every keyword occurrence in text, repeats included, in
// order of appearance.
func (m *Matcher) Extract(text string) []string {
	if m.trie == nil || text == "" {
		return nil
	}

	var spans []span
	for _, match := range m.trie.MatchString(text) {
		term := match.MatchString()
		start := int(match.Pos())
		end := start + len(term)
		if !isBoundary(text, start-1) || !isBoundary(text, end) {
			continue
		}
		spans = append(spans, span{start: start, end: end, term: term})
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var result []string
	next := 0
	for _, s := range spans {
		if s.start < next {
			continue
		}
		result = append(result, s.term)
		next = s.end
	}
	return result
}

// isBoundary reports whether the byte at i separates words. Positions
// outside the text are boundaries.
func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	return !isWordByte(text[i])
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z') ||
		('0' <= b && b <= '9')
}
