// Package keywords expands seed vocabularies into lexical variants and scores
// free text against them.
package keywords

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose to ASCII under NFKD.
var asciiReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
	"þ", "th", "Þ", "TH", "ı", "i",
	"‘", "'", "’", "'", "“", `"`, "”", `"`, "–", "-", "—", "-",
	"α", "a", "β", "b", "γ", "g", "δ", "d", "ε", "e", "κ", "k",
	"λ", "l", "μ", "m", "π", "p", "σ", "s", "τ", "t", "ω", "o",
)

// Transliterate maps text to its nearest ASCII equivalent. Characters with
// no equivalent are dropped.
func Transliterate(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	result = asciiReplacer.Replace(result)

	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, result)
}

// Normalize transliterates, lowercases and collapses whitespace.
func Normalize(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(Transliterate(term))), " ")
}

// Variants returns the sorted lexical variants of a seed term: the
// normalized term, its trailing-s plural, its possessive-stripped form, its
// hyphen-to-space form and its punctuation-stripped form with an English
// plural. Rules are reapplied to every variant until no new form appears,
// so the variants of any variant are a subset of the result.
func Variants(term string) []string {
	base := Normalize(term)
	if base == "" {
		return nil
	}

	seen := map[string]struct{}{base: {}}
	queue := []string{base}
	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		for _, v := range rewrites(w) {
			if _, ok := seen[v]; ok || v == "" {
				continue
			}
			seen[v] = struct{}{}
			queue = append(queue, v)
		}
	}

	result := make([]string, 0, len(seen))
	for v := range seen {
		result = append(result, v)
	}
	slices.Sort(result)
	return result
}

// rewrites applies every rule once to a normalized word.
func rewrites(w string) []string {
	var result []string
	if !strings.HasSuffix(w, "s") {
		result = append(result, w+"s")
	}
	if strings.Contains(w, "'s") {
		result = append(result, strings.ReplaceAll(w, "'s", "s"))
	}
	if strings.Contains(w, "-") {
		result = append(result, collapse(strings.ReplaceAll(w, "-", " ")))
	}
	if stripped := stripPunctuation(w); stripped != "" {
		result = append(result, stripped, Pluralize(stripped))
	}
	return result
}

// stripPunctuation keeps letters, digits, underscores and spaces.
func stripPunctuation(w string) string {
	return collapse(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, w))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Pluralize applies English plural heuristics: consonant+y becomes -ies;
// x, z, ch and sh endings add -es; ss, us and is endings add -es; other
// words ending in s are taken to be plural already and return "". Everything
// else adds -s.
func Pluralize(w string) string {
	switch {
	case w == "":
		return ""
	case strings.HasSuffix(w, "y") && len(w) > 1 && !isVowel(w[len(w)-2]):
		return w[:len(w)-1] + "ies"
	case strings.HasSuffix(w, "x"), strings.HasSuffix(w, "z"),
		strings.HasSuffix(w, "ch"), strings.HasSuffix(w, "sh"):
		return w + "es"
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w + "es"
	case strings.HasSuffix(w, "s"):
		return ""
	default:
		return w + "s"
	}
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}

// Expand unions the variants of every seed term and returns them sorted.
// With stoplist set, seeds whose normalized form is a stopword are dropped.
func Expand(seeds []string, stoplist *Stoplist) []string {
	set := make(map[string]struct{})
	for _, seed := range seeds {
		if stoplist != nil && stoplist.Contains(Normalize(seed)) {
			continue
		}
		for _, v := range Variants(seed) {
			set[v] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for v := range set {
		result = append(result, v)
	}
	slices.Sort(result)
	return result
}
