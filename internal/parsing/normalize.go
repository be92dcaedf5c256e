// Package parsing provides text normalization and tokenization shared by extraction, mapping and scoring.
package parsing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped before ranking, vectorizing and role matching
var stopwords = map[string]bool{
	"and": true, "or": true, "the": true, "a": true, "an": true,
	"of": true, "to": true, "in": true, "for": true, "with": true,
	"on": true, "by": true, "at": true, "is": true, "are": true,
	"as": true, "be": true, "this": true, "that": true, "these": true,
	"those": true,
}

// Normalize folds text into the canonical keyword form: NFKD decomposition with
// combining marks dropped, lowercase, anything outside [a-z0-9 -] replaced by a
// space, whitespace collapsed and trimmed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// Transformers carry state, so the chain is built per call.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Tokenize splits normalized text on spaces and drops stopwords
func Tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ContentTokens normalizes and tokenizes text in one step
func ContentTokens(text string) []string {
	return Tokenize(Normalize(text))
}

// Terms produces the vocabulary terms of a text for lexical vector spaces:
// words of at least two letters or digits (hyphens separate words), stopwords
// removed, followed by every adjacent bigram of the remaining words. Terms are
// returned in order of appearance, unigrams first, with repeats preserved.
func Terms(text string) []string {
	words := Words(text)
	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// Words splits text into lowercase analyzer words: runs of letters, digits or
// underscores of at least two runes, stopwords removed.
func Words(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if len([]rune(w)) < 2 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Capitalize upper-cases the first rune of s
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// TruncateTokens keeps at most limit space-separated tokens
func TruncateTokens(s string, limit int) string {
	fields := strings.Fields(s)
	if len(fields) > limit {
		fields = fields[:limit]
	}
	return strings.Join(fields, " ")
}

// Truncate shortens s to at most limit runes
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// ContainsToken reports whether token appears as a whole token in tokens
func ContainsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}
