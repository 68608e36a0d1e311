// Package lingua provides the lexical signal helpers shared by every mull
// scorer: tokenization, coarse word classes, keyword hit counting, numeric
// extraction, and set-overlap similarity.
//
// The word-class tagger is deliberately shallow. It distinguishes noun-like,
// verb-like, and adjective-like tokens with suffix heuristics and a function
// word stoplist, which is enough for topic phrases and loop similarity.
// Any tagger satisfying the Tagger interface is substitutable.
package lingua

import (
	"regexp"
	"strings"
	"unicode"
)

// WordClass is a coarse part-of-speech bucket.
type WordClass int

const (
	ClassOther WordClass = iota
	ClassNoun
	ClassVerb
	ClassAdjective
)

// Tagger produces word-boundary tokens and coarse word classes.
type Tagger interface {
	Tokenize(text string) []string
	Classify(token string) WordClass
}

// HeuristicTagger is the default suffix-rule tagger.
type HeuristicTagger struct{}

// stopwords are function words excluded from content-word sets.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "am": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "i": {}, "me": {}, "my": {},
	"we": {}, "our": {}, "you": {}, "your": {}, "he": {}, "she": {}, "it": {},
	"they": {}, "them": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"and": {}, "or": {}, "but": {}, "so": {}, "if": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "for": {}, "with": {}, "from": {},
	"as": {}, "into": {}, "about": {}, "out": {}, "up": {}, "down": {},
	"not": {}, "no": {}, "do": {}, "does": {}, "did": {}, "have": {},
	"has": {}, "had": {}, "will": {}, "would": {}, "can": {}, "could": {},
	"should": {}, "again": {}, "just": {}, "too": {}, "very": {}, "there": {},
	"here": {}, "then": {}, "than": {}, "what": {}, "when": {}, "how": {},
	"all": {}, "some": {}, "any": {},
}

var verbSuffixes = []string{"ing", "ed", "ize", "ise", "ify", "ate"}
var adjectiveSuffixes = []string{"ful", "less", "ous", "ive", "able", "ible", "y"}

// Tokenize lowercases text, splits on whitespace, and strips surrounding
// punctuation from each token. Empty tokens are dropped.
func (HeuristicTagger) Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Classify assigns a coarse word class to a lowercase token. Function words
// map to ClassOther; content words default to ClassNoun when no verb or
// adjective suffix matches, so any content-bearing text yields a noun set.
func (HeuristicTagger) Classify(token string) WordClass {
	if token == "" {
		return ClassOther
	}
	if _, ok := stopwords[token]; ok {
		return ClassOther
	}
	if len(token) < 3 {
		return ClassOther
	}

	for _, suf := range verbSuffixes {
		if len(token) > len(suf)+1 && strings.HasSuffix(token, suf) {
			return ClassVerb
		}
	}
	for _, suf := range adjectiveSuffixes {
		if len(token) > len(suf)+1 && strings.HasSuffix(token, suf) {
			return ClassAdjective
		}
	}
	return ClassNoun
}

// DefaultTagger is the tagger used when callers don't inject one.
var DefaultTagger Tagger = HeuristicTagger{}

// WordSet returns the set of tokens in text.
func WordSet(tagger Tagger, text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tagger.Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// ClassSets returns the noun-like and verb-like token sets of text.
func ClassSets(tagger Tagger, text string) (nouns, verbs map[string]struct{}) {
	nouns = make(map[string]struct{})
	verbs = make(map[string]struct{})
	for _, tok := range tagger.Tokenize(text) {
		switch tagger.Classify(tok) {
		case ClassNoun:
			nouns[tok] = struct{}{}
		case ClassVerb:
			verbs[tok] = struct{}{}
		}
	}
	return nouns, verbs
}

// TopicPhrase extracts up to max noun- or adjective-like tokens from text,
// in order of appearance. Returns "" when text has no such tokens.
func TopicPhrase(tagger Tagger, text string, max int) string {
	if max <= 0 {
		return ""
	}
	var picked []string
	seen := make(map[string]struct{})
	for _, tok := range tagger.Tokenize(text) {
		class := tagger.Classify(tok)
		if class != ClassNoun && class != ClassAdjective {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		picked = append(picked, tok)
		if len(picked) == max {
			break
		}
	}
	return strings.Join(picked, " ")
}

// Jaccard computes set-overlap similarity |a∩b| / |a∪b|.
// Two empty sets have no overlap evidence and score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// CountHits counts total occurrences of all keywords in text.
// Matching is case-insensitive substring; keywords must be pre-lowercased.
func CountHits(text string, keywords []string) int {
	if text == "" || len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		hits += strings.Count(lower, kw)
	}
	return hits
}

// ContainsAny reports whether any keyword occurs in text.
func ContainsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TokenHits counts, token by token, how many tokens contain a keyword from
// the set. A token matching several keywords still counts once.
func TokenHits(tagger Tagger, text string, keywords []string) int {
	hits := 0
	for _, tok := range tagger.Tokenize(text) {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(tok, kw) {
				hits++
				break
			}
		}
	}
	return hits
}

var numberPattern = regexp.MustCompile(`\d+`)

// FirstNumber extracts the first integer literal in text.
func FirstNumber(text string) (int, bool) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	n := 0
	for _, r := range match {
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			// Clamp absurd literals rather than overflowing.
			return 1 << 30, true
		}
	}
	return n, true
}

// WordCount returns the whitespace-token count of text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
