package search

import (
	"regexp"
	"strings"
	"unicode"
)

// StopWords is a set of lower-cased words that are ignored when scoring.
type StopWords map[string]struct{}

// DefaultStopWords are dropped from queries and candidates before scoring.
var DefaultStopWords = NewStopWords("the", "and", "a", "&")

// NewStopWords returns a stop-word set holding the lower-cased words.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func (s StopWords) contains(word string) bool {
	_, ok := s[word]
	return ok
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Words splits s into lower-cased words. Every rune that is not a letter
// or digit separates words, so "You're" becomes "you", "re". Words in
// stopwords are dropped, stopwords may be nil.
func Words(s string, stopwords StopWords) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
	if len(stopwords) == 0 {
		return fields
	}
	words := fields[:0]
	for _, w := range fields {
		if !stopwords.contains(w) {
			words = append(words, w)
		}
	}
	return words
}

// Pattern matches text containing any word of a query as a whole word.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern builds the pattern for query. Stop-words are kept, an empty
// query gives a pattern that matches everything.
func NewPattern(query string) Pattern {
	words := Words(query, nil)
	if len(words) == 0 {
		return Pattern{}
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	// complement of isWordRune
	const boundary = `[^\p{L}\p{Nd}]`
	source := `(?i)(^|` + boundary + `)(` + strings.Join(quoted, "|") + `)($|` + boundary + `)`
	return Pattern{re: regexp.MustCompile(source)}
}

// String returns the regular expression source, empty for match-all.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

func (p Pattern) MatchString(s string) bool {
	return p.re == nil || p.re.MatchString(s)
}
