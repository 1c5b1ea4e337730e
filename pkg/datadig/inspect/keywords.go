package inspect

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrNoKeywords is returned when no keywords are supplied.
	ErrNoKeywords = errors.New("at least one keyword is required")

	// ErrEmptyKeyword is returned for blank keywords.
	ErrEmptyKeyword = errors.New("keyword must not be empty")
)

// Keywords is an ordered, case-insensitive set of search terms.
type Keywords struct {
	words  []string
	folded []string
}

// NewKeywords builds a keyword set. Duplicates (ignoring case) are dropped;
// order of first appearance is kept.
func NewKeywords(words ...string) (Keywords, error) {
	if len(words) == 0 {
		return Keywords{}, ErrNoKeywords
	}

	var k Keywords
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			return Keywords{}, fmt.Errorf("%w: %q", ErrEmptyKeyword, w)
		}
		f := fold(w)
		if seen[f] {
			continue
		}
		seen[f] = true
		k.words = append(k.words, w)
		k.folded = append(k.folded, f)
	}
	return k, nil
}

// Words returns the keywords as given.
func (k Keywords) Words() []string {
	out := make([]string, len(k.words))
	copy(out, k.words)
	return out
}

// Len returns the number of keywords.
func (k Keywords) Len() int {
	return len(k.words)
}

// Match returns the first keyword contained in s, ignoring case.
func (k Keywords) Match(s string) (string, bool) {
	if len(k.folded) == 0 {
		return "", false
	}
	fs := fold(s)
	for i, f := range k.folded {
		if strings.Contains(fs, f) {
			return k.words[i], true
		}
	}
	return "", false
}

func fold(s string) string {
	return cases.Fold().String(s)
}
