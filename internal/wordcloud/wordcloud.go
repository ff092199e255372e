// Package wordcloud turns issue text into word frequencies for the
// wordcloud and treemap views.
package wordcloud

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Word struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type TreemapNode struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Words shorter than this carry little signal in issue text.
const minWordLength = 4

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Tokenize splits text into lowercase words, dropping URLs, non-letter
// runes, short words and stopwords. Text is NFC-normalized first so
// composed and decomposed forms of the same word count together.
func Tokenize(text string) []string {
	text = norm.NFC.String(text)
	text = urlPattern.ReplaceAllString(text, " ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	words := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) < minWordLength {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Count aggregates word frequencies over all texts.
func Count(texts []string) map[string]int {
	counts := map[string]int{}
	for _, text := range texts {
		for _, w := range Tokenize(text) {
			counts[w]++
		}
	}
	return counts
}

// Top returns the most frequent words, count descending with ties broken
// alphabetically. Always returns a non-nil slice.
func Top(counts map[string]int, limit int) []Word {
	words := make([]Word, 0, len(counts))
	for text, value := range counts {
		words = append(words, Word{Text: text, Value: value})
	}
	sort.Slice(words, func(a, b int) bool {
		if words[a].Value != words[b].Value {
			return words[a].Value > words[b].Value
		}
		return words[a].Text < words[b].Text
	})
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

// Treemap renders the same ranking in the treemap's node shape.
func Treemap(counts map[string]int, limit int) []TreemapNode {
	top := Top(counts, limit)
	nodes := make([]TreemapNode, 0, len(top))
	for _, w := range top {
		nodes = append(nodes, TreemapNode{Name: w.Text, Value: w.Value})
	}
	return nodes
}
