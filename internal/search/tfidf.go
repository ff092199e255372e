// Package search provides an in-memory TF-IDF index over issue text,
// used to pull relevant issues into the chat context.
package search

import (
	"math"
	"sort"
	"sync"

	"github.com/retroam/agileai/internal/wordcloud"
)

// Match is one scored document.
type Match struct {
	ID    int64
	Score float64
}

type termWeight struct {
	term   string
	weight float64
}

type document struct {
	id     int64
	counts map[string]int
	total  int
}

// Index holds tokenized documents and document frequencies. Vectors are
// weighted at query time so idf always reflects the full corpus. Safe for
// concurrent use.
type Index struct {
	mu   sync.RWMutex
	docs []document
	df   map[string]int
}

func NewIndex() *Index {
	return &Index{df: map[string]int{}}
}

// Add indexes text under id. Text that tokenizes to nothing indexes as an
// empty document that never matches.
func (ix *Index) Add(id int64, text string) {
	counts := map[string]int{}
	total := 0
	for _, tok := range wordcloud.Tokenize(text) {
		counts[tok]++
		total++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for term := range counts {
		ix.df[term]++
	}
	ix.docs = append(ix.docs, document{id: id, counts: counts, total: total})
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search ranks documents against query, best first, keeping at most k
// matches with positive similarity. Equal scores keep insertion order.
func (ix *Index) Search(query string, k int) []Match {
	counts := map[string]int{}
	total := 0
	for _, tok := range wordcloud.Tokenize(query) {
		counts[tok]++
		total++
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := []Match{}
	qvec := ix.vector(counts, total)
	if len(qvec) == 0 {
		return matches
	}
	for _, doc := range ix.docs {
		score := cosine(qvec, ix.vector(doc.counts, doc.total))
		if score > 0 {
			matches = append(matches, Match{ID: doc.id, Score: score})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// idf is smoothed so terms present in every document keep a small
// positive weight instead of vanishing.
func (ix *Index) idf(term string) float64 {
	n := float64(len(ix.docs))
	df := float64(ix.df[term])
	return math.Log((1+n)/(1+df)) + 1
}

// vector builds the L2-normalized tf-idf vector, sorted by term for the
// merge-join in cosine.
func (ix *Index) vector(counts map[string]int, total int) []termWeight {
	if total == 0 {
		return nil
	}
	vec := make([]termWeight, 0, len(counts))
	for term, count := range counts {
		w := float64(count) / float64(total) * ix.idf(term)
		vec = append(vec, termWeight{term: term, weight: w})
	}
	sort.Slice(vec, func(a, b int) bool { return vec[a].term < vec[b].term })
	normalize(vec)
	return vec
}

func normalize(vec []termWeight) {
	var sum float64
	for _, tw := range vec {
		sum += tw.weight * tw.weight
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i].weight *= inv
	}
}

func cosine(a, b []termWeight) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term == b[j].term:
			dot += a[i].weight * b[j].weight
			i++
			j++
		case a[i].term < b[j].term:
			i++
		default:
			j++
		}
	}
	return dot
}
