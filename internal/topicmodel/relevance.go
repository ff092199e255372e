package topicmodel

import (
	"math"
	"sort"
)

const (
	// MinProbability floors every probability before a log is taken, so
	// zero, negative or missing values produce finite scores.
	MinProbability = 1e-8

	// TopWordCount is how many ranked terms a topic exposes.
	TopWordCount = 10

	// NeutralLambda weights probability and lift equally. Derived word
	// lists are synthesized at this value.
	NeutralLambda = 0.5
)

// RankedTerm is one row of a relevance ranking.
type RankedTerm struct {
	Word      string  `json:"word"`
	Score     float64 `json:"score"`
	TermIndex int     `json:"termIndex"`
}

// ComputeTopWords ranks the vocabulary of one topic by relevance:
//
//	relevance(w, t) = lambda*ln(P(w|t)) + (1-lambda)*ln(P(w|t)/P(w))
//
// At lambda 1 the ranking follows the in-topic probability alone, at 0 the
// lift alone. topicIndex is the 0-based row into TopicTermDists, i.e. the
// topic's position in the sequence. lambda is used as given; layers that
// expose a slider clamp it to [0,1] themselves.
//
// When the row, the vocabulary and the frequency vector disagree on length
// only the shared prefix is ranked. An out-of-range row or missing data
// yields an empty ranking; the function never returns an error and never
// panics. The result is deterministic: scores descend and ties order by
// ascending term index.
func ComputeTopWords(m *Output, topicIndex int, lambda float64) []RankedTerm {
	ranked := []RankedTerm{}
	if m == nil || topicIndex < 0 || topicIndex >= len(m.TopicTermDists) {
		return ranked
	}

	row := m.TopicTermDists[topicIndex]
	n := len(row)
	if len(m.TermFrequency) < n {
		n = len(m.TermFrequency)
	}
	if len(m.Terms) < n {
		n = len(m.Terms)
	}

	for i := 0; i < n; i++ {
		pwt := clampProb(row[i])
		pw := clampProb(m.TermFrequency[i])
		score := lambda*math.Log(pwt) + (1-lambda)*math.Log(pwt/pw)
		ranked = append(ranked, RankedTerm{
			Word:      m.Terms[i],
			Score:     score,
			TermIndex: i,
		})
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].TermIndex < ranked[b].TermIndex
	})

	if len(ranked) > TopWordCount {
		ranked = ranked[:TopWordCount]
	}
	return ranked
}

// SynthesizeWords builds a display word list from the ranking at the given
// lambda. Used for topics whose artifact ships no precomputed words; the
// shape matches provided word lists so consumers cannot tell them apart.
func SynthesizeWords(m *Output, topicIndex int, lambda float64) []TermWeight {
	ranked := ComputeTopWords(m, topicIndex, lambda)
	words := make([]TermWeight, 0, len(ranked))
	for _, rt := range ranked {
		pwt := clampProb(m.TermProbability(topicIndex, rt.TermIndex))
		pw := clampProb(m.TermFrequencyAt(rt.TermIndex))
		words = append(words, TermWeight{
			Text:        rt.Word,
			Value:       m.TermFrequencyAt(rt.TermIndex),
			Probability: m.TermProbability(topicIndex, rt.TermIndex),
			LogLift:     math.Log(pwt / pw),
			TermIndex:   rt.TermIndex,
		})
	}
	return words
}

// clampProb floors v at MinProbability. The comparison also catches NaN.
func clampProb(v float64) float64 {
	if v > MinProbability {
		return v
	}
	return MinProbability
}
