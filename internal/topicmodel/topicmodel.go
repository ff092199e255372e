// Package topicmodel defines the topic model artifact the dashboard
// consumes and the relevance ranking computed over it. The artifact is
// produced upstream; this package only decodes, normalizes and ranks.
package topicmodel

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// RawOutput mirrors the JSON artifact on the wire. Fields that upstream
// emitters treat as optional are pointers here; Normalize resolves every
// variant in one step so nothing downstream inspects raw shapes again.
type RawOutput struct {
	Topics         []RawTopic  `json:"topics"`
	Terms          []string    `json:"terms"`
	TermFrequency  []float64   `json:"term_frequency"`
	TopicTermDists [][]float64 `json:"topic_term_dists"`
}

type RawTopic struct {
	ID     *int      `json:"id"`
	X      *float64  `json:"x"`
	Y      *float64  `json:"y"`
	Size   *float64  `json:"size"`
	Weight *float64  `json:"weight"`
	Label  string    `json:"label"`
	Words  []RawWord `json:"words"`
}

type RawWord struct {
	Text        string  `json:"text"`
	Value       float64 `json:"value"`
	Probability float64 `json:"probability"`
	LogLift     float64 `json:"loglift"`
	TermIndex   *int    `json:"term_index"`
}

// Output is the canonical topic model of one dashboard session. It is
// immutable once loaded; consumers hold references and never mutate.
//
// TopicTermDists rows are indexed by the position of the topic in Topics,
// not by topic id. When ids are dense and zero based the two coincide.
type Output struct {
	Topics         []Topic     `json:"topics"`
	Terms          []string    `json:"terms"`
	TermFrequency  []float64   `json:"term_frequency"`
	TopicTermDists [][]float64 `json:"topic_term_dists"`
}

// Topic is one topic with its prevalence and 2-D position resolved.
type Topic struct {
	ID          int          `json:"id"`
	Label       string       `json:"label"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	HasPosition bool         `json:"has_position"`
	Weight      float64      `json:"weight"`
	Words       []TermWeight `json:"words"`
}

// TermWeight is one display word of a topic. TermIndex is -1 when the
// emitter did not say which vocabulary entry the word came from.
type TermWeight struct {
	Text        string  `json:"text"`
	Value       float64 `json:"value"`
	Probability float64 `json:"probability"`
	LogLift     float64 `json:"loglift"`
	TermIndex   int     `json:"term_index"`
}

// Decode unmarshals and normalizes an artifact in one step.
func Decode(data []byte) (*Output, error) {
	raw := &RawOutput{}
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("topicmodel: decode artifact: %w", err)
	}
	return Normalize(raw)
}

// Normalize resolves the raw variants into the canonical form:
//
//   - prevalence is weight when present, else size, else 0; negative or
//     non-finite values collapse to 0
//   - a topic has a position only when both coordinates are present and
//     finite
//   - a missing id defaults to the topic's position in the sequence
//   - a missing label is synthesized from the first five words when the
//     topic ships any
//
// Vector length mismatches are not an error here; every index-coupled
// computation guards by the shared prefix (see ComputeTopWords).
func Normalize(raw *RawOutput) (*Output, error) {
	if raw == nil {
		return nil, fmt.Errorf("topicmodel: nil artifact")
	}

	topics := make([]Topic, 0, len(raw.Topics))
	for i, rt := range raw.Topics {
		topic := Topic{
			ID:     i,
			Label:  rt.Label,
			Weight: resolveWeight(rt.Weight, rt.Size),
		}
		if rt.ID != nil {
			topic.ID = *rt.ID
		}
		if rt.X != nil && rt.Y != nil && isFinite(*rt.X) && isFinite(*rt.Y) {
			topic.X = *rt.X
			topic.Y = *rt.Y
			topic.HasPosition = true
		}

		if len(rt.Words) > 0 {
			topic.Words = make([]TermWeight, 0, len(rt.Words))
			for _, rw := range rt.Words {
				word := TermWeight{
					Text:        rw.Text,
					Value:       rw.Value,
					Probability: rw.Probability,
					LogLift:     rw.LogLift,
					TermIndex:   -1,
				}
				if rw.TermIndex != nil {
					word.TermIndex = *rw.TermIndex
				}
				topic.Words = append(topic.Words, word)
			}
		}
		if topic.Label == "" && len(topic.Words) > 0 {
			topic.Label = SummaryLabel(topic.Words)
		}

		topics = append(topics, topic)
	}

	return &Output{
		Topics:         topics,
		Terms:          raw.Terms,
		TermFrequency:  raw.TermFrequency,
		TopicTermDists: raw.TopicTermDists,
	}, nil
}

// SummaryLabel joins the first five word texts, the human readable short
// form used for labels and panel summaries.
func SummaryLabel(words []TermWeight) string {
	n := len(words)
	if n > 5 {
		n = 5
	}
	texts := make([]string, 0, n)
	for _, w := range words[:n] {
		texts = append(texts, w.Text)
	}
	return strings.Join(texts, ", ")
}

// TopicIndex returns the row position of the topic with the given id.
func (m *Output) TopicIndex(id int) (int, bool) {
	for i, t := range m.Topics {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}

// TermProbability returns P(term|topic) for a row and term position, 0
// when either index is out of range.
func (m *Output) TermProbability(topicIndex, termIndex int) float64 {
	if topicIndex < 0 || topicIndex >= len(m.TopicTermDists) {
		return 0
	}
	row := m.TopicTermDists[topicIndex]
	if termIndex < 0 || termIndex >= len(row) {
		return 0
	}
	return row[termIndex]
}

// TermFrequencyAt returns the corpus frequency at a term position, 0 when
// out of range.
func (m *Output) TermFrequencyAt(termIndex int) float64 {
	if termIndex < 0 || termIndex >= len(m.TermFrequency) {
		return 0
	}
	return m.TermFrequency[termIndex]
}

func resolveWeight(weight, size *float64) float64 {
	v := 0.0
	switch {
	case weight != nil:
		v = *weight
	case size != nil:
		v = *size
	}
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
