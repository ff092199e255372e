package topicmodel

import (
	"math"
	"reflect"
	"testing"
)

func fruitModel() *Output {
	return &Output{
		Topics:         []Topic{{ID: 0, Weight: 1}},
		Terms:          []string{"apple", "banana", "orange"},
		TermFrequency:  []float64{0.02, 0.015, 0.01},
		TopicTermDists: [][]float64{{0.1, 0.05, 0.02}},
	}
}

func TestComputeTopWordsFruitRanking(t *testing.T) {
	got := ComputeTopWords(fruitModel(), 0, 0.6)

	want := []string{"apple", "banana", "orange"}
	if len(got) != len(want) {
		t.Fatalf("got %d terms, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Word != w {
			t.Errorf("rank %d = %q, want %q", i, got[i].Word, w)
		}
		if got[i].TermIndex != i {
			t.Errorf("rank %d term index = %d, want %d", i, got[i].TermIndex, i)
		}
		if math.IsNaN(got[i].Score) || math.IsInf(got[i].Score, 0) {
			t.Errorf("rank %d score not finite: %v", i, got[i].Score)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score >= got[i-1].Score {
			t.Errorf("scores not strictly descending: %v >= %v", got[i].Score, got[i-1].Score)
		}
	}

	wantTop := 0.6*math.Log(0.1) + 0.4*math.Log(0.1/0.02)
	if diff := math.Abs(got[0].Score - wantTop); diff > 1e-12 {
		t.Errorf("top score = %v, want %v", got[0].Score, wantTop)
	}
}

func TestComputeTopWordsDeterministic(t *testing.T) {
	m := fruitModel()
	first := ComputeTopWords(m, 0, 0.6)
	second := ComputeTopWords(m, 0, 0.6)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different rankings:\n%v\n%v", first, second)
	}
}

func TestComputeTopWordsTieBreakByTermIndex(t *testing.T) {
	m := &Output{
		Terms:          []string{"zebra", "alpha", "mango"},
		TermFrequency:  []float64{0.01, 0.01, 0.01},
		TopicTermDists: [][]float64{{0.05, 0.05, 0.05}},
	}

	got := ComputeTopWords(m, 0, 0.4)
	if len(got) != 3 {
		t.Fatalf("got %d terms, want 3", len(got))
	}
	for i := range got {
		if got[i].TermIndex != i {
			t.Errorf("tied scores must order by term index: position %d has index %d", i, got[i].TermIndex)
		}
	}
}

func TestComputeTopWordsCapsAtTen(t *testing.T) {
	terms := make([]string, 25)
	freqs := make([]float64, 25)
	row := make([]float64, 25)
	for i := range terms {
		terms[i] = string(rune('a' + i))
		freqs[i] = 0.01
		row[i] = float64(i+1) / 100
	}
	m := &Output{Terms: terms, TermFrequency: freqs, TopicTermDists: [][]float64{row}}

	got := ComputeTopWords(m, 0, 0.6)
	if len(got) != TopWordCount {
		t.Fatalf("got %d terms, want %d", len(got), TopWordCount)
	}
	// Highest row probabilities live at the tail of the vocabulary.
	if got[0].TermIndex != 24 {
		t.Errorf("top term index = %d, want 24", got[0].TermIndex)
	}
}

func TestComputeTopWordsShorterVocabulary(t *testing.T) {
	m := &Output{
		Terms:          []string{"only", "two"},
		TermFrequency:  []float64{0.5, 0.2},
		TopicTermDists: [][]float64{{0.4, 0.6}},
	}
	got := ComputeTopWords(m, 0, 0.6)
	if len(got) != 2 {
		t.Fatalf("got %d terms, want 2", len(got))
	}
}

func TestComputeTopWordsClampsZeroProbabilities(t *testing.T) {
	m := &Output{
		Terms:          []string{"ghost", "real"},
		TermFrequency:  []float64{0, 0.1},
		TopicTermDists: [][]float64{{0, 0.2}},
	}

	got := ComputeTopWords(m, 0, 0.6)
	if len(got) != 2 {
		t.Fatalf("got %d terms, want 2", len(got))
	}
	for _, rt := range got {
		if math.IsNaN(rt.Score) || math.IsInf(rt.Score, 0) {
			t.Errorf("score for %q not finite: %v", rt.Word, rt.Score)
		}
	}
	// Both probabilities clamped: lift is ln(1) = 0, so the ghost term
	// scores exactly lambda*ln(MinProbability).
	wantGhost := 0.6 * math.Log(MinProbability)
	var ghost *RankedTerm
	for i := range got {
		if got[i].Word == "ghost" {
			ghost = &got[i]
		}
	}
	if ghost == nil {
		t.Fatal("ghost term missing from ranking")
	}
	if diff := math.Abs(ghost.Score - wantGhost); diff > 1e-12 {
		t.Errorf("ghost score = %v, want %v", ghost.Score, wantGhost)
	}
}

func TestComputeTopWordsLambdaExtremes(t *testing.T) {
	m := &Output{
		Terms:          []string{"a", "b", "c"},
		TermFrequency:  []float64{0.4, 0.01, 0.3},
		TopicTermDists: [][]float64{{0.5, 0.3, 0.2}},
	}

	// Pure probability: follow the row descending.
	atOne := ComputeTopWords(m, 0, 1)
	wantOne := []string{"a", "b", "c"}
	for i, w := range wantOne {
		if atOne[i].Word != w {
			t.Errorf("lambda=1 rank %d = %q, want %q", i, atOne[i].Word, w)
		}
	}

	// Pure lift: b has by far the rarest corpus frequency.
	atZero := ComputeTopWords(m, 0, 0)
	wantZero := []string{"b", "a", "c"}
	for i, w := range wantZero {
		if atZero[i].Word != w {
			t.Errorf("lambda=0 rank %d = %q, want %q", i, atZero[i].Word, w)
		}
	}
}

func TestComputeTopWordsDegradesToEmpty(t *testing.T) {
	m := fruitModel()

	cases := []struct {
		name  string
		model *Output
		index int
	}{
		{"negative index", m, -1},
		{"index past rows", m, 1},
		{"nil model", nil, 0},
		{"empty model", &Output{}, 0},
		{"row without vocabulary", &Output{TopicTermDists: [][]float64{{0.1}}}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTopWords(tc.model, tc.index, 0.6)
			if got == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(got) != 0 {
				t.Errorf("expected empty ranking, got %d terms", len(got))
			}
		})
	}
}

func TestComputeTopWordsLengthMismatchUsesSharedPrefix(t *testing.T) {
	m := &Output{
		Terms:          []string{"a", "b", "c", "d", "e"},
		TermFrequency:  []float64{0.1, 0.1, 0.1},
		TopicTermDists: [][]float64{{0.5, 0.4, 0.3, 0.2, 0.1}},
	}

	got := ComputeTopWords(m, 0, 0.6)
	if len(got) != 3 {
		t.Fatalf("got %d terms, want 3 (shared prefix)", len(got))
	}
	for _, rt := range got {
		if rt.TermIndex > 2 {
			t.Errorf("term index %d outside the shared prefix", rt.TermIndex)
		}
	}
}

func TestSynthesizeWordsShape(t *testing.T) {
	m := fruitModel()
	words := SynthesizeWords(m, 0, NeutralLambda)

	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	if words[0].Text != "apple" {
		t.Errorf("first word = %q, want apple", words[0].Text)
	}
	for _, w := range words {
		if w.TermIndex < 0 {
			t.Errorf("synthesized word %q has no term index", w.Text)
		}
		if w.Probability != m.TopicTermDists[0][w.TermIndex] {
			t.Errorf("word %q probability = %v, want %v", w.Text, w.Probability, m.TopicTermDists[0][w.TermIndex])
		}
		if w.Value != m.TermFrequency[w.TermIndex] {
			t.Errorf("word %q value = %v, want %v", w.Text, w.Value, m.TermFrequency[w.TermIndex])
		}
		wantLift := math.Log(m.TopicTermDists[0][w.TermIndex] / m.TermFrequency[w.TermIndex])
		if diff := math.Abs(w.LogLift - wantLift); diff > 1e-12 {
			t.Errorf("word %q loglift = %v, want %v", w.Text, w.LogLift, wantLift)
		}
	}
}
