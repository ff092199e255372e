package topicmap

import (
	"fmt"
	"math"
	"strconv"

	"github.com/retroam/agileai/internal/topicmodel"
)

// Panel is the render model of the topic detail pane: header, short
// summary, slider position and the ranked term table at the current
// lambda. Raw values ride along with their display strings so clients
// never re-derive formatting.
type Panel struct {
	TopicID    int        `json:"topicId"`
	Header     string     `json:"header"`
	Summary    string     `json:"summary"`
	Lambda     float64    `json:"lambda"`
	LambdaStep float64    `json:"lambdaStep"`
	Rows       []PanelRow `json:"rows"`
}

// PanelRow is one term of the panel table.
type PanelRow struct {
	Term            string  `json:"term"`
	TermIndex       int     `json:"termIndex"`
	Score           float64 `json:"score"`
	ScoreText       string  `json:"scoreText"`
	Probability     float64 `json:"probability"`
	ProbabilityText string  `json:"probabilityText"`
	Frequency       float64 `json:"frequency"`
	FrequencyText   string  `json:"frequencyText"`
}

// Panel builds the detail pane for the current selection. The second
// return is false when nothing is selected and callers should render a
// placeholder prompt instead. Rankings are recomputed synchronously at
// the view's lambda on every call.
func (v *View) Panel() (Panel, bool) {
	if v.model == nil || !v.hasSelection {
		return Panel{}, false
	}
	index, ok := v.model.TopicIndex(v.selectedID)
	if !ok {
		return Panel{}, false
	}

	topic := v.model.Topics[index]
	panel := Panel{
		TopicID:    topic.ID,
		Header:     fmt.Sprintf("Topic %d", index+1),
		Summary:    topicmodel.SummaryLabel(topic.Words),
		Lambda:     v.lambda,
		LambdaStep: LambdaStep,
		Rows:       []PanelRow{},
	}

	for _, rt := range topicmodel.ComputeTopWords(v.model, index, v.lambda) {
		probability := v.model.TermProbability(index, rt.TermIndex)
		frequency := v.model.TermFrequencyAt(rt.TermIndex)
		panel.Rows = append(panel.Rows, PanelRow{
			Term:            rt.Word,
			TermIndex:       rt.TermIndex,
			Score:           rt.Score,
			ScoreText:       fmt.Sprintf("%.3f", rt.Score),
			Probability:     probability,
			ProbabilityText: fmt.Sprintf("%.2f%%", probability*100),
			Frequency:       frequency,
			FrequencyText:   groupThousands(math.Round(frequency)),
		})
	}
	return panel, true
}

// groupThousands renders a rounded count with comma separators.
func groupThousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 0, 64)

	n := len(s)
	if n > 3 {
		grouped := make([]byte, 0, n+n/3)
		lead := n % 3
		if lead > 0 {
			grouped = append(grouped, s[:lead]...)
		}
		for i := lead; i < n; i += 3 {
			if len(grouped) > 0 {
				grouped = append(grouped, ',')
			}
			grouped = append(grouped, s[i:i+3]...)
		}
		s = string(grouped)
	}

	if neg {
		return "-" + s
	}
	return s
}
