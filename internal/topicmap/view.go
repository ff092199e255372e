package topicmap

import (
	"github.com/retroam/agileai/internal/topicmodel"
)

const (
	// DefaultLambda is the slider position when a session starts.
	DefaultLambda = 0.6

	// LambdaStep is the slider granularity exposed to clients.
	LambdaStep = 0.01

	summaryWordCount = 5
)

// View is the state machine behind the topic map: which topic is selected
// and where the relevance slider sits. All mutations go through SetModel,
// Select and SetLambda; there is no other way state changes. The view is
// not safe for concurrent use, callers serialize events.
type View struct {
	model        *topicmodel.Output
	selectedID   int
	hasSelection bool
	lambda       float64
}

func NewView() *View {
	return &View{lambda: DefaultLambda}
}

// SetModel installs a freshly loaded topic model. Topics that ship no
// precomputed word list get one synthesized here, once, at the neutral
// lambda; afterwards provided and derived words are indistinguishable.
//
// Selection carries over when the previously selected id still exists.
// Otherwise the first topic of the new model is selected, and an empty
// model clears the selection entirely.
func (v *View) SetModel(m *topicmodel.Output) {
	v.model = m
	if m == nil || len(m.Topics) == 0 {
		v.hasSelection = false
		v.selectedID = 0
		return
	}

	for i := range m.Topics {
		if len(m.Topics[i].Words) == 0 {
			m.Topics[i].Words = topicmodel.SynthesizeWords(m, i, topicmodel.NeutralLambda)
		}
		if m.Topics[i].Label == "" && len(m.Topics[i].Words) > 0 {
			m.Topics[i].Label = topicmodel.SummaryLabel(m.Topics[i].Words)
		}
	}

	if v.hasSelection {
		if _, ok := m.TopicIndex(v.selectedID); ok {
			return
		}
	}
	v.selectedID = m.Topics[0].ID
	v.hasSelection = true
}

// Model returns the installed topic model, nil before the first SetModel.
func (v *View) Model() *topicmodel.Output {
	return v.model
}

// Select handles a circle click. Unknown ids are ignored so a stale click
// cannot corrupt the state.
func (v *View) Select(id int) bool {
	if v.model == nil {
		return false
	}
	if _, ok := v.model.TopicIndex(id); !ok {
		return false
	}
	v.selectedID = id
	v.hasSelection = true
	return true
}

// SetLambda moves the relevance slider. The value is clamped to [0, 1].
// Moving the slider never changes which topic is selected.
func (v *View) SetLambda(lambda float64) {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	v.lambda = lambda
}

func (v *View) Lambda() float64 {
	return v.lambda
}

// Selected returns the selected topic id, false when nothing is selected.
func (v *View) Selected() (int, bool) {
	return v.selectedID, v.hasSelection
}

// Scene is the render model of the map pane.
type Scene struct {
	Circles    []Circle `json:"circles"`
	Bounds     Bounds   `json:"bounds"`
	SelectedID *int     `json:"selectedTopicId"`
	Lambda     float64  `json:"lambda"`
	LambdaStep float64  `json:"lambdaStep"`
	TopicCount int      `json:"topicCount"`
}

// Scene lays out the current model. Safe to call before data arrives: the
// result is an empty map with default bounds.
func (v *View) Scene() Scene {
	scene := Scene{
		Circles:    []Circle{},
		Lambda:     v.lambda,
		LambdaStep: LambdaStep,
	}
	if v.model != nil {
		scene.Circles, scene.Bounds = Layout(v.model.Topics)
		scene.TopicCount = len(v.model.Topics)
	} else {
		_, scene.Bounds = Layout(nil)
	}
	if v.hasSelection {
		id := v.selectedID
		scene.SelectedID = &id
	}
	return scene
}
