package topicmap

import (
	"math"
	"testing"

	"github.com/retroam/agileai/internal/topicmodel"
)

func positioned(id int, x, y, weight float64) topicmodel.Topic {
	return topicmodel.Topic{ID: id, X: x, Y: y, HasPosition: true, Weight: weight}
}

func TestScaleFactorDetectsCoordinateConvention(t *testing.T) {
	raw := []topicmodel.Topic{
		positioned(0, 0.8, -0.2, 1),
		positioned(1, -1.4, 0.9, 1),
	}
	if got := scaleFactor(raw); got != 100 {
		t.Errorf("raw embedding coordinates should scale by 100, got %v", got)
	}

	percent := []topicmodel.Topic{
		positioned(0, 30, -12, 1),
		positioned(1, -48, 7, 1),
	}
	if got := scaleFactor(percent); got != 1 {
		t.Errorf("percent coordinates should pass through, got scale %v", got)
	}
}

func TestLayoutScalesRawCoordinates(t *testing.T) {
	circles, _ := Layout([]topicmodel.Topic{
		positioned(0, 0.5, -0.25, 2),
		positioned(1, -1.5, 1.0, 1),
	})

	if len(circles) != 2 {
		t.Fatalf("got %d circles, want 2", len(circles))
	}
	if circles[0].X != 50 || circles[0].Y != -25 {
		t.Errorf("circle 0 at (%v, %v), want (50, -25)", circles[0].X, circles[0].Y)
	}
	if circles[1].X != -150 || circles[1].Y != 100 {
		t.Errorf("circle 1 at (%v, %v), want (-150, 100)", circles[1].X, circles[1].Y)
	}
}

func TestRadiusMonotonicWithFloor(t *testing.T) {
	weights := []float64{0, 0.01, 1, 4, 9}
	maxWeight := 9.0

	prev := -1.0
	for _, w := range weights {
		r := radiusFor(w, maxWeight)
		if r < minRadius {
			t.Errorf("radius %v for weight %v below the floor", r, w)
		}
		if r < prev {
			t.Errorf("radius not monotonic: weight %v gave %v after %v", w, r, prev)
		}
		prev = r
	}

	if r := radiusFor(9, 9); r != 60 {
		t.Errorf("max weight radius = %v, want 60", r)
	}
	if r := radiusFor(1, 9); r != 20 {
		t.Errorf("radius = %v, want sqrt(1/9)*60 = 20", r)
	}
	if r := radiusFor(5, 0); r != minRadius {
		t.Errorf("zero max weight must floor the radius, got %v", r)
	}
}

func TestLayoutBoundsPadding(t *testing.T) {
	_, bounds := Layout([]topicmodel.Topic{
		positioned(0, -0.5, -1.0, 1),
		positioned(1, 1.5, 1.0, 1),
	})

	// Scaled x range [-50, 150], y range [-100, 100], both padded by 20%.
	wantX := [2]float64{-90, 190}
	wantY := [2]float64{-140, 140}
	if math.Abs(bounds.XMin-wantX[0]) > 1e-9 || math.Abs(bounds.XMax-wantX[1]) > 1e-9 {
		t.Errorf("x domain = [%v, %v], want [%v, %v]", bounds.XMin, bounds.XMax, wantX[0], wantX[1])
	}
	if math.Abs(bounds.YMin-wantY[0]) > 1e-9 || math.Abs(bounds.YMax-wantY[1]) > 1e-9 {
		t.Errorf("y domain = [%v, %v], want [%v, %v]", bounds.YMin, bounds.YMax, wantY[0], wantY[1])
	}
}

func TestLayoutDefaultsWhenNothingPlottable(t *testing.T) {
	cases := []struct {
		name   string
		topics []topicmodel.Topic
	}{
		{"no topics", nil},
		{"only unpositioned topics", []topicmodel.Topic{{ID: 0, Weight: 3}, {ID: 1, Weight: 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			circles, bounds := Layout(tc.topics)
			if len(circles) != 0 {
				t.Errorf("expected no circles, got %d", len(circles))
			}
			want := Bounds{XMin: -1, XMax: 1, YMin: -1, YMax: 1}
			if bounds != want {
				t.Errorf("bounds = %+v, want %+v", bounds, want)
			}
		})
	}
}

func TestLayoutSkipsUnpositionedButKeepsDisplayIndex(t *testing.T) {
	circles, _ := Layout([]topicmodel.Topic{
		positioned(10, 1, 1, 1),
		{ID: 11, Weight: 2}, // no coordinates
		positioned(12, -1, -1, 1),
	})

	if len(circles) != 2 {
		t.Fatalf("got %d circles, want 2", len(circles))
	}
	if circles[0].TopicID != 10 || circles[0].Index != 1 {
		t.Errorf("first circle = id %d index %d, want id 10 index 1", circles[0].TopicID, circles[0].Index)
	}
	if circles[1].TopicID != 12 || circles[1].Index != 3 {
		t.Errorf("second circle = id %d index %d, want id 12 index 3", circles[1].TopicID, circles[1].Index)
	}
}
