// Package topicmap turns a topic model into the intertopic distance view:
// circle layout, selection state and the ranked term panel. Everything here
// is pure; rendering happens elsewhere from the structures this package
// returns.
package topicmap

import (
	"math"

	"github.com/retroam/agileai/internal/topicmodel"
)

const (
	// Circle sizing: area scales with the topic's share of the largest
	// weight, but never below a clickable minimum.
	minRadius   = 12.0
	radiusScale = 60.0

	// Upstream pipelines emit either raw embedding coordinates (roughly
	// unit scale) or percent-scaled ones. Raw coordinates are stretched
	// by this factor so both land in a comparable domain.
	rawCoordinateScale = 100.0
	rawCoordinateLimit = 5.0

	// Axis domains pad the data range by this fraction on both ends.
	domainPadFraction = 0.2
)

// Circle is one plottable topic on the map.
type Circle struct {
	TopicID int     `json:"topicId"`
	Index   int     `json:"index"` // 1-based display index
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Label   string  `json:"label"`
	Weight  float64 `json:"weight"`
}

// Bounds is the padded axis domain of the map.
type Bounds struct {
	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
}

// Layout places every positioned topic. Topics without coordinates are
// left out of the map but stay selectable through the view. With zero
// plottable topics the bounds default to [-1, 1] on both axes.
func Layout(topics []topicmodel.Topic) ([]Circle, Bounds) {
	scale := scaleFactor(topics)
	maxWeight := 0.0
	for _, t := range topics {
		if t.Weight > maxWeight {
			maxWeight = t.Weight
		}
	}

	circles := make([]Circle, 0, len(topics))
	for i, t := range topics {
		if !t.HasPosition {
			continue
		}
		circles = append(circles, Circle{
			TopicID: t.ID,
			Index:   i + 1,
			X:       t.X * scale,
			Y:       t.Y * scale,
			Radius:  radiusFor(t.Weight, maxWeight),
			Label:   t.Label,
			Weight:  t.Weight,
		})
	}

	return circles, boundsFor(circles)
}

// scaleFactor detects which coordinate convention the artifact uses: when
// the largest |x| exceeds the raw-coordinate limit the values are already
// percent-scaled and pass through unchanged.
func scaleFactor(topics []topicmodel.Topic) float64 {
	maxAbsX := 0.0
	for _, t := range topics {
		if !t.HasPosition {
			continue
		}
		if abs := math.Abs(t.X); abs > maxAbsX {
			maxAbsX = abs
		}
	}
	if maxAbsX > rawCoordinateLimit {
		return 1
	}
	return rawCoordinateScale
}

// radiusFor maps a topic weight to its circle radius. Monotonic in weight
// and never below minRadius.
func radiusFor(weight, maxWeight float64) float64 {
	if maxWeight <= 0 || weight <= 0 {
		return minRadius
	}
	normalized := weight / maxWeight
	return math.Max(minRadius, math.Sqrt(normalized)*radiusScale)
}

func boundsFor(circles []Circle) Bounds {
	if len(circles) == 0 {
		return Bounds{XMin: -1, XMax: 1, YMin: -1, YMax: 1}
	}

	xMin, xMax := circles[0].X, circles[0].X
	yMin, yMax := circles[0].Y, circles[0].Y
	for _, c := range circles[1:] {
		xMin = math.Min(xMin, c.X)
		xMax = math.Max(xMax, c.X)
		yMin = math.Min(yMin, c.Y)
		yMax = math.Max(yMax, c.Y)
	}

	xPad := (xMax - xMin) * domainPadFraction
	yPad := (yMax - yMin) * domainPadFraction
	return Bounds{
		XMin: xMin - xPad,
		XMax: xMax + xPad,
		YMin: yMin - yPad,
		YMax: yMax + yPad,
	}
}
