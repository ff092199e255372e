// Package insights derives the dashboard aggregates from a repository's
// issue history: state split, close times, contributor and comment stats,
// activity over time and the weekday/hour heatmap.
package insights

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Issue carries the fields the aggregates read. Callers map their storage
// rows into this shape.
type Issue struct {
	State            string
	Author           string
	Comments         int
	CreatedAt        time.Time
	ClosedAt         *time.Time
	TimeToCloseHours *float64
}

type Summary struct {
	TotalIssues       int            `json:"total_issues"`
	StateDistribution map[string]int `json:"state_distribution"`
	TimeToClose       CloseStats     `json:"time_to_close_stats"`
	TopContributors   []Contributor  `json:"top_contributors"`
	Comments          CommentStats   `json:"comments_stats"`
	IssuesOverTime    []TimePoint    `json:"issues_over_time"`
	StateOverTime     []StatePoint   `json:"state_over_time"`
	ActivityHeatmap   []HeatmapCell  `json:"activity_heatmap"`
}

// CloseStats summarizes time-to-close in days over the closed issues.
type CloseStats struct {
	ClosedCount int     `json:"closed_count"`
	MeanDays    float64 `json:"mean_days"`
	MedianDays  float64 `json:"median_days"`
	MinDays     float64 `json:"min_days"`
	MaxDays     float64 `json:"max_days"`
}

type Contributor struct {
	Login string `json:"login"`
	Count int    `json:"count"`
}

type CommentStats struct {
	Total  int     `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    int     `json:"max"`
}

// TimePoint is one day of issue creation with the running total.
type TimePoint struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// StatePoint splits one day's created issues by their current state.
type StatePoint struct {
	Date   string `json:"date"`
	Open   int    `json:"open"`
	Closed int    `json:"closed"`
}

// HeatmapCell is one non-empty (weekday, hour) bucket, Monday first.
type HeatmapCell struct {
	Day      string `json:"day"`
	DayIndex int    `json:"day_index"`
	Hour     int    `json:"hour"`
	Count    int    `json:"count"`
}

const dateLayout = "2006-01-02"

const maxContributors = 10

// Build computes every aggregate in one pass over the issues. An empty
// input yields a zeroed summary with empty collections, never nil ones.
func Build(issues []Issue) *Summary {
	s := &Summary{
		TotalIssues:       len(issues),
		StateDistribution: map[string]int{},
		TopContributors:   []Contributor{},
		IssuesOverTime:    []TimePoint{},
		StateOverTime:     []StatePoint{},
		ActivityHeatmap:   []HeatmapCell{},
	}

	closeDays := make([]float64, 0, len(issues))
	commentCounts := make([]float64, 0, len(issues))
	byAuthor := map[string]int{}
	createdByDate := map[string]int{}
	stateByDate := map[string]*StatePoint{}
	heat := map[[2]int]int{}

	for _, issue := range issues {
		s.StateDistribution[issue.State]++

		if issue.TimeToCloseHours != nil {
			closeDays = append(closeDays, *issue.TimeToCloseHours/24)
		}

		commentCounts = append(commentCounts, float64(issue.Comments))
		s.Comments.Total += issue.Comments
		if issue.Comments > s.Comments.Max {
			s.Comments.Max = issue.Comments
		}

		if issue.Author != "" {
			byAuthor[issue.Author]++
		}

		date := issue.CreatedAt.Format(dateLayout)
		createdByDate[date]++

		point, ok := stateByDate[date]
		if !ok {
			point = &StatePoint{Date: date}
			stateByDate[date] = point
		}
		if issue.State == "closed" {
			point.Closed++
		} else {
			point.Open++
		}

		day := mondayFirst(issue.CreatedAt.Weekday())
		heat[[2]int{day, issue.CreatedAt.Hour()}]++
	}

	if len(closeDays) > 0 {
		s.TimeToClose = CloseStats{
			ClosedCount: len(closeDays),
			MeanDays:    round2(stat.Mean(closeDays, nil)),
			MedianDays:  round2(median(closeDays)),
			MinDays:     round2(floats.Min(closeDays)),
			MaxDays:     round2(floats.Max(closeDays)),
		}
	}

	if len(commentCounts) > 0 {
		s.Comments.Mean = round2(stat.Mean(commentCounts, nil))
		s.Comments.Median = round2(median(commentCounts))
	}

	s.TopContributors = topContributors(byAuthor, maxContributors)
	s.IssuesOverTime = overTime(createdByDate)
	s.StateOverTime = stateOverTime(stateByDate)
	s.ActivityHeatmap = heatmapCells(heat)

	return s
}

// mondayFirst maps Go's Sunday-first weekday to the Monday-first index
// the heatmap uses.
func mondayFirst(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

var dayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// median interpolates the middle of an unsorted sample, matching the usual
// average-of-middles convention for even sizes.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func topContributors(byAuthor map[string]int, limit int) []Contributor {
	contributors := make([]Contributor, 0, len(byAuthor))
	for login, count := range byAuthor {
		contributors = append(contributors, Contributor{Login: login, Count: count})
	}
	sort.Slice(contributors, func(a, b int) bool {
		if contributors[a].Count != contributors[b].Count {
			return contributors[a].Count > contributors[b].Count
		}
		return contributors[a].Login < contributors[b].Login
	})
	if len(contributors) > limit {
		contributors = contributors[:limit]
	}
	return contributors
}

func overTime(createdByDate map[string]int) []TimePoint {
	dates := make([]string, 0, len(createdByDate))
	for date := range createdByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]TimePoint, 0, len(dates))
	cumulative := 0
	for _, date := range dates {
		cumulative += createdByDate[date]
		points = append(points, TimePoint{
			Date:       date,
			Count:      createdByDate[date],
			Cumulative: cumulative,
		})
	}
	return points
}

func stateOverTime(stateByDate map[string]*StatePoint) []StatePoint {
	points := make([]StatePoint, 0, len(stateByDate))
	for _, point := range stateByDate {
		points = append(points, *point)
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Date < points[b].Date })
	return points
}

func heatmapCells(heat map[[2]int]int) []HeatmapCell {
	cells := make([]HeatmapCell, 0, len(heat))
	for key, count := range heat {
		cells = append(cells, HeatmapCell{
			Day:      dayNames[key[0]],
			DayIndex: key[0],
			Hour:     key[1],
			Count:    count,
		})
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].DayIndex != cells[b].DayIndex {
			return cells[a].DayIndex < cells[b].DayIndex
		}
		return cells[a].Hour < cells[b].Hour
	})
	return cells
}
