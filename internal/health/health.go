// internal/health/health.go
package health

import (
	"time"
	"unicode/utf8"

	"repo-atlas/internal/model"
)

const day = 24 * time.Hour

// Metadata is the subset of repository fields the health score depends on.
type Metadata struct {
	PushedAt       *time.Time
	Description    *string
	License        *string
	HasIssues      bool
	OpenIssueCount int
	StarCount      int
	ForkCount      int
	IsArchived     bool
	Topics         []string
	Language       *string
	Size           int // KB
}

// Result is a computed health score and its grade.
type Result struct {
	Score int         `json:"score"`
	Grade model.Grade `json:"grade"`
}

// Score computes the 0-100 health score of a repository as of now.
func Score(m Metadata, now time.Time) Result {
	score := 0

	// Activity, 0-30.
	if days := DaysSince(m.PushedAt, now); days != nil {
		switch d := *days; {
		case d <= 7:
			score += 30
		case d <= 30:
			score += 25
		case d <= 90:
			score += 15
		case d <= 365:
			score += 5
		}
	}

	// Documentation, 0-20.
	if m.Description != nil && utf8.RuneCountInString(*m.Description) > 10 {
		score += 10
	}
	if len(m.Topics) > 0 {
		score += 5
	}
	if m.License != nil && *m.License != "" {
		score += 5
	}

	// Community, 0-20.
	if m.StarCount > 0 {
		score += min(10, m.StarCount)
	}
	if m.ForkCount > 0 {
		score += min(5, m.ForkCount)
	}
	if m.HasIssues {
		score += 5
	}

	// Code quality signals, 0-20.
	if m.Language != nil && *m.Language != "" {
		score += 5
	}
	if m.Size > 0 && m.Size < 500000 {
		score += 5
	}
	if !m.IsArchived {
		score += 5
	}
	if m.OpenIssueCount < 50 {
		score += 5
	}

	if m.IsArchived {
		score = max(0, score-20)
	}
	score = min(100, max(0, score))

	return Result{Score: score, Grade: GradeFor(score)}
}

// GradeFor maps a score to its letter grade.
func GradeFor(score int) model.Grade {
	switch {
	case score >= 80:
		return model.GradeA
	case score >= 60:
		return model.GradeB
	case score >= 40:
		return model.GradeC
	case score >= 20:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// DaysSince returns the number of whole days between pushedAt and now,
// or nil when the repository has never been pushed to.
func DaysSince(pushedAt *time.Time, now time.Time) *int {
	if pushedAt == nil {
		return nil
	}
	// Pushes stamped after now (clock skew) count as today.
	days := int(max(0, now.Sub(*pushedAt)) / day)
	return &days
}

// Activity classifies a repository by days since its last push.
// The buckets (7/30/180 days) are independent of the scoring table above.
func Activity(pushedAt *time.Time, now time.Time) model.ActivityLevel {
	days := DaysSince(pushedAt, now)
	if days == nil {
		return model.ActivityDormant
	}
	switch d := *days; {
	case d <= 7:
		return model.ActivityActive
	case d <= 30:
		return model.ActivityModerate
	case d <= 180:
		return model.ActivityStale
	default:
		return model.ActivityDormant
	}
}
