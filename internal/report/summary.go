// internal/report/summary.go
package report

import (
	"cmp"
	"math"
	"slices"
	"time"

	"repo-atlas/internal/model"
)

const (
	topLanguageLimit = 8
	recentRepoLimit  = 5
)

// Summarize aggregates a scan into the dashboard overview.
func Summarize(result *model.ScanResult) model.Summary {
	summary := model.Summary{
		Grades:       make(map[model.Grade]int, len(model.Grades)),
		Activity:     make(map[model.ActivityLevel]int, len(model.ActivityLevels)),
		TopLanguages: []model.LanguageCount{},
		RecentRepos:  []model.RepoInfo{},
	}
	for _, g := range model.Grades {
		summary.Grades[g] = 0
	}
	for _, a := range model.ActivityLevels {
		summary.Activity[a] = 0
	}
	if result == nil {
		return summary
	}

	summary.Owner = result.Owner
	summary.ScannedAt = result.ScannedAt
	summary.ScanDurationMs = result.ScanDurationMs
	summary.TotalRepos = len(result.Repos)

	healthTotal := 0
	languages := map[string]int{}
	for _, r := range result.Repos {
		healthTotal += r.HealthScore
		summary.TotalStars += r.StarCount
		if r.IsPrivate {
			summary.PrivateCount++
		}
		if r.ActivityLevel == model.ActivityActive || r.ActivityLevel == model.ActivityModerate {
			summary.ActiveCount++
		}
		summary.Grades[r.HealthGrade]++
		summary.Activity[r.ActivityLevel]++
		if r.Language != nil {
			languages[*r.Language]++
		}
	}

	if summary.TotalRepos > 0 {
		summary.AverageHealth = int(math.Round(float64(healthTotal) / float64(summary.TotalRepos)))
	}

	for lang, n := range languages {
		summary.TopLanguages = append(summary.TopLanguages, model.LanguageCount{Language: lang, Repos: n})
	}
	slices.SortFunc(summary.TopLanguages, func(a, b model.LanguageCount) int {
		if c := cmp.Compare(b.Repos, a.Repos); c != 0 {
			return c
		}
		return cmp.Compare(a.Language, b.Language)
	})
	if len(summary.TopLanguages) > topLanguageLimit {
		summary.TopLanguages = summary.TopLanguages[:topLanguageLimit]
	}

	summary.RecentRepos = recentRepos(result.Repos)

	return summary
}

// recentRepos returns the most recently active repositories, newest first.
// A never-pushed repository counts from its last update.
func recentRepos(repos []model.RepoInfo) []model.RepoInfo {
	recent := append([]model.RepoInfo{}, repos...)
	slices.SortStableFunc(recent, func(a, b model.RepoInfo) int {
		return lastActivity(b).Compare(lastActivity(a))
	})
	if len(recent) > recentRepoLimit {
		recent = recent[:recentRepoLimit]
	}
	return recent
}

func lastActivity(r model.RepoInfo) time.Time {
	if r.PushedAt != nil {
		return *r.PushedAt
	}
	return r.UpdatedAt
}
