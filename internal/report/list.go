// internal/report/list.go
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"repo-atlas/internal/model"
)

// SortField names a column the repository list can be ordered by.
type SortField string

const (
	SortName        SortField = "name"
	SortHealthScore SortField = "healthScore"
	SortStarCount   SortField = "starCount"
	SortPushedAt    SortField = "pushedAt"
	SortSize        SortField = "size"
)

// Query selects and orders repositories for the list view.
type Query struct {
	Search     string
	Activity   model.ActivityLevel // empty for all
	Private    *bool               // nil for all
	SortBy     SortField
	Descending bool
}

// ParseSortField validates a sort column; empty means SortHealthScore.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case "":
		return SortHealthScore, nil
	case SortName, SortHealthScore, SortStarCount, SortPushedAt, SortSize:
		return f, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", s)
	}
}

// List filters repos by q and returns them sorted. repos is not modified.
func List(repos []model.RepoInfo, q Query) []model.RepoInfo {
	return Sort(Filter(repos, q), q.SortBy, q.Descending)
}

// Filter keeps the repositories matching the search text, activity level
// and visibility of q.
func Filter(repos []model.RepoInfo, q Query) []model.RepoInfo {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]model.RepoInfo, 0, len(repos))
	for _, r := range repos {
		if q.Activity != "" && r.ActivityLevel != q.Activity {
			continue
		}
		if q.Private != nil && r.IsPrivate != *q.Private {
			continue
		}
		if search != "" && !matches(r, search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r model.RepoInfo, search string) bool {
	if strings.Contains(strings.ToLower(r.Name), search) {
		return true
	}
	if r.Description != nil && strings.Contains(strings.ToLower(*r.Description), search) {
		return true
	}
	if r.Language != nil && strings.Contains(strings.ToLower(*r.Language), search) {
		return true
	}
	return slices.ContainsFunc(r.Topics, func(t string) bool {
		return strings.Contains(strings.ToLower(t), search)
	})
}

// Sort returns a sorted copy of repos. Never-pushed repositories sort last
// by pushedAt in either direction.
func Sort(repos []model.RepoInfo, by SortField, desc bool) []model.RepoInfo {
	out := slices.Clone(repos)

	dir := 1
	if desc {
		dir = -1
	}

	slices.SortStableFunc(out, func(a, b model.RepoInfo) int {
		switch by {
		case SortHealthScore:
			return dir * cmp.Compare(a.HealthScore, b.HealthScore)
		case SortStarCount:
			return dir * cmp.Compare(a.StarCount, b.StarCount)
		case SortSize:
			return dir * cmp.Compare(a.Size, b.Size)
		case SortPushedAt:
			switch {
			case a.PushedAt == nil && b.PushedAt == nil:
				return 0
			case a.PushedAt == nil:
				return 1
			case b.PushedAt == nil:
				return -1
			}
			return dir * a.PushedAt.Compare(*b.PushedAt)
		default:
			return dir * cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	})
	return out
}

var csvHeader = []string{
	"name", "fullName", "language", "healthScore", "healthGrade",
	"activityLevel", "starCount", "forkCount", "isPrivate", "pushedAt",
}

// WriteCSV writes repos as CSV with a header row.
func WriteCSV(w io.Writer, repos []model.RepoInfo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range repos {
		language := ""
		if r.Language != nil {
			language = *r.Language
		}
		pushedAt := ""
		if r.PushedAt != nil {
			pushedAt = r.PushedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.Name,
			r.FullName,
			language,
			strconv.Itoa(r.HealthScore),
			string(r.HealthGrade),
			string(r.ActivityLevel),
			strconv.Itoa(r.StarCount),
			strconv.Itoa(r.ForkCount),
			strconv.FormatBool(r.IsPrivate),
			pushedAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
