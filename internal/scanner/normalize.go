// internal/scanner/normalize.go
package scanner

import (
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"repo-atlas/internal/health"
	"repo-atlas/internal/model"
)

const defaultBranch = "main"

// normalizeRepo translates a github.Repository to our internal model.RepoInfo
// and attaches the derived health and activity fields.
// fallbackOwner is used when the payload carries no owner login; languages
// replaces the empty language map when a dedicated fetch supplied one.
func normalizeRepo(r *github.Repository, fallbackOwner string, languages map[string]int, now time.Time) model.RepoInfo {
	owner := r.GetOwner().GetLogin()
	if owner == "" {
		owner = fallbackOwner
	}

	branch := r.GetDefaultBranch()
	if branch == "" {
		branch = defaultBranch
	}

	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	if languages == nil {
		languages = map[string]int{}
	}

	var pushedAt *time.Time
	if r.PushedAt != nil && !r.PushedAt.Time.IsZero() {
		t := r.PushedAt.Time
		pushedAt = &t
	}

	var license *string
	if spdx := r.GetLicense().GetSPDXID(); spdx != "" {
		license = &spdx
	}

	description := nonEmpty(r.Description)
	language := nonEmpty(r.Language)

	score := health.Score(health.Metadata{
		PushedAt:       pushedAt,
		Description:    description,
		License:        license,
		HasIssues:      r.GetHasIssues(),
		OpenIssueCount: r.GetOpenIssuesCount(),
		StarCount:      r.GetStargazersCount(),
		ForkCount:      r.GetForksCount(),
		IsArchived:     r.GetArchived(),
		Topics:         topics,
		Language:       language,
		Size:           r.GetSize(),
	}, now)

	return model.RepoInfo{
		ID:             r.GetID(),
		Name:           r.GetName(),
		FullName:       r.GetFullName(),
		Owner:          owner,
		Description:    description,
		URL:            r.GetHTMLURL(),
		CloneURL:       r.GetCloneURL(),
		DefaultBranch:  branch,
		Language:       language,
		Languages:      languages,
		Topics:         topics,
		IsPrivate:      r.GetPrivate(),
		IsFork:         r.GetFork(),
		IsArchived:     r.GetArchived(),
		IsTemplate:     r.GetIsTemplate(),
		StarCount:      r.GetStargazersCount(),
		ForkCount:      r.GetForksCount(),
		OpenIssueCount: r.GetOpenIssuesCount(),
		WatcherCount:   r.GetWatchersCount(),
		Size:           r.GetSize(),
		CreatedAt:      r.GetCreatedAt().Time,
		UpdatedAt:      r.GetUpdatedAt().Time,
		PushedAt:       pushedAt,
		License:        license,
		HasIssues:      r.GetHasIssues(),
		HasProjects:    r.GetHasProjects(),
		HasWiki:        r.GetHasWiki(),
		HasPages:       r.GetHasPages(),

		HealthScore:       score.Score,
		HealthGrade:       score.Grade,
		DaysSinceLastPush: health.DaysSince(pushedAt, now),
		ActivityLevel:     health.Activity(pushedAt, now),
	}
}

// toCommitInfo keeps the subject line of the message and resolves the author
// from the commit record, then the linked account, then "unknown".
func toCommitInfo(c *github.RepositoryCommit) model.CommitInfo {
	message, _, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")

	author := c.GetCommit().GetAuthor().GetName()
	if author == "" {
		author = c.GetAuthor().GetLogin()
	}
	if author == "" {
		author = "unknown"
	}

	var date string
	if d := c.GetCommit().GetAuthor().GetDate(); !d.Time.IsZero() {
		date = d.Time.UTC().Format(time.RFC3339)
	}

	return model.CommitInfo{
		SHA:     c.GetSHA(),
		Message: message,
		Author:  author,
		Date:    date,
		URL:     c.GetHTMLURL(),
	}
}

func toBranchInfo(b *github.Branch) model.BranchInfo {
	return model.BranchInfo{
		Name:        b.GetName(),
		IsProtected: b.GetProtected(),
		CommitSHA:   b.GetCommit().GetSHA(),
	}
}

func toContributorInfo(c *github.Contributor) model.ContributorInfo {
	login := c.GetLogin()
	if login == "" {
		login = "unknown"
	}
	return model.ContributorInfo{
		Login:         login,
		AvatarURL:     c.GetAvatarURL(),
		Contributions: c.GetContributions(),
	}
}

// nonEmpty treats an empty string the same as an absent one.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
