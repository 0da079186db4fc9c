// internal/model/models.go
package model

import "time"

// Grade is the letter summary of a repository's health score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Grades lists every grade from best to worst.
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}

// ActivityLevel buckets a repository by days since its last push.
type ActivityLevel string

const (
	ActivityActive   ActivityLevel = "active"
	ActivityModerate ActivityLevel = "moderate"
	ActivityStale    ActivityLevel = "stale"
	ActivityDormant  ActivityLevel = "dormant"
)

// ActivityLevels lists every activity level from most to least active.
var ActivityLevels = []ActivityLevel{ActivityActive, ActivityModerate, ActivityStale, ActivityDormant}

// RepoInfo is the normalized view of a GitHub repository.
// HealthScore, HealthGrade, DaysSinceLastPush and ActivityLevel are derived
// from the other fields at scan time.
type RepoInfo struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	FullName       string         `json:"fullName"`
	Owner          string         `json:"owner"`
	Description    *string        `json:"description"`
	URL            string         `json:"url"`
	CloneURL       string         `json:"cloneUrl"`
	DefaultBranch  string         `json:"defaultBranch"`
	Language       *string        `json:"language"`
	Languages      map[string]int `json:"languages"`
	Topics         []string       `json:"topics"`
	IsPrivate      bool           `json:"isPrivate"`
	IsFork         bool           `json:"isFork"`
	IsArchived     bool           `json:"isArchived"`
	IsTemplate     bool           `json:"isTemplate"`
	StarCount      int            `json:"starCount"`
	ForkCount      int            `json:"forkCount"`
	OpenIssueCount int            `json:"openIssueCount"`
	WatcherCount   int            `json:"watcherCount"`
	Size           int            `json:"size"` // KB
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	PushedAt       *time.Time     `json:"pushedAt"`
	License        *string        `json:"license"`
	HasIssues      bool           `json:"hasIssues"`
	HasProjects    bool           `json:"hasProjects"`
	HasWiki        bool           `json:"hasWiki"`
	HasPages       bool           `json:"hasPages"`

	HealthScore       int           `json:"healthScore"`
	HealthGrade       Grade         `json:"healthGrade"`
	DaysSinceLastPush *int          `json:"daysSinceLastPush"`
	ActivityLevel     ActivityLevel `json:"activityLevel"`
}

// ScanResult is one pass over a user's or organization's repositories.
type ScanResult struct {
	Repos          []RepoInfo `json:"repos"`
	TotalCount     int        `json:"totalCount"`
	ScannedAt      time.Time  `json:"scannedAt"`
	Owner          string     `json:"owner"`
	ScanDurationMs int64      `json:"scanDurationMs"`
}

// ScanProgress is reported after each repository of a scan.
// TotalRepos is -1 until pagination is finished.
type ScanProgress struct {
	ReposScanned int    `json:"reposScanned"`
	TotalRepos   int    `json:"totalRepos"`
	CurrentRepo  string `json:"currentRepo"`
}

// RepoAnalysis is the detailed view of a single repository.
type RepoAnalysis struct {
	Repo              RepoInfo            `json:"repo"`
	Branches          []BranchInfo        `json:"branches"`
	RecentCommits     []CommitInfo        `json:"recentCommits"`
	Contributors      []ContributorInfo   `json:"contributors"`
	LanguageBreakdown []LanguageBreakdown `json:"languageBreakdown"`
	AnalyzedAt        time.Time           `json:"analyzedAt"`
}

type BranchInfo struct {
	Name        string `json:"name"`
	IsProtected bool   `json:"isProtected"`
	CommitSHA   string `json:"commitSha"`
}

type CommitInfo struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	URL     string `json:"url"`
}

type ContributorInfo struct {
	Login         string `json:"login"`
	AvatarURL     string `json:"avatarUrl"`
	Contributions int    `json:"contributions"`
}

// LanguageBreakdown is one language's share of a repository's bytes.
// Percentage is rounded to one decimal place.
type LanguageBreakdown struct {
	Language   string  `json:"language"`
	Bytes      int     `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// LanguageCount is the number of repositories using a primary language.
type LanguageCount struct {
	Language string `json:"language"`
	Repos    int    `json:"repos"`
}

// Summary aggregates a scan for the dashboard overview.
type Summary struct {
	TotalRepos     int                   `json:"totalRepos"`
	AverageHealth  int                   `json:"averageHealth"`
	TotalStars     int                   `json:"totalStars"`
	PrivateCount   int                   `json:"privateCount"`
	ActiveCount    int                   `json:"activeCount"`
	Grades         map[Grade]int         `json:"grades"`
	Activity       map[ActivityLevel]int `json:"activity"`
	TopLanguages   []LanguageCount       `json:"topLanguages"`
	RecentRepos    []RepoInfo            `json:"recentRepos"`
	Owner          string                `json:"owner"`
	ScannedAt      time.Time             `json:"scannedAt"`
	ScanDurationMs int64                 `json:"scanDurationMs"`
}
