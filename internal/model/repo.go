package model

import "time"

// RepoOwner is the owning user or group of a repository.
type RepoOwner struct {
	ID         int64  `json:"id"`
	Login      string `json:"login"`
	AvatarURL  string `json:"avatar_url"`
	ProfileURL string `json:"profile_url"`
}

// RepositorySummary is the normalized shape shared by GitHub repositories
// and GitLab projects.
type RepositorySummary struct {
	Provider      Provider  `json:"provider"`
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         RepoOwner `json:"owner"`
	Description   string    `json:"description,omitempty"`
	HTMLURL       string    `json:"html_url"`
	StarCount     int       `json:"star_count"`
	ForkCount     int       `json:"fork_count"`
	Language      string    `json:"language,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
	ReleasesURL   string    `json:"releases_url"`
	UpdatedAt     time.Time `json:"updated_at"`
	DefaultBranch string    `json:"default_branch"`
}

// UserProfile is a provider user account.
type UserProfile struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url"`
	ProfileURL  string `json:"profile_url"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"public_repos"`
	Location    string `json:"location,omitempty"`
	Company     string `json:"company,omitempty"`
	Blog        string `json:"blog,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
}

// RepoStats are the headline counters for a repository.
type RepoStats struct {
	Stars      int `json:"stars"`
	Forks      int `json:"forks"`
	OpenIssues int `json:"open_issues"`
}
