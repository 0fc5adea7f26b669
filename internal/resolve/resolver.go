// Package resolve maps provider-specific API payloads onto the
// normalized repository, release and user models shared by the rest of
// the client.
package resolve

import (
	"context"
	"fmt"

	"gitstore/internal/model"
)

// SortBy selects the ordering of search results.
type SortBy string

const (
	SortBestMatch SortBy = "best_match"
	SortStars     SortBy = "stars"
	SortForks     SortBy = "forks"
	SortUpdated   SortBy = "updated"
	SortCreated   SortBy = "created"
)

// ParseSortBy converts a user-supplied string into a SortBy.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(s) {
	case SortBestMatch, SortStars, SortForks, SortUpdated, SortCreated:
		return SortBy(s), nil
	default:
		return "", fmt.Errorf("unknown sort order %q (expected best_match, stars, forks, updated or created)", s)
	}
}

// SearchQuery is a provider-neutral repository search. Terms carries the
// raw query (including GitHub qualifiers); MinStars is a star floor for
// providers whose search API cannot express one, applied by the caller
// on the returned page.
type SearchQuery struct {
	Terms    string
	Sort     SortBy
	MinStars int
}

// Resolver is a provider's read surface. Implementations never panic on
// API failures; everything surfaces as a typed transport error.
type Resolver interface {
	Provider() model.Provider

	// Repository fetches by "owner/name" (GitHub) or full namespace
	// path (GitLab).
	Repository(ctx context.Context, fullName string) (*model.RepositorySummary, error)
	// RepositoryByID fetches by the provider's numeric id.
	RepositoryByID(ctx context.Context, id int64) (*model.RepositorySummary, error)

	// LatestRelease returns the most recent published release, or nil
	// when the repository has none.
	LatestRelease(ctx context.Context, repo *model.RepositorySummary) (*model.ReleaseSummary, error)

	// Readme returns the repository readme as markdown with relative
	// links rewritten to absolute URLs. Empty when no readme exists.
	Readme(ctx context.Context, repo *model.RepositorySummary) (string, error)

	Stats(ctx context.Context, repo *model.RepositorySummary) (*model.RepoStats, error)
	UserProfile(ctx context.Context, username string) (*model.UserProfile, error)

	// SearchPage returns one page of search results plus the total
	// match count when the provider reports one (zero otherwise).
	SearchPage(ctx context.Context, q SearchQuery, page, perPage int) ([]model.RepositorySummary, int, error)

	// HasInstallerAsset reports whether the repository's latest release
	// carries an asset whose name satisfies match.
	HasInstallerAsset(ctx context.Context, repo *model.RepositorySummary, match func(name string) bool) (bool, error)
}
