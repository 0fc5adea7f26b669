package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gitstore/internal/model"
	"gitstore/internal/transport"
)

// GitHub resolves against the GitHub REST API v3.
type GitHub struct {
	client *transport.Client
}

func NewGitHub(client *transport.Client) *GitHub {
	return &GitHub{client: client}
}

func (g *GitHub) Provider() model.Provider {
	return model.ProviderGitHub
}

type ghOwner struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

type ghRepo struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Owner           ghOwner  `json:"owner"`
	Description     string   `json:"description"`
	HTMLURL         string   `json:"html_url"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	OpenIssuesCount int      `json:"open_issues_count"`
	Language        string   `json:"language"`
	Topics          []string `json:"topics"`
	UpdatedAt       string   `json:"updated_at"`
	DefaultBranch   string   `json:"default_branch"`
}

type ghAsset struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	ContentType        string  `json:"content_type"`
	Size               int64   `json:"size"`
	BrowserDownloadURL string  `json:"browser_download_url"`
	Uploader           ghOwner `json:"uploader"`
}

type ghRelease struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Author      ghOwner   `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"body"`
	Assets      []ghAsset `json:"assets"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	TarballURL  string    `json:"tarball_url"`
	ZipballURL  string    `json:"zipball_url"`
	HTMLURL     string    `json:"html_url"`
}

type ghUser struct {
	ID              int64  `json:"id"`
	Login           string `json:"login"`
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	AvatarURL       string `json:"avatar_url"`
	HTMLURL         string `json:"html_url"`
	Followers       int    `json:"followers"`
	Following       int    `json:"following"`
	PublicRepos     int    `json:"public_repos"`
	Location        string `json:"location"`
	Company         string `json:"company"`
	Blog            string `json:"blog"`
	TwitterUsername string `json:"twitter_username"`
}

type ghReadme struct {
	DownloadURL string `json:"download_url"`
}

type ghSearchResult struct {
	TotalCount int      `json:"total_count"`
	Items      []ghRepo `json:"items"`
}

func (r ghRepo) toModel() model.RepositorySummary {
	updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	return model.RepositorySummary{
		Provider: model.ProviderGitHub,
		ID:       r.ID,
		Name:     r.Name,
		FullName: r.FullName,
		Owner: model.RepoOwner{
			ID:         r.Owner.ID,
			Login:      r.Owner.Login,
			AvatarURL:  r.Owner.AvatarURL,
			ProfileURL: r.Owner.HTMLURL,
		},
		Description:   r.Description,
		HTMLURL:       r.HTMLURL,
		StarCount:     r.StargazersCount,
		ForkCount:     r.ForksCount,
		Language:      r.Language,
		Topics:        r.Topics,
		ReleasesURL:   r.HTMLURL + "/releases",
		UpdatedAt:     updated,
		DefaultBranch: r.DefaultBranch,
	}
}

func ghOwnerToModel(o ghOwner) model.RepoOwner {
	return model.RepoOwner{
		ID:         o.ID,
		Login:      o.Login,
		AvatarURL:  o.AvatarURL,
		ProfileURL: o.HTMLURL,
	}
}

func (r ghRelease) toModel() model.ReleaseSummary {
	assets := make([]model.Asset, 0, len(r.Assets))
	for _, a := range r.Assets {
		assets = append(assets, model.Asset{
			ID:          a.ID,
			Name:        a.Name,
			ContentType: a.ContentType,
			SizeBytes:   a.Size,
			DownloadURL: a.BrowserDownloadURL,
			Uploader:    ghOwnerToModel(a.Uploader),
		})
	}
	return model.ReleaseSummary{
		ID:          r.ID,
		TagName:     r.TagName,
		Name:        r.Name,
		Author:      ghOwnerToModel(r.Author),
		PublishedAt: r.PublishedAt,
		Description: CleanReleaseNotes(r.Body),
		Assets:      assets,
		TarballURL:  r.TarballURL,
		ZipballURL:  r.ZipballURL,
		HTMLURL:     r.HTMLURL,
	}
}

func (g *GitHub) Repository(ctx context.Context, fullName string) (*model.RepositorySummary, error) {
	repo, err := transport.Do[ghRepo](ctx, g.client, "/repos/"+fullName, nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	m := repo.toModel()
	return &m, nil
}

func (g *GitHub) RepositoryByID(ctx context.Context, id int64) (*model.RepositorySummary, error) {
	repo, err := transport.Do[ghRepo](ctx, g.client, "/repositories/"+strconv.FormatInt(id, 10), nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	m := repo.toModel()
	return &m, nil
}

func (g *GitHub) LatestRelease(ctx context.Context, repo *model.RepositorySummary) (*model.ReleaseSummary, error) {
	rel, err := transport.Do[ghRelease](ctx, g.client, fmt.Sprintf("/repos/%s/releases/latest", repo.FullName), nil, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	m := rel.toModel()
	return &m, nil
}

func (g *GitHub) Readme(ctx context.Context, repo *model.RepositorySummary) (string, error) {
	meta, err := transport.Do[ghReadme](ctx, g.client, fmt.Sprintf("/repos/%s/readme", repo.FullName), nil, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if meta.DownloadURL == "" {
		return "", nil
	}
	body, err := transport.DoText(ctx, g.client, meta.DownloadURL, nil, transport.CallOptions{})
	if err != nil {
		return "", err
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	rawBase := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s", repo.FullName, branch)
	blobBase := fmt.Sprintf("%s/blob/%s", repo.HTMLURL, branch)
	return RewriteRelativeURLs(body, rawBase, blobBase), nil
}

func (g *GitHub) Stats(ctx context.Context, repo *model.RepositorySummary) (*model.RepoStats, error) {
	r, err := transport.Do[ghRepo](ctx, g.client, "/repos/"+repo.FullName, nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	return &model.RepoStats{
		Stars:      r.StargazersCount,
		Forks:      r.ForksCount,
		OpenIssues: r.OpenIssuesCount,
	}, nil
}

func (g *GitHub) UserProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	u, err := transport.Do[ghUser](ctx, g.client, "/users/"+url.PathEscape(username), nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{
		ID:          u.ID,
		Login:       u.Login,
		Name:        u.Name,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		ProfileURL:  u.HTMLURL,
		Followers:   u.Followers,
		Following:   u.Following,
		PublicRepos: u.PublicRepos,
		Location:    u.Location,
		Company:     u.Company,
		Blog:        u.Blog,
		Twitter:     u.TwitterUsername,
	}, nil
}

func (g *GitHub) SearchPage(ctx context.Context, q SearchQuery, page, perPage int) ([]model.RepositorySummary, int, error) {
	query := url.Values{
		"q":        {q.Terms},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
	// best match is GitHub's default ordering; sending no sort keeps it
	switch q.Sort {
	case SortStars, SortForks, SortUpdated, SortCreated:
		query.Set("sort", string(q.Sort))
		query.Set("order", "desc")
	}

	res, err := transport.Do[ghSearchResult](ctx, g.client, "/search/repositories", query, transport.CallOptions{})
	if err != nil {
		return nil, 0, err
	}
	items := make([]model.RepositorySummary, 0, len(res.Items))
	for _, r := range res.Items {
		items = append(items, r.toModel())
	}
	return items, res.TotalCount, nil
}

// HasInstallerAsset scans the most recent releases for a stable one
// (not draft, not prerelease) and matches its asset names.
func (g *GitHub) HasInstallerAsset(ctx context.Context, repo *model.RepositorySummary, match func(string) bool) (bool, error) {
	path := fmt.Sprintf("/repos/%s/releases", repo.FullName)
	releases, err := transport.Do[[]ghRelease](ctx, g.client, path, url.Values{"per_page": {"10"}}, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, rel := range releases {
		if rel.Draft || rel.Prerelease {
			continue
		}
		for _, a := range rel.Assets {
			if match(a.Name) {
				return true, nil
			}
		}
		break
	}
	return false, nil
}

func isNotFound(err error) bool {
	var he *transport.HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}
