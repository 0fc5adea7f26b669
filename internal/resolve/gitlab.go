package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitstore/internal/model"
	"gitstore/internal/transport"
)

// GitLab resolves against the GitLab REST API v4 of a configured
// instance. Releases carry no archive or web URLs in the API payload,
// so those are synthesized from the project web URL and tag.
type GitLab struct {
	client *transport.Client
}

func NewGitLab(client *transport.Client) *GitLab {
	return &GitLab{client: client}
}

func (g *GitLab) Provider() model.Provider {
	return model.ProviderGitLab
}

type glNamespace struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	AvatarURL string `json:"avatar_url"`
	WebURL    string `json:"web_url"`
}

type glProject struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Path              string      `json:"path"`
	PathWithNamespace string      `json:"path_with_namespace"`
	Namespace         glNamespace `json:"namespace"`
	Description       string      `json:"description"`
	WebURL            string      `json:"web_url"`
	StarCount         int         `json:"star_count"`
	ForksCount        int         `json:"forks_count"`
	OpenIssuesCount   int         `json:"open_issues_count"`
	Topics            []string    `json:"topics"`
	LastActivityAt    time.Time   `json:"last_activity_at"`
	DefaultBranch     string      `json:"default_branch"`
	ReadmeURL         string      `json:"readme_url"`
}

type glUser struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	AvatarURL  string `json:"avatar_url"`
	WebURL     string `json:"web_url"`
	Followers  int    `json:"followers"`
	Following  int    `json:"following"`
	Location   string `json:"location"`
	Org        string `json:"organization"`
	WebsiteURL string `json:"website_url"`
	Twitter    string `json:"twitter"`
}

type glReleaseAuthor struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	WebURL    string `json:"web_url"`
}

type glAssetLink struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	LinkType string `json:"link_type"`
}

type glRelease struct {
	Name        string          `json:"name"`
	TagName     string          `json:"tag_name"`
	Description string          `json:"description"`
	ReleasedAt  time.Time       `json:"released_at"`
	Upcoming    bool            `json:"upcoming_release"`
	Author      glReleaseAuthor `json:"author"`
	Assets      struct {
		Links []glAssetLink `json:"links"`
	} `json:"assets"`
}

func (p glProject) toModel() model.RepositorySummary {
	// GitLab keeps the language breakdown behind a separate endpoint,
	// so Language stays empty here.
	return model.RepositorySummary{
		Provider: model.ProviderGitLab,
		ID:       p.ID,
		Name:     p.Name,
		FullName: p.PathWithNamespace,
		Owner: model.RepoOwner{
			ID:         p.Namespace.ID,
			Login:      p.Namespace.Path,
			AvatarURL:  p.Namespace.AvatarURL,
			ProfileURL: p.Namespace.WebURL,
		},
		Description:   p.Description,
		HTMLURL:       p.WebURL,
		StarCount:     p.StarCount,
		ForkCount:     p.ForksCount,
		Topics:        p.Topics,
		ReleasesURL:   p.WebURL + "/-/releases",
		UpdatedAt:     p.LastActivityAt,
		DefaultBranch: p.DefaultBranch,
	}
}

func (g *GitLab) releaseToModel(repo *model.RepositorySummary, r glRelease) model.ReleaseSummary {
	assets := make([]model.Asset, 0, len(r.Assets.Links))
	for _, l := range r.Assets.Links {
		assets = append(assets, model.Asset{
			ID:          l.ID,
			Name:        l.Name,
			ContentType: l.LinkType,
			DownloadURL: l.URL,
		})
	}
	archive := fmt.Sprintf("%s/-/archive/%s/%s-%s", repo.HTMLURL, r.TagName, repo.Name, r.TagName)
	return model.ReleaseSummary{
		TagName: r.TagName,
		Name:    r.Name,
		Author: model.RepoOwner{
			ID:         r.Author.ID,
			Login:      r.Author.Username,
			AvatarURL:  r.Author.AvatarURL,
			ProfileURL: r.Author.WebURL,
		},
		PublishedAt: r.ReleasedAt,
		Description: CleanReleaseNotes(r.Description),
		Assets:      assets,
		TarballURL:  archive + ".tar.gz",
		ZipballURL:  archive + ".zip",
		HTMLURL:     fmt.Sprintf("%s/-/releases/%s", repo.HTMLURL, r.TagName),
	}
}

func (g *GitLab) project(ctx context.Context, ref string) (*glProject, error) {
	p, err := transport.Do[glProject](ctx, g.client, "/projects/"+ref, nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *GitLab) Repository(ctx context.Context, fullName string) (*model.RepositorySummary, error) {
	p, err := g.project(ctx, url.PathEscape(fullName))
	if err != nil {
		return nil, err
	}
	m := p.toModel()
	return &m, nil
}

func (g *GitLab) RepositoryByID(ctx context.Context, id int64) (*model.RepositorySummary, error) {
	p, err := g.project(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	m := p.toModel()
	return &m, nil
}

func (g *GitLab) LatestRelease(ctx context.Context, repo *model.RepositorySummary) (*model.ReleaseSummary, error) {
	path := fmt.Sprintf("/projects/%d/releases", repo.ID)
	releases, err := transport.Do[[]glRelease](ctx, g.client, path, url.Values{"per_page": {"1"}}, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(releases) == 0 {
		return nil, nil
	}
	m := g.releaseToModel(repo, releases[0])
	return &m, nil
}

func (g *GitLab) Readme(ctx context.Context, repo *model.RepositorySummary) (string, error) {
	// The readme URL only appears on the project payload, and it points
	// at the blob page; the raw variant serves the markdown itself.
	p, err := g.project(ctx, strconv.FormatInt(repo.ID, 10))
	if err != nil {
		return "", err
	}
	if p.ReadmeURL == "" {
		return "", nil
	}
	rawURL := strings.Replace(p.ReadmeURL, "/-/blob/", "/-/raw/", 1)
	body, err := transport.DoText(ctx, g.client, rawURL, nil, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}

	branch := p.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	rawBase := fmt.Sprintf("%s/-/raw/%s", repo.HTMLURL, branch)
	blobBase := fmt.Sprintf("%s/-/blob/%s", repo.HTMLURL, branch)
	return RewriteRelativeURLs(body, rawBase, blobBase), nil
}

func (g *GitLab) Stats(ctx context.Context, repo *model.RepositorySummary) (*model.RepoStats, error) {
	p, err := g.project(ctx, strconv.FormatInt(repo.ID, 10))
	if err != nil {
		return nil, err
	}
	return &model.RepoStats{
		Stars:      p.StarCount,
		Forks:      p.ForksCount,
		OpenIssues: p.OpenIssuesCount,
	}, nil
}

func (g *GitLab) UserProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	matches, err := transport.Do[[]glUser](ctx, g.client, "/users", url.Values{"username": {username}}, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, &transport.HTTPError{StatusCode: 404, Status: "404 user not found"}
	}

	// The lookup payload is thin; the id endpoint carries bio and
	// counters.
	u, err := transport.Do[glUser](ctx, g.client, "/users/"+strconv.FormatInt(matches[0].ID, 10), nil, transport.CallOptions{})
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{
		ID:         u.ID,
		Login:      u.Username,
		Name:       u.Name,
		Bio:        u.Bio,
		AvatarURL:  u.AvatarURL,
		ProfileURL: u.WebURL,
		Followers:  u.Followers,
		Following:  u.Following,
		Location:   u.Location,
		Company:    u.Org,
		Blog:       u.WebsiteURL,
		Twitter:    u.Twitter,
	}, nil
}

func (g *GitLab) SearchPage(ctx context.Context, q SearchQuery, page, perPage int) ([]model.RepositorySummary, int, error) {
	query := url.Values{
		"per_page":   {strconv.Itoa(perPage)},
		"page":       {strconv.Itoa(page)},
		"sort":       {"desc"},
		"visibility": {"public"},
		"archived":   {"false"},
	}
	if q.Terms != "" {
		query.Set("search", q.Terms)
	}
	switch q.Sort {
	case SortStars, SortForks:
		// forks are not a GitLab ordering; stars are the closest proxy
		query.Set("order_by", "star_count")
	case SortUpdated:
		query.Set("order_by", "last_activity_at")
	case SortCreated:
		query.Set("order_by", "created_at")
	default:
		query.Set("order_by", "similarity")
	}

	projects, err := transport.Do[[]glProject](ctx, g.client, "/projects", query, transport.CallOptions{})
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.RepositorySummary, 0, len(projects))
	for _, p := range projects {
		items = append(items, p.toModel())
	}
	// GitLab reports totals in an X-Total header rather than the body;
	// callers treat zero as unknown. MinStars filtering happens in the
	// pipeline, which also needs the unfiltered page tail for its
	// star-sorted early stop.
	return items, 0, nil
}

// HasInstallerAsset scans recent releases for the first one that is not
// flagged upcoming and matches its asset link names.
func (g *GitLab) HasInstallerAsset(ctx context.Context, repo *model.RepositorySummary, match func(string) bool) (bool, error) {
	path := fmt.Sprintf("/projects/%d/releases", repo.ID)
	releases, err := transport.Do[[]glRelease](ctx, g.client, path, url.Values{"per_page": {"10"}}, transport.CallOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, rel := range releases {
		if rel.Upcoming {
			continue
		}
		for _, l := range rel.Assets.Links {
			if match(l.Name) {
				return true, nil
			}
		}
		break
	}
	return false, nil
}
