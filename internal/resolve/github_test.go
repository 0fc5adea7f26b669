package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
	"gitstore/internal/transport"
)

func newGitHubResolver(srv *httptest.Server) *GitHub {
	return NewGitHub(transport.NewClient(model.ProviderGitHub, srv.URL, ratelimit.NewTracker()))
}

func TestGitHubRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/signal/signal-android", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 42,
			"name": "signal-android",
			"full_name": "signal/signal-android",
			"owner": {"id": 7, "login": "signal", "avatar_url": "https://a/7", "html_url": "https://github.com/signal"},
			"description": "A private messenger",
			"html_url": "https://github.com/signal/signal-android",
			"stargazers_count": 25000,
			"forks_count": 6000,
			"open_issues_count": 120,
			"language": "Kotlin",
			"topics": ["android", "messenger"],
			"updated_at": "2026-08-20T12:00:00Z",
			"default_branch": "main"
		}`))
	}))
	defer srv.Close()

	repo, err := newGitHubResolver(srv).Repository(context.Background(), "signal/signal-android")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderGitHub, repo.Provider)
	assert.Equal(t, int64(42), repo.ID)
	assert.Equal(t, "signal/signal-android", repo.FullName)
	assert.Equal(t, "signal", repo.Owner.Login)
	assert.Equal(t, 25000, repo.StarCount)
	assert.Equal(t, "Kotlin", repo.Language)
	assert.Equal(t, []string{"android", "messenger"}, repo.Topics)
	assert.Equal(t, "https://github.com/signal/signal-android/releases", repo.ReleasesURL)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.Equal(t, 2026, repo.UpdatedAt.Year())
}

func TestGitHubRepositoryByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repositories/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 42, "full_name": "o/r", "owner": {}, "html_url": "https://github.com/o/r"}`))
	}))
	defer srv.Close()

	repo, err := newGitHubResolver(srv).RepositoryByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "o/r", repo.FullName)
}

func TestGitHubLatestRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/o/r/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 9,
			"tag_name": "v1.2.0",
			"name": "1.2.0",
			"author": {"id": 7, "login": "maintainer"},
			"published_at": "2026-08-01T10:00:00Z",
			"body": "Fixes.\r\n<details><summary>log</summary>x</details>",
			"assets": [
				{"id": 1, "name": "app-release.apk", "content_type": "application/vnd.android.package-archive", "size": 52428800, "browser_download_url": "https://dl/app.apk", "uploader": {"login": "maintainer"}}
			],
			"tarball_url": "https://api.github.com/repos/o/r/tarball/v1.2.0",
			"zipball_url": "https://api.github.com/repos/o/r/zipball/v1.2.0",
			"html_url": "https://github.com/o/r/releases/tag/v1.2.0"
		}`))
	}))
	defer srv.Close()

	repo := &model.RepositorySummary{FullName: "o/r"}
	rel, err := newGitHubResolver(srv).LatestRelease(context.Background(), repo)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, "v1.2.0", rel.TagName)
	assert.Equal(t, "Fixes.", rel.Description, "notes are cleaned")
	require.Len(t, rel.Assets, 1)
	assert.Equal(t, "app-release.apk", rel.Assets[0].Name)
	assert.Equal(t, int64(52428800), rel.Assets[0].SizeBytes)
}

func TestGitHubLatestReleaseMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rel, err := newGitHubResolver(srv).LatestRelease(context.Background(), &model.RepositorySummary{FullName: "o/r"})
	require.NoError(t, err, "no releases is a normal state")
	assert.Nil(t, rel)
}

func TestGitHubReadmeRewritesRelativeLinks(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/o/r/readme":
			_, _ = w.Write([]byte(`{"download_url": "` + srv.URL + `/raw/README.md"}`))
		case "/raw/README.md":
			_, _ = w.Write([]byte("![logo](assets/logo.png)\n[docs](docs/index.md)"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	repo := &model.RepositorySummary{
		FullName:      "o/r",
		HTMLURL:       "https://github.com/o/r",
		DefaultBranch: "main",
	}
	body, err := newGitHubResolver(srv).Readme(context.Background(), repo)
	require.NoError(t, err)
	assert.Contains(t, body, "https://raw.githubusercontent.com/o/r/main/assets/logo.png")
	assert.Contains(t, body, "https://github.com/o/r/blob/main/docs/index.md")
}

func TestGitHubSearchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/repositories", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "terminal topic:android", q.Get("q"))
		assert.Equal(t, "stars", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "100", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))
		_, _ = w.Write([]byte(`{"total_count": 321, "items": [
			{"id": 1, "full_name": "a/one", "owner": {}, "html_url": "https://github.com/a/one"},
			{"id": 2, "full_name": "b/two", "owner": {}, "html_url": "https://github.com/b/two"}
		]}`))
	}))
	defer srv.Close()

	items, total, err := newGitHubResolver(srv).SearchPage(context.Background(),
		SearchQuery{Terms: "terminal topic:android", Sort: SortStars}, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 321, total)
	require.Len(t, items, 2)
	assert.Equal(t, "a/one", items[0].FullName)
}

func TestGitHubSearchBestMatchOmitsSort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`{"total_count": 0, "items": []}`))
	}))
	defer srv.Close()

	_, _, err := newGitHubResolver(srv).SearchPage(context.Background(),
		SearchQuery{Terms: "x", Sort: SortBestMatch}, 1, 100)
	require.NoError(t, err)
}

func TestGitHubHasInstallerAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/o/r/releases", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"tag_name": "v2-rc1", "author": {}, "prerelease": true,
			 "assets": [{"name": "app-rc.apk"}]},
			{"tag_name": "v1", "author": {},
			 "assets": [{"name": "checksums.txt"}, {"name": "app-arm64.apk"}]}
		]`))
	}))
	defer srv.Close()

	repo := &model.RepositorySummary{FullName: "o/r"}
	g := newGitHubResolver(srv)

	isAPK := func(name string) bool { return len(name) > 4 && name[len(name)-4:] == ".apk" }
	ok, err := g.HasInstallerAsset(context.Background(), repo, isAPK)
	require.NoError(t, err)
	assert.True(t, ok, "prerelease is skipped, stable v1 matches")

	ok, err = g.HasInstallerAsset(context.Background(), repo, func(string) bool { return false })
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGitHubHasInstallerAssetOnlyFirstStableChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"tag_name": "v2", "author": {}, "assets": [{"name": "notes.txt"}]},
			{"tag_name": "v1", "author": {}, "assets": [{"name": "app.apk"}]}
		]`))
	}))
	defer srv.Close()

	repo := &model.RepositorySummary{FullName: "o/r"}
	isAPK := func(name string) bool { return len(name) > 4 && name[len(name)-4:] == ".apk" }
	ok, err := newGitHubResolver(srv).HasInstallerAsset(context.Background(), repo, isAPK)
	require.NoError(t, err)
	assert.False(t, ok, "older releases are not consulted once a stable one is found")
}

func TestGitHubUserProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/octocat", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 583231, "login": "octocat", "name": "The Octocat",
			"avatar_url": "https://a/583231", "html_url": "https://github.com/octocat",
			"followers": 10000, "following": 9, "public_repos": 8,
			"company": "@github", "twitter_username": "octo"
		}`))
	}))
	defer srv.Close()

	u, err := newGitHubResolver(srv).UserProfile(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", u.Login)
	assert.Equal(t, 10000, u.Followers)
	assert.Equal(t, "@github", u.Company)
	assert.Equal(t, "octo", u.Twitter)
}
