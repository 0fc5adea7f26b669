package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitstore/internal/model"
	"gitstore/internal/resolve"
)

func TestCategoryQueryGitHub(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

	q := CategoryQuery(CategoryTrending, model.ProviderGitHub, model.PlatformAndroid, now)
	assert.Equal(t, "stars:>500 archived:false pushed:>=2026-08-23 topic:android", q.Terms)
	assert.Equal(t, resolve.SortStars, q.Sort)
	assert.Zero(t, q.MinStars)

	q = CategoryQuery(CategoryNew, model.ProviderGitHub, model.PlatformLinux, now)
	assert.Equal(t, "stars:>5 archived:false created:>=2026-07-31 topic:linux", q.Terms)
	assert.Equal(t, resolve.SortCreated, q.Sort)

	q = CategoryQuery(CategoryUpdated, model.ProviderGitHub, model.PlatformWindows, now)
	assert.Equal(t, "stars:>50 archived:false pushed:>=2026-08-27 topic:desktop", q.Terms)
	assert.Equal(t, resolve.SortUpdated, q.Sort)
}

func TestCategoryQueryGitLab(t *testing.T) {
	now := time.Now()

	q := CategoryQuery(CategoryTrending, model.ProviderGitLab, model.PlatformLinux, now)
	assert.Equal(t, "linux", q.Terms)
	assert.Equal(t, resolve.SortStars, q.Sort)
	assert.Equal(t, 100, q.MinStars)

	q = CategoryQuery(CategoryNew, model.ProviderGitLab, model.PlatformAndroid, now)
	assert.Equal(t, resolve.SortCreated, q.Sort)
	assert.Equal(t, 5, q.MinStars)

	q = CategoryQuery(CategoryUpdated, model.ProviderGitLab, model.PlatformMacOS, now)
	assert.Equal(t, resolve.SortUpdated, q.Sort)
	assert.Equal(t, 50, q.MinStars)
}

func TestUserSearchQuery(t *testing.T) {
	q := UserSearchQuery(model.ProviderGitHub, model.PlatformAndroid, "music player", resolve.SortStars)
	assert.Equal(t, "music player topic:android", q.Terms)
	assert.Equal(t, resolve.SortStars, q.Sort)

	q = UserSearchQuery(model.ProviderGitLab, model.PlatformAndroid, "music player", resolve.SortBestMatch)
	assert.Equal(t, "music player", q.Terms, "gitlab search cannot take topic qualifiers")
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"trending", "new", "updated"} {
		c, err := ParseCategory(s)
		require.NoError(t, err)
		assert.Equal(t, Category(s), c)
	}
	_, err := ParseCategory("hot")
	assert.Error(t, err)
}
