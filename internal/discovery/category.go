package discovery

import (
	"fmt"
	"time"

	"gitstore/internal/model"
	"gitstore/internal/resolve"
)

// Category is one of the curated home feeds.
type Category string

const (
	CategoryTrending Category = "trending"
	CategoryNew      Category = "new"
	CategoryUpdated  Category = "updated"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryTrending, CategoryNew, CategoryUpdated:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q (expected trending, new or updated)", s)
	}
}

// CategoryQuery builds the provider search backing a home category.
// GitHub categories are expressed as search qualifiers plus a platform
// topic; GitLab search cannot express date or star qualifiers, so those
// become an ordering plus a client-side star floor.
func CategoryQuery(cat Category, provider model.Provider, platform model.Platform, now time.Time) resolve.SearchQuery {
	if provider == model.ProviderGitLab {
		q := resolve.SearchQuery{Terms: PlatformSearchTerm(platform)}
		switch cat {
		case CategoryNew:
			q.Sort = resolve.SortCreated
			q.MinStars = 5
		case CategoryUpdated:
			q.Sort = resolve.SortUpdated
			q.MinStars = 50
		default:
			q.Sort = resolve.SortStars
			q.MinStars = 100
		}
		return q
	}

	day := func(d int) string {
		return now.UTC().AddDate(0, 0, -d).Format("2006-01-02")
	}
	topic := PlatformSearchTerm(platform)

	switch cat {
	case CategoryNew:
		return resolve.SearchQuery{
			Terms: fmt.Sprintf("stars:>5 archived:false created:>=%s topic:%s", day(30), topic),
			Sort:  resolve.SortCreated,
		}
	case CategoryUpdated:
		return resolve.SearchQuery{
			Terms: fmt.Sprintf("stars:>50 archived:false pushed:>=%s topic:%s", day(3), topic),
			Sort:  resolve.SortUpdated,
		}
	default:
		return resolve.SearchQuery{
			Terms: fmt.Sprintf("stars:>500 archived:false pushed:>=%s topic:%s", day(7), topic),
			Sort:  resolve.SortStars,
		}
	}
}

// UserSearchQuery builds the provider search for free-text terms. The
// platform topic narrows GitHub results; GitLab relies on scoring and
// probing alone.
func UserSearchQuery(provider model.Provider, platform model.Platform, terms string, sort resolve.SortBy) resolve.SearchQuery {
	if provider == model.ProviderGitLab {
		return resolve.SearchQuery{Terms: terms, Sort: sort}
	}
	return resolve.SearchQuery{
		Terms: fmt.Sprintf("%s topic:%s", terms, PlatformSearchTerm(platform)),
		Sort:  sort,
	}
}
