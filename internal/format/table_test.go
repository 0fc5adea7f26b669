package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
)

func TestRepoTable(t *testing.T) {
	repos := []model.RepositorySummary{
		{
			FullName:    "signal/signal-android",
			StarCount:   25430,
			Language:    "Kotlin",
			Description: "A private messenger for Android with end to end encryption everywhere",
			UpdatedAt:   time.Now().Add(-3 * time.Hour),
		},
		{
			FullName:  "tiny/app",
			StarCount: 12,
		},
	}

	var sb strings.Builder
	RepoTable(&sb, repos, 80)
	out := StripAnsi(sb.String())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3, "header plus one row per repo")
	assert.Contains(t, lines[0], "REPOSITORY")
	assert.Contains(t, lines[1], "signal/signal-android")
	assert.Contains(t, lines[1], "25k")
	assert.Contains(t, lines[1], "Kotlin")
	assert.Contains(t, lines[2], "tiny/app")

	for _, line := range lines {
		assert.LessOrEqual(t, DisplayWidth(line), 80, "rows fit the terminal")
	}
}

func TestRepoTableEmpty(t *testing.T) {
	var sb strings.Builder
	RepoTable(&sb, nil, 80)
	assert.Empty(t, sb.String())
}

func TestWriteRelease(t *testing.T) {
	rel := &model.ReleaseSummary{
		TagName:     "v1.2.0",
		Name:        "Release 1.2.0",
		Author:      model.RepoOwner{Login: "maintainer"},
		PublishedAt: time.Now().Add(-48 * time.Hour),
		Description: "Bug fixes.",
		Assets: []model.Asset{
			{Name: "app.apk", SizeBytes: 52428800, DownloadURL: "https://dl/app.apk"},
		},
		TarballURL: "https://x/tar",
		ZipballURL: "https://x/zip",
	}

	var sb strings.Builder
	WriteRelease(&sb, rel)
	out := StripAnsi(sb.String())

	assert.Contains(t, out, "v1.2.0")
	assert.Contains(t, out, "maintainer")
	assert.Contains(t, out, "Bug fixes.")
	assert.Contains(t, out, "app.apk")
	assert.Contains(t, out, "50.0 MB")
	assert.Contains(t, out, "https://x/tar")
}

func TestWriteProfile(t *testing.T) {
	u := &model.UserProfile{
		Login:     "octocat",
		Name:      "The Octocat",
		Followers: 10000,
		Location:  "San Francisco",
	}

	var sb strings.Builder
	WriteProfile(&sb, u)
	out := StripAnsi(sb.String())

	assert.Contains(t, out, "The Octocat (octocat)")
	assert.Contains(t, out, "followers 10000")
	assert.Contains(t, out, "San Francisco")
}

func TestWriteRateLimit(t *testing.T) {
	var sb strings.Builder
	WriteRateLimit(&sb, ratelimit.Snapshot{
		Provider:  model.ProviderGitHub,
		Limit:     60,
		Remaining: 42,
		ResetAt:   time.Now().Add(time.Hour),
		Resource:  "search",
	})
	out := StripAnsi(sb.String())
	assert.Contains(t, out, "github")
	assert.Contains(t, out, "42/60 remaining")
	assert.Contains(t, out, "(search)")

	sb.Reset()
	WriteRateLimit(&sb, ratelimit.Snapshot{
		Provider:  model.ProviderGitLab,
		Limit:     500,
		Remaining: 0,
		ResetAt:   time.Now().Add(10 * time.Minute),
	})
	assert.Contains(t, StripAnsi(sb.String()), "exhausted")
}
