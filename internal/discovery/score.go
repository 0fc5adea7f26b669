// Package discovery implements the installer-aware repository search:
// paginated provider queries, platform relevance scoring, concurrent
// release probing and incremental batch emission.
package discovery

import (
	"strings"

	"gitstore/internal/model"
)

// Every candidate starts from a positive base so scoring only ever
// ranks; it never filters a candidate out on its own.
const baseScore = 5

var desktopTopics = map[string]bool{
	"desktop":         true,
	"electron":        true,
	"app":             true,
	"gui":             true,
	"compose-desktop": true,
}

var desktopLanguages = map[string]bool{
	"kotlin": true,
	"c++":    true,
	"rust":   true,
	"c#":     true,
	"swift":  true,
	"dart":   true,
}

// PlatformScore rates how likely a repository is to ship installable
// builds for the platform, judging by topics, primary language and
// description.
func PlatformScore(platform model.Platform, repo *model.RepositorySummary) int {
	score := baseScore

	topics := make(map[string]bool, len(repo.Topics))
	for _, t := range repo.Topics {
		topics[strings.ToLower(t)] = true
	}
	language := strings.ToLower(repo.Language)
	desc := strings.ToLower(repo.Description)

	if platform == model.PlatformAndroid {
		if topics["android"] {
			score += 10
		}
		if topics["mobile"] {
			score += 5
		}
		if language == "kotlin" || language == "java" {
			score += 5
		}
		if strings.Contains(desc, "android") || strings.Contains(desc, "apk") {
			score += 3
		}
		return score
	}

	for t := range topics {
		if desktopTopics[t] {
			score += 10
			break
		}
	}
	if topics["cross-platform"] || topics["multiplatform"] {
		score += 8
	}
	if desktopLanguages[language] {
		score += 5
	}
	if strings.Contains(desc, "desktop") || strings.Contains(desc, "application") {
		score += 3
	}
	return score
}

// InstallerAssetMatcher returns the asset-name predicate that decides
// whether a release asset is installable on the platform.
func InstallerAssetMatcher(platform model.Platform) func(name string) bool {
	return func(name string) bool {
		n := strings.ToLower(name)
		switch platform {
		case model.PlatformAndroid:
			return strings.HasSuffix(n, ".apk")
		case model.PlatformWindows:
			return strings.HasSuffix(n, ".msi") || strings.Contains(n, ".exe")
		case model.PlatformMacOS:
			return strings.HasSuffix(n, ".dmg") || strings.HasSuffix(n, ".pkg")
		case model.PlatformLinux:
			return strings.HasSuffix(n, ".appimage") ||
				strings.HasSuffix(n, ".deb") ||
				strings.HasSuffix(n, ".rpm")
		}
		return false
	}
}

// PlatformSearchTerm is the topic used to narrow provider searches to
// the platform. Desktop platforms other than macOS and Linux share the
// generic term.
func PlatformSearchTerm(platform model.Platform) string {
	switch platform {
	case model.PlatformAndroid:
		return "android"
	case model.PlatformMacOS:
		return "macos"
	case model.PlatformLinux:
		return "linux"
	default:
		return "desktop"
	}
}
