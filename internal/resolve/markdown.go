package resolve

import (
	"regexp"
	"strings"
)

var (
	// [text](path) and ![alt](path) with a relative path
	mdLinkRe = regexp.MustCompile(`(!?)\[([^\]]*)\]\(\s*([^)\s]+)([^)]*)\)`)
	// <img src="path">
	imgSrcRe = regexp.MustCompile(`(<img[^>]+src=["'])([^"']+)(["'])`)
)

func isAbsoluteRef(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "//") ||
		strings.HasPrefix(ref, "#") ||
		strings.HasPrefix(ref, "mailto:") ||
		strings.HasPrefix(ref, "data:")
}

func joinRef(base, ref string) string {
	ref = strings.TrimPrefix(ref, "./")
	ref = strings.TrimPrefix(ref, "/")
	return base + "/" + ref
}

// RewriteRelativeURLs makes a readme render outside its repository page:
// relative image references are pointed at the raw file host and
// relative links at the blob pages.
func RewriteRelativeURLs(markdown, rawBase, blobBase string) string {
	rawBase = strings.TrimRight(rawBase, "/")
	blobBase = strings.TrimRight(blobBase, "/")

	out := mdLinkRe.ReplaceAllStringFunc(markdown, func(m string) string {
		parts := mdLinkRe.FindStringSubmatch(m)
		bang, text, ref, rest := parts[1], parts[2], parts[3], parts[4]
		if isAbsoluteRef(ref) {
			return m
		}
		base := blobBase
		if bang == "!" {
			base = rawBase
		}
		return bang + "[" + text + "](" + joinRef(base, ref) + rest + ")"
	})

	return imgSrcRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := imgSrcRe.FindStringSubmatch(m)
		prefix, ref, suffix := parts[1], parts[2], parts[3]
		if isAbsoluteRef(ref) {
			return m
		}
		return prefix + joinRef(rawBase, ref) + suffix
	})
}

var (
	detailsBlockRe = regexp.MustCompile(`(?is)<details>.*?</details>`)
	htmlTagRe      = regexp.MustCompile(`(?i)</?(details|summary)[^>]*>`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// CleanReleaseNotes normalizes provider release bodies for display:
// collapsed changelog sections are dropped, stray details/summary tags
// and CR characters removed, and blank-line runs squeezed.
func CleanReleaseNotes(body string) string {
	s := strings.ReplaceAll(body, "\r\n", "\n")
	s = detailsBlockRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
