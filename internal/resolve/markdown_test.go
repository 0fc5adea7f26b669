package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	rawBase  = "https://raw.githubusercontent.com/owner/repo/main"
	blobBase = "https://github.com/owner/repo/blob/main"
)

func TestRewriteRelativeURLs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"relative link",
			"see [docs](docs/usage.md)",
			"see [docs](" + blobBase + "/docs/usage.md)",
		},
		{
			"relative image",
			"![shot](assets/screen.png)",
			"![shot](" + rawBase + "/assets/screen.png)",
		},
		{
			"dot-slash prefix",
			"[guide](./CONTRIBUTING.md)",
			"[guide](" + blobBase + "/CONTRIBUTING.md)",
		},
		{
			"root-relative path",
			"![icon](/img/icon.svg)",
			"![icon](" + rawBase + "/img/icon.svg)",
		},
		{
			"absolute link untouched",
			"[site](https://example.com/page)",
			"[site](https://example.com/page)",
		},
		{
			"anchor untouched",
			"[install](#install)",
			"[install](#install)",
		},
		{
			"html img src",
			`<img src="media/logo.png" width="200">`,
			`<img src="` + rawBase + `/media/logo.png" width="200">`,
		},
		{
			"html img with absolute src untouched",
			`<img src="https://cdn.example.com/x.png">`,
			`<img src="https://cdn.example.com/x.png">`,
		},
		{
			"link with title",
			`[docs](docs/usage.md "User guide")`,
			`[docs](` + blobBase + `/docs/usage.md "User guide")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewriteRelativeURLs(tt.in, rawBase, blobBase))
		})
	}
}

func TestCleanReleaseNotes(t *testing.T) {
	in := "## What's new\r\n\r\nFaster sync.\n\n<details>\n<summary>Full changelog</summary>\nnoise\n</details>\n\n\n\nEnjoy!"
	got := CleanReleaseNotes(in)
	assert.NotContains(t, got, "<details>")
	assert.NotContains(t, got, "noise")
	assert.NotContains(t, got, "\r")
	assert.Contains(t, got, "Faster sync.")
	assert.Contains(t, got, "Enjoy!")
	assert.NotContains(t, got, "\n\n\n")
}

func TestCleanReleaseNotesStraySummaryTags(t *testing.T) {
	got := CleanReleaseNotes("<summary>Open me</summary> rest")
	assert.Equal(t, "Open me rest", got)
}
