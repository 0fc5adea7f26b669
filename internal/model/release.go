package model

import "time"

// Asset is a downloadable artifact attached to a release.
type Asset struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	DownloadURL string    `json:"download_url"`
	Uploader    RepoOwner `json:"uploader"`
}

// ReleaseSummary is the normalized shape of a published release.
type ReleaseSummary struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name,omitempty"`
	Author      RepoOwner `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description,omitempty"`
	Assets      []Asset   `json:"assets"`
	TarballURL  string    `json:"tarball_url"`
	ZipballURL  string    `json:"zipball_url"`
	HTMLURL     string    `json:"html_url"`
}
