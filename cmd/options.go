package cmd

// Options holds the shared command-line options for the gitstore CLI.
type Options struct {
	Provider  string // which provider to query (github, gitlab)
	Platform  string // installer platform (auto, android, windows, macos, linux)
	Count     int    // repositories to collect per discovery run
	Page      int    // first provider page to fetch, 1-based
	Sort      string // search sort order (best_match, stars, forks, updated, created)
	MinStars  int    // minimum star count for search results
	Verbosity int
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Provider: "github",
		Platform: "auto",
		Page:     1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithProvider selects the provider to query.
func WithProvider(provider string) Option {
	return func(o *Options) {
		o.Provider = provider
	}
}

// WithPlatform sets the installer platform.
func WithPlatform(platform string) Option {
	return func(o *Options) {
		o.Platform = platform
	}
}

// WithCount sets how many repositories a discovery run collects.
func WithCount(count int) Option {
	return func(o *Options) {
		o.Count = count
	}
}

// WithPage sets the first provider page to fetch.
func WithPage(page int) Option {
	return func(o *Options) {
		o.Page = page
	}
}

// WithSort sets the search sort order.
func WithSort(sort string) Option {
	return func(o *Options) {
		o.Sort = sort
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}
