package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitstore/internal/discovery"
	"gitstore/internal/format"
	"gitstore/internal/resolve"
)

// NewCmdSearch creates the search command.
func NewCmdSearch(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search for repositories with installable releases",
		Long: `Searches the provider for repositories matching your terms, then keeps
only those whose latest release ships an installer for your platform.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sort, "sort", "best_match", "Sort order (best_match, stars, forks, updated, created)")
	cmd.Flags().IntVar(&opts.MinStars, "min-stars", 0, "Minimum star count")
	addBrowseFlags(cmd, opts)
	return cmd
}

func runSearch(cmd *cobra.Command, args []string, opts *Options) error {
	ctx := cmd.Context()

	sort, err := resolve.ParseSortBy(opts.Sort)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	provider, err := rt.provider(opts)
	if err != nil {
		return err
	}
	platform, err := rt.platform(opts)
	if err != nil {
		return err
	}

	search := discovery.UserSearchQuery(provider, platform, strings.Join(args, " "), sort)
	search.MinStars = opts.MinStars

	q := discovery.Query{
		Platform:     platform,
		Search:       search,
		StartPage:    opts.Page,
		DesiredCount: rt.desiredCount(opts),
	}
	return streamResults(ctx, os.Stdout, rt.pipeline(provider), provider, q, format.TermWidth())
}
