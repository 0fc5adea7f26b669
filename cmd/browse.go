package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gitstore/internal/discovery"
	"gitstore/internal/format"
	"gitstore/internal/log"
	"gitstore/internal/model"
)

// NewCmdTrending creates the trending command.
func NewCmdTrending(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Browse trending repositories with installable releases (same as root gitstore)",
		Long: `Searches the provider for popular, recently pushed repositories, probes
each candidate's latest release for an installer matching your platform,
and shows the confirmed ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategory(cmd, discovery.CategoryTrending, opts)
		},
	}

	addBrowseFlags(cmd, opts)
	return cmd
}

// NewCmdNew creates the new command.
func NewCmdNew(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Browse recently created repositories with installable releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategory(cmd, discovery.CategoryNew, opts)
		},
	}

	addBrowseFlags(cmd, opts)
	return cmd
}

// NewCmdUpdated creates the updated command.
func NewCmdUpdated(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updated",
		Short: "Browse recently updated repositories with installable releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategory(cmd, discovery.CategoryUpdated, opts)
		},
	}

	addBrowseFlags(cmd, opts)
	return cmd
}

// addBrowseFlags adds the discovery flags shared by the category and
// search commands.
func addBrowseFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "Repositories to collect (default from config)")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "Provider page to start from")
}

func runCategory(cmd *cobra.Command, cat discovery.Category, opts *Options) error {
	ctx := cmd.Context()

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

	q := discovery.Query{
		Platform:     platform,
		Search:       discovery.CategoryQuery(cat, provider, platform, time.Now()),
		StartPage:    opts.Page,
		DesiredCount: rt.desiredCount(opts),
	}
	return streamResults(ctx, os.Stdout, rt.pipeline(provider), provider, q, format.TermWidth())
}

// streamResults runs a discovery query and renders the confirmed
// repositories once the stream finishes. Batches are incremental, so
// every batch's items are accumulated; pagination state comes from the
// last one.
func streamResults(ctx context.Context, w io.Writer, pipe *discovery.Pipeline, provider model.Provider, q discovery.Query, width int) error {
	log.Info("discovering repositories", "provider", provider, "platform", q.Platform)

	var (
		items []model.RepositorySummary
		last  *model.PaginatedBatch
	)
	for batch := range pipe.Run(ctx, q) {
		b := batch
		items = append(items, b.Items...)
		last = &b
		log.Progress("probing releases: %d confirmed...", len(items))
	}
	log.ProgressClear()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No repositories with installable releases found.")
		return nil
	}

	format.RepoTable(w, items, width)
	if last.HasMore {
		fmt.Fprintf(w, "\nMore results available: rerun with --page %d\n", last.NextPageIndex)
	}
	return nil
}
