package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gitstore/internal/format"
	"gitstore/internal/log"
	"gitstore/internal/model"
)

// NewCmdRepo creates the repo command.
func NewCmdRepo(opts *Options) *cobra.Command {
	var byID bool

	cmd := &cobra.Command{
		Use:   "repo <owner/name>",
		Short: "Show repository details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepo(cmd, args, opts, byID)
		},
	}

	cmd.Flags().BoolVar(&byID, "id", false, "Treat the argument as the provider's numeric repository id")
	return cmd
}

func runRepo(cmd *cobra.Command, args []string, opts *Options, byID bool) error {
	ctx := cmd.Context()

	rt, r, err := lookupRepo(cmd, args[0], opts, byID)
	if err != nil {
		return err
	}
	defer rt.close()

	// Refresh the counters; search results can be hours stale.
	if stats, err := rt.resolver(r.Provider).Stats(ctx, r); err == nil {
		r.StarCount = stats.Stars
		r.ForkCount = stats.Forks
	} else {
		log.Debug("could not refresh repository stats", "error", err)
	}

	format.WriteRepoDetails(os.Stdout, r)
	return nil
}

// NewCmdRelease creates the release command.
func NewCmdRelease(opts *Options) *cobra.Command {
	var byID bool

	cmd := &cobra.Command{
		Use:   "release <owner/name>",
		Short: "Show the latest release of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, args, opts, byID)
		},
	}

	cmd.Flags().BoolVar(&byID, "id", false, "Treat the argument as the provider's numeric repository id")
	return cmd
}

func runRelease(cmd *cobra.Command, args []string, opts *Options, byID bool) error {
	ctx := cmd.Context()

	rt, r, err := lookupRepo(cmd, args[0], opts, byID)
	if err != nil {
		return err
	}
	defer rt.close()

	rel, err := rt.resolver(r.Provider).LatestRelease(ctx, r)
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Printf("%s has no published releases.\n", r.FullName)
		return nil
	}

	format.WriteRelease(os.Stdout, rel)
	return nil
}

// NewCmdReadme creates the readme command.
func NewCmdReadme(opts *Options) *cobra.Command {
	var byID bool

	cmd := &cobra.Command{
		Use:   "readme <owner/name>",
		Short: "Print a repository readme as markdown",
		Long: `Prints the repository readme with relative links rewritten to absolute
URLs, so it renders outside the repository.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReadme(cmd, args, opts, byID)
		},
	}

	cmd.Flags().BoolVar(&byID, "id", false, "Treat the argument as the provider's numeric repository id")
	return cmd
}

func runReadme(cmd *cobra.Command, args []string, opts *Options, byID bool) error {
	ctx := cmd.Context()

	rt, r, err := lookupRepo(cmd, args[0], opts, byID)
	if err != nil {
		return err
	}
	defer rt.close()

	md, err := rt.resolver(r.Provider).Readme(ctx, r)
	if err != nil {
		return err
	}
	if md == "" {
		fmt.Printf("%s has no readme.\n", r.FullName)
		return nil
	}

	fmt.Println(md)
	return nil
}

// NewCmdUser creates the user command.
func NewCmdUser(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "user <username>",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUser(cmd, args, opts)
		},
	}
}

func runUser(cmd *cobra.Command, args []string, opts *Options) error {
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

	u, err := rt.resolver(provider).UserProfile(ctx, args[0])
	if err != nil {
		return err
	}

	format.WriteProfile(os.Stdout, u)
	return nil
}

// lookupRepo wires the runtime and resolves the positional repository
// argument, by full name or numeric id. Callers own rt.close() on
// success.
func lookupRepo(cmd *cobra.Command, arg string, opts *Options, byID bool) (*runtime, *model.RepositorySummary, error) {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	provider, err := rt.provider(opts)
	if err != nil {
		rt.close()
		return nil, nil, err
	}
	resolver := rt.resolver(provider)

	var r *model.RepositorySummary
	if byID {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			rt.close()
			return nil, nil, fmt.Errorf("invalid repository id %q", arg)
		}
		r, err = resolver.RepositoryByID(ctx, id)
		if err != nil {
			rt.close()
			return nil, nil, err
		}
	} else {
		r, err = resolver.Repository(ctx, arg)
		if err != nil {
			rt.close()
			return nil, nil, err
		}
	}

	return rt, r, nil
}
