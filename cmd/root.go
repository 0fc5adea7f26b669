package cmd

import (
	"github.com/spf13/cobra"

	"gitstore/internal/discovery"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := &Options{Provider: "github", Platform: "auto", Page: 1}

	rootCmd := &cobra.Command{
		Use:   "gitstore",
		Short: "App store for GitHub and GitLab releases",
		Long: `Browse and search GitHub and GitLab for repositories whose latest
release ships an installer for your platform.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategory(cmd, discovery.CategoryTrending, opts)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringVar(&opts.Provider, "provider", "github", "Provider to query (github, gitlab)")
	rootCmd.PersistentFlags().StringVar(&opts.Platform, "platform", "auto", "Installer platform (auto, android, windows, macos, linux)")

	// Add browse flags to root so `gitstore` and `gitstore trending` work identically
	addBrowseFlags(rootCmd, opts)

	rootCmd.AddCommand(NewCmdTrending(opts))
	rootCmd.AddCommand(NewCmdNew(opts))
	rootCmd.AddCommand(NewCmdUpdated(opts))
	rootCmd.AddCommand(NewCmdSearch(opts))
	rootCmd.AddCommand(NewCmdRepo(opts))
	rootCmd.AddCommand(NewCmdRelease(opts))
	rootCmd.AddCommand(NewCmdReadme(opts))
	rootCmd.AddCommand(NewCmdUser(opts))
	rootCmd.AddCommand(NewCmdLogin(opts))
	rootCmd.AddCommand(NewCmdLogout(opts))
	rootCmd.AddCommand(NewCmdRateLimit(opts))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
