package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, stamped by the release workflow via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo overrides the build metadata. Called from main; empty
// values keep the compiled-in defaults.
func SetVersionInfo(v, c, d string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	if d != "" {
		date = d
	}
}

// NewCmdVersion creates the version command.
func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the gitstore version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gitstore %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
