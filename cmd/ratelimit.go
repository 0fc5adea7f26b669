package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"gitstore/internal/format"
	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/transport"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Check API rate limit status",
		Long:  `Display the current API quota for each provider, including remaining requests and reset time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRateLimit(cmd, args, opts)
		},
	}
}

func runRateLimit(cmd *cobra.Command, _ []string, opts *Options) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	for _, p := range model.Providers() {
		refreshQuota(ctx, rt, p)
		s, ok := rt.tracker.Current(p)
		if !ok {
			fmt.Printf("%-8s no rate limit data\n", p)
			continue
		}
		format.WriteRateLimit(os.Stdout, s)
	}
	return nil
}

// refreshQuota issues one cheap request so the tracker holds a current
// snapshot. GitHub's rate_limit endpoint does not count against quota;
// GitLab has no equivalent, so a minimal project listing stands in.
func refreshQuota(ctx context.Context, rt *runtime, p model.Provider) {
	c := rt.transports[p]

	var err error
	switch p {
	case model.ProviderGitHub:
		_, err = transport.Do[json.RawMessage](ctx, c, "rate_limit", nil, transport.CallOptions{})
	case model.ProviderGitLab:
		_, err = transport.Do[json.RawMessage](ctx, c, "projects",
			url.Values{"per_page": {"1"}}, transport.CallOptions{})
	}
	if err != nil {
		log.Debug("quota probe failed", "provider", p, "error", err)
	}
}
