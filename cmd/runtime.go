package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"

	"gitstore/config"
	"gitstore/internal/appstate"
	"gitstore/internal/auth"
	"gitstore/internal/discovery"
	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
	"gitstore/internal/resolve"
	"gitstore/internal/transport"
)

// runtime bundles the wired client stack: config, sessions, state
// manager, one resolver and one discovery pipeline per provider.
type runtime struct {
	cfg        *config.Config
	tracker    *ratelimit.Tracker
	manager    *appstate.Manager
	transports map[model.Provider]*transport.Client
	resolvers  map[model.Provider]resolve.Resolver
	pipelines  map[model.Provider]*discovery.Pipeline

	drainDone chan struct{}
	closeOnce sync.Once
}

// newRuntime loads configuration, restores persisted sessions and wires
// the transport, resolver and pipeline for both providers.
func newRuntime(ctx context.Context, opts *Options) (*runtime, error) {
	log.Initialize(opts.Verbosity, os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := auth.NewFileStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	ghSession := auth.NewSession(model.ProviderGitHub, store, nil)
	glSession := auth.NewSession(model.ProviderGitLab, store,
		auth.NewOAuthRefresher(cfg.GitLabClientID, cfg.GitLabClientSecret, cfg.GitLabURL))
	if err := ghSession.Load(ctx); err != nil {
		log.Warn("could not restore github session", "error", err)
	}
	if err := glSession.Load(ctx); err != nil {
		log.Warn("could not restore gitlab session", "error", err)
	}

	tracker := ratelimit.NewTracker()
	manager := appstate.NewManager(tracker, ghSession, glSession)
	manager.Start()

	ghTransport := transport.NewClient(model.ProviderGitHub, cfg.GitHubAPIURL(), tracker,
		transport.WithTokenSource(ghSession))
	glTransport := transport.NewClient(model.ProviderGitLab, cfg.GitLabAPIURL(), tracker,
		transport.WithTokenSource(glSession))

	transports := map[model.Provider]*transport.Client{
		model.ProviderGitHub: ghTransport,
		model.ProviderGitLab: glTransport,
	}
	resolvers := map[model.Provider]resolve.Resolver{
		model.ProviderGitHub: resolve.NewGitHub(ghTransport),
		model.ProviderGitLab: resolve.NewGitLab(glTransport),
	}

	// GitLab rejects anonymous project search, so its pipeline is
	// gated on a live session.
	pipelines := map[model.Provider]*discovery.Pipeline{
		model.ProviderGitHub: discovery.NewPipeline(resolvers[model.ProviderGitHub],
			discovery.WithNotifier(manager)),
		model.ProviderGitLab: discovery.NewPipeline(resolvers[model.ProviderGitLab],
			discovery.WithNotifier(manager),
			discovery.WithAuthGate(func() bool { return manager.Authenticated(model.ProviderGitLab) })),
	}

	rt := &runtime{
		cfg:        cfg,
		tracker:    tracker,
		manager:    manager,
		transports: transports,
		resolvers:  resolvers,
		pipelines:  pipelines,
		drainDone:  make(chan struct{}),
	}
	go rt.drainEvents()
	return rt, nil
}

// drainEvents surfaces state-manager events as stderr notices so they
// never interleave with table output on stdout.
func (rt *runtime) drainEvents() {
	defer close(rt.drainDone)
	dim := color.New(color.Faint)
	for e := range rt.manager.Events() {
		switch e.Kind {
		case appstate.EventRateLimited:
			wait := e.Snapshot.TimeUntilReset(time.Now()).Round(time.Second)
			fmt.Fprintln(os.Stderr, dim.Sprintf("%s rate limit exhausted, resets in %s",
				e.Provider.DisplayName(), wait))
		case appstate.EventAuthRequired:
			fmt.Fprintln(os.Stderr, dim.Sprintf("%s requires sign-in, run: gitstore login %s",
				e.Provider.DisplayName(), e.Provider))
		case appstate.EventSignedIn:
			log.Debug("session established", "provider", e.Provider)
		case appstate.EventSignedOut:
			log.Debug("session cleared", "provider", e.Provider)
		}
	}
}

func (rt *runtime) close() {
	rt.closeOnce.Do(func() {
		rt.manager.Close()
		<-rt.drainDone
	})
}

// provider resolves the --provider flag value.
func (rt *runtime) provider(opts *Options) (model.Provider, error) {
	return model.ParseProvider(opts.Provider)
}

// platform resolves the --platform flag, falling back to the configured
// (or detected) platform when the flag is auto.
func (rt *runtime) platform(opts *Options) (model.Platform, error) {
	if opts.Platform != "" && opts.Platform != "auto" {
		return model.ParsePlatform(opts.Platform)
	}
	return rt.cfg.ResolvePlatform()
}

// desiredCount resolves the --count flag against the configured default.
func (rt *runtime) desiredCount(opts *Options) int {
	if opts.Count > 0 {
		return opts.Count
	}
	return rt.cfg.ResultCount
}

func (rt *runtime) resolver(p model.Provider) resolve.Resolver {
	return rt.resolvers[p]
}

func (rt *runtime) pipeline(p model.Provider) *discovery.Pipeline {
	return rt.pipelines[p]
}

// session returns the token session for a provider.
func (rt *runtime) session(p model.Provider) *auth.Session {
	return rt.manager.Session(p)
}

// deviceFlow builds the OAuth device flow for a provider from the
// configured client credentials.
func (rt *runtime) deviceFlow(p model.Provider) (*auth.DeviceFlow, error) {
	switch p {
	case model.ProviderGitHub:
		if rt.cfg.GitHubClientID == "" {
			return nil, fmt.Errorf("github OAuth client not configured. Set github_client_id in %s or the GITHUB_CLIENT_ID environment variable", config.ConfigPath())
		}
		return auth.NewDeviceFlow(p, rt.cfg.GitHubClientID, ""), nil
	case model.ProviderGitLab:
		if rt.cfg.GitLabClientID == "" || rt.cfg.GitLabClientSecret == "" {
			return nil, fmt.Errorf("gitlab OAuth client not configured. Set gitlab_client_id and gitlab_client_secret in %s", config.ConfigPath())
		}
		return auth.NewDeviceFlow(p, rt.cfg.GitLabClientID, rt.cfg.GitLabClientSecret,
			auth.WithBaseURL(rt.cfg.GitLabURL)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
}
