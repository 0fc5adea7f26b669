package discovery

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
	"gitstore/internal/resolve"
	"gitstore/internal/transport"
)

const (
	perPage              = 100
	maxPagesToFetch      = 5
	maxCandidatesPerPage = 50
	maxConcurrentProbes  = 25
	probeTimeout         = 5 * time.Second
	emitEvery            = 3

	// DefaultDesiredCount is how many confirmed repositories one Run
	// aims to deliver before stopping.
	DefaultDesiredCount = 10
)

// Notifier receives out-of-band conditions the pipeline hits while
// searching. Emission to the result channel continues (or ends)
// independently of these signals.
type Notifier interface {
	RateLimited(provider model.Provider, s ratelimit.Snapshot)
	AuthRequired(provider model.Provider)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) RateLimited(model.Provider, ratelimit.Snapshot) {}
func (NopNotifier) AuthRequired(model.Provider)                    {}

// Query describes one discovery run.
type Query struct {
	Platform model.Platform
	Search   resolve.SearchQuery
	// StartPage is the first provider page to fetch, 1-based.
	StartPage int
	// DesiredCount caps how many confirmed repositories to collect;
	// zero means DefaultDesiredCount.
	DesiredCount int
}

// Pipeline searches a provider for repositories whose latest stable
// release ships an installer for the requested platform. Results stream
// out in small batches as probes confirm them.
type Pipeline struct {
	resolver      resolve.Resolver
	notifier      Notifier
	requireAuth   bool
	authenticated func() bool
}

type PipelineOption func(*Pipeline)

// WithAuthGate makes Run refuse to search while authenticated() is
// false, signalling AuthRequired instead. GitLab instances reject
// anonymous search, so their pipelines carry this gate.
func WithAuthGate(authenticated func() bool) PipelineOption {
	return func(p *Pipeline) {
		p.requireAuth = true
		p.authenticated = authenticated
	}
}

func WithNotifier(n Notifier) PipelineOption {
	return func(p *Pipeline) { p.notifier = n }
}

func NewPipeline(resolver resolve.Resolver, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver: resolver,
		notifier: NopNotifier{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the discovery and returns the batch stream. The channel
// closes when the run finishes, fails, or ctx is cancelled; a cancelled
// run closes without a trailing batch.
func (p *Pipeline) Run(ctx context.Context, q Query) <-chan model.PaginatedBatch {
	out := make(chan model.PaginatedBatch)
	go func() {
		defer close(out)
		p.run(ctx, q, out)
	}()
	return out
}

func (p *Pipeline) run(ctx context.Context, q Query, out chan<- model.PaginatedBatch) {
	provider := p.resolver.Provider()

	if q.StartPage < 1 {
		q.StartPage = 1
	}
	desired := q.DesiredCount
	if desired <= 0 {
		desired = DefaultDesiredCount
	}

	if p.requireAuth && !p.authenticated() {
		log.Info("search requires sign-in", "provider", provider)
		p.notifier.AuthRequired(provider)
		emit(ctx, out, model.PaginatedBatch{
			Items:         []model.RepositorySummary{},
			HasMore:       false,
			NextPageIndex: q.StartPage,
		})
		return
	}

	match := InstallerAssetMatcher(q.Platform)
	var results []model.RepositorySummary
	page := q.StartPage
	pagesFetched := 0
	lastEmitted := 0

	for len(results) < desired && pagesFetched < maxPagesToFetch {
		if ctx.Err() != nil {
			return
		}

		items, _, err := p.resolver.SearchPage(ctx, q.Search, page, perPage)
		if err != nil {
			p.reportSearchError(provider, err)
			break
		}

		log.Debug("search page fetched", "provider", provider, "page", page, "items", len(items))
		if len(items) == 0 {
			break
		}
		rawCount := len(items)
		tailStars := items[rawCount-1].StarCount

		candidates := p.selectCandidates(q, items)
		p.probeAndEmit(ctx, candidates, match, &results, &lastEmitted, page, desired, out)
		if ctx.Err() != nil {
			return
		}

		if len(results) >= desired || rawCount < perPage {
			break
		}
		// Star-ordered pages only get worse; once the tail drops under
		// the floor there is nothing left to find.
		if q.Search.MinStars > 0 && q.Search.Sort == resolve.SortStars && tailStars < q.Search.MinStars {
			break
		}

		page++
		pagesFetched++
	}

	p.emitFinal(ctx, out, results, lastEmitted, page, pagesFetched, desired)
}

// selectCandidates applies the star floor, drops non-positive scores and
// caps the page's probe load. Candidates keep their page order.
func (p *Pipeline) selectCandidates(q Query, items []model.RepositorySummary) []model.RepositorySummary {
	candidates := make([]model.RepositorySummary, 0, maxCandidatesPerPage)
	for _, item := range items {
		if item.StarCount < q.Search.MinStars {
			continue
		}
		if PlatformScore(q.Platform, &item) <= 0 {
			continue
		}
		candidates = append(candidates, item)
		if len(candidates) == maxCandidatesPerPage {
			break
		}
	}
	return candidates
}

// probeAndEmit checks candidates for installer assets with a bounded
// fan-out and collects hits in launch order, emitting a batch every few
// confirmations. Reaching desired cancels the remaining probes.
func (p *Pipeline) probeAndEmit(
	ctx context.Context,
	candidates []model.RepositorySummary,
	match func(string) bool,
	results *[]model.RepositorySummary,
	lastEmitted *int,
	page, desired int,
	out chan<- model.PaginatedBatch,
) {
	if len(candidates) == 0 {
		return
	}
	log.Debug("probing candidates", "provider", p.resolver.Provider(), "count", len(candidates))

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(maxConcurrentProbes)
	hits := make([]chan bool, len(candidates))
	for i := range candidates {
		hits[i] = make(chan bool, 1)
		go func(repo model.RepositorySummary, hit chan<- bool) {
			if err := sem.Acquire(probeCtx, 1); err != nil {
				hit <- false
				return
			}
			defer sem.Release(1)

			tctx, tcancel := context.WithTimeout(probeCtx, probeTimeout)
			defer tcancel()

			ok, err := p.resolver.HasInstallerAsset(tctx, &repo, match)
			if err != nil {
				log.Trace("installer probe failed", "repo", repo.FullName, "error", err)
			}
			hit <- err == nil && ok
		}(candidates[i], hits[i])
	}

	// Await in launch order so emitted batches follow the provider's
	// ranking even when probes finish out of order.
	for i := range candidates {
		var ok bool
		select {
		case ok = <-hits[i]:
		case <-ctx.Done():
			return
		}
		if !ok {
			continue
		}

		*results = append(*results, candidates[i])
		log.Debug("installer confirmed", "repo", candidates[i].FullName, "have", len(*results), "want", desired)

		if len(*results)%emitEvery == 0 || len(*results) >= desired {
			fresh := (*results)[*lastEmitted:]
			if len(fresh) > 0 {
				if !emit(ctx, out, model.PaginatedBatch{
					Items:         append([]model.RepositorySummary(nil), fresh...),
					HasMore:       true,
					NextPageIndex: page + 1,
				}) {
					return
				}
				*lastEmitted = len(*results)
			}
		}
		if len(*results) >= desired {
			return
		}
	}
}

func (p *Pipeline) emitFinal(
	ctx context.Context,
	out chan<- model.PaginatedBatch,
	results []model.RepositorySummary,
	lastEmitted, page, pagesFetched, desired int,
) {
	if len(results) > lastEmitted {
		hasMore := pagesFetched < maxPagesToFetch && len(results) >= desired
		next := page
		if hasMore {
			next = page + 1
		}
		emit(ctx, out, model.PaginatedBatch{
			Items:         append([]model.RepositorySummary(nil), results[lastEmitted:]...),
			HasMore:       hasMore,
			NextPageIndex: next,
		})
		return
	}
	if len(results) == 0 {
		emit(ctx, out, model.PaginatedBatch{
			Items:         []model.RepositorySummary{},
			HasMore:       false,
			NextPageIndex: page,
		})
	}
}

func (p *Pipeline) reportSearchError(provider model.Provider, err error) {
	var rle *transport.RateLimitError
	if errors.As(err, &rle) {
		log.Warn("search rate limited", "provider", provider)
		p.notifier.RateLimited(provider, rle.Snapshot)
		return
	}
	if errors.Is(err, transport.ErrAuthRequired) {
		log.Warn("search rejected without credentials", "provider", provider)
		p.notifier.AuthRequired(provider)
		return
	}
	log.Error("search page failed", "provider", provider, "error", err)
}

func emit(ctx context.Context, out chan<- model.PaginatedBatch, b model.PaginatedBatch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
