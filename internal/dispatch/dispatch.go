// Package dispatch routes every discovered project root to the resolver of its
// ecosystem and collects the results.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrarca/dependency-resolver/internal/catalog"
	"github.com/petrarca/dependency-resolver/internal/discovery"
	"github.com/petrarca/dependency-resolver/internal/exclusion"
	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/hashing"
	"github.com/petrarca/dependency-resolver/internal/progress"
	"github.com/petrarca/dependency-resolver/internal/provider"
	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"

	// Import resolvers to trigger init() registration
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/cocoapods"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/golang"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/gradle"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/maven"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/npm"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/nuget"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/php"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/python"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/ruby"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/rust"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/sbt"
	_ "github.com/petrarca/dependency-resolver/internal/resolvers/terraform"
)

// Options configures a Dispatcher
type Options struct {
	// Ecosystems to run, in output order. Nil means the enabled catalog entries.
	Ecosystems []catalog.Ecosystem

	CaseSensitive     bool
	RespectGitignore  bool
	IgnoreSourceFiles bool // also exclude the ecosystem's source files below each resolved root
	Workers           int  // <= 0 means runtime.NumCPU()
	TempDir           string

	Resolver resolver.Options
	Exec     execx.Executor
	Hasher   hashing.Hasher
	Metrics  *Metrics
	Progress *progress.Progress
	Logger   *slog.Logger

	// Lookup finds the resolver of an ecosystem; defaults to the global registry
	Lookup func(id string) (resolver.Resolver, bool)
}

// Dispatcher runs resolvers over project roots
type Dispatcher struct {
	opts   Options
	logger *slog.Logger
}

// job is one (ecosystem, project root) pair; index is its slot in the output
type job struct {
	index    int
	eco      catalog.Ecosystem
	resolver resolver.Resolver
	root     types.ProjectRoot
}

// New creates a dispatcher
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Lookup == nil {
		opts.Lookup = resolver.Get
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Dispatcher{opts: opts, logger: logger}
}

// Resolve discovers project roots below scanRoots and resolves each with the
// resolver of its ecosystem. Results are ordered by ecosystem, scan root and
// project root. A failing resolver yields an empty result carrying the failure
// as a warning; only cancellation aborts the scan, in which case no results
// are returned.
func (d *Dispatcher) Resolve(ctx context.Context, scanRoots, globalExcludes []string) ([]*types.ResolutionResult, error) {
	start := time.Now()
	prog := d.opts.Progress
	prog.ScanStart(scanRoots, globalExcludes)

	ecosystems, err := d.ecosystems()
	if err != nil {
		return nil, err
	}

	tIndex := time.Now()
	index, err := discovery.BuildIndex(ctx, scanRoots, discovery.Options{
		Excludes:         globalExcludes,
		CaseSensitive:    d.opts.CaseSensitive,
		RespectGitignore: d.opts.RespectGitignore,
		Logger:           d.logger,
	})
	if err != nil {
		return nil, err
	}
	prog.IndexBuilt(index.FileCount(), index.DirCount(), time.Since(tIndex))

	jobs, err := d.plan(index, ecosystems)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Planned resolution", "ecosystems", len(ecosystems), "jobs", len(jobs))

	session, err := resolver.NewSession(d.opts.TempDir, d.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Warn("Failed to clean up scan session", "error", err)
		}
	}()

	results := make([]*types.ResolutionResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		j := j
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[j.index] = d.run(gctx, session, j)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		d.logger.Debug("Scan cancelled, discarding results", "error", err)
		return nil, err
	}

	prog.ScanComplete(len(results), time.Since(start))
	return results, nil
}

func (d *Dispatcher) ecosystems() ([]catalog.Ecosystem, error) {
	if d.opts.Ecosystems != nil {
		return d.opts.Ecosystems, nil
	}
	all, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	return catalog.Select(all, catalog.Selection{})
}

// plan matches every ecosystem against the index and groups the matches into
// project roots. Ecosystems without a registered resolver are skipped.
func (d *Dispatcher) plan(index *discovery.Index, ecosystems []catalog.Ecosystem) ([]job, error) {
	var jobs []job
	for _, eco := range ecosystems {
		r, ok := d.opts.Lookup(eco.ID)
		if !ok {
			d.logger.Warn("No resolver registered for ecosystem", "ecosystem", eco.ID)
			d.opts.Progress.Skipped(eco.ID, "no resolver registered")
			continue
		}

		var roots []types.ProjectRoot
		for _, scanRoot := range index.Roots() {
			matches, err := index.Match(scanRoot, eco.Patterns, nil)
			if err != nil {
				return nil, fmt.Errorf("invalid patterns for ecosystem %s: %w", eco.ID, err)
			}
			roots = append(roots, discovery.GroupIntoRoots(matches, scanRoot, eco.Policy())...)
		}
		if len(roots) == 0 {
			d.opts.Progress.Skipped(eco.ID, "no manifests found")
			continue
		}

		d.opts.Progress.ResolverStart(eco.ID, len(roots))
		for _, root := range roots {
			jobs = append(jobs, job{index: len(jobs), eco: eco, resolver: r, root: root})
		}
	}
	return jobs, nil
}

// run resolves one project root. It never fails: errors and panics become an
// empty result with a warning.
func (d *Dispatcher) run(ctx context.Context, session *resolver.Session, j job) *types.ResolutionResult {
	logger := d.logger.With("ecosystem", j.eco.ID, "root", j.root.Path)
	start := time.Now()

	res, err := d.invoke(ctx, session, j, logger)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("Resolution failed", "error", err, "duration", elapsed)
		d.opts.Metrics.Observe(j.eco.ID, elapsed, true)
		d.opts.Progress.ProjectFailed(j.eco.ID, j.root.Path, err.Error(), elapsed)

		res = types.NewResolutionResult(j.resolver.DependencyType(), j.root)
		res.AddWarnings(fmt.Sprintf("%s resolution failed: %v", j.eco.ID, err))
	} else {
		d.opts.Metrics.Observe(j.eco.ID, elapsed, false)
		d.opts.Progress.ProjectResolved(j.eco.ID, j.root.Path, res.DependencyCount(), len(res.Warnings), elapsed)
	}

	// Copy so the resolver's value is left untouched
	final := *res
	final.Excludes = exclusion.Normalize(j.root.ScanRoot, j.root.Path, d.excludePatterns(j.eco))
	return &final
}

func (d *Dispatcher) invoke(ctx context.Context, session *resolver.Session, j job, logger *slog.Logger) (res *types.ResolutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Resolver panic", "panic", r, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("resolver panicked: %v", r)
		}
	}()

	req := &resolver.Request{
		Root:    j.root,
		FS:      provider.NewFSProvider(j.root.Path),
		Exec:    d.opts.Exec,
		Hasher:  d.opts.Hasher,
		Session: session,
		Options: d.opts.Resolver,
		Logger:  logger,
	}
	res, err = j.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = types.NewResolutionResult(j.resolver.DependencyType(), j.root)
	}
	return res, nil
}

// excludePatterns are the patterns, relative to a project root, that a generic
// scan should skip once the root has been resolved
func (d *Dispatcher) excludePatterns(eco catalog.Ecosystem) []string {
	patterns := append([]string(nil), eco.Patterns...)
	if d.opts.IgnoreSourceFiles {
		patterns = append(patterns, eco.SourcePatterns()...)
	}
	return patterns
}
