// Package analyzer runs the full dependency analysis pipeline over a Godot
// project tree: read project.godot, scan the tree, extract references from
// scenes and scripts in parallel, detect singleton usage, and assemble the
// deduplicated dependency list.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/gdgraph/internal/godot"
	"github.com/dusk-indust/gdgraph/internal/graph"
)

// contentCacheSize bounds the LRU of file bodies shared between the
// extraction and singleton-usage stages.
const contentCacheSize = 1024

// Options configures an analysis run.
type Options struct {
	// Root is the project directory, the one holding project.godot.
	Root string

	// Filters excludes resource kinds from the scan and the edge list.
	Filters graph.Filters

	// Workers bounds extraction parallelism. Zero or negative means one
	// worker per CPU.
	Workers int
}

// Result is the outcome of one analysis run.
type Result struct {
	ProjectName  string
	Root         string
	Inventory    *graph.Inventory
	Dependencies []graph.Dependency
	Singletons   graph.SingletonTable
	Filters      graph.Filters

	// Meta holds the non-edge findings (class names, signals, scene
	// connections) per resource path, for resources where extraction
	// found anything.
	Meta map[string]godot.Extraction
}

// Analyzer drives the analysis pipeline.
type Analyzer struct {
	opts       Options
	extractor  *godot.Extractor
	cache      *lru.Cache[string, []byte]
	onProgress func(ProgressEvent)
}

// New creates an Analyzer. onProgress is called synchronously from pipeline
// goroutines; it may be nil.
func New(opts Options, onProgress func(ProgressEvent)) (*Analyzer, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	cache, err := lru.New[string, []byte](contentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("content cache: %w", err)
	}
	return &Analyzer{
		opts:       opts,
		extractor:  godot.NewExtractor(),
		cache:      cache,
		onProgress: onProgress,
	}, nil
}

// Run executes the pipeline. The returned Result is deterministic for a
// given tree regardless of worker count: extraction output is merged in
// sorted inventory order.
func (a *Analyzer) Run(ctx context.Context) (*Result, error) {
	project, err := runStage(ctx, a, StageConfig, func() (*godot.Project, error) {
		return godot.ReadProject(a.opts.Root)
	})
	if err != nil {
		return nil, err
	}

	inv, err := runStage(ctx, a, StageScan, func() (*graph.Inventory, error) {
		return godot.Scan(a.opts.Root, a.opts.Filters)
	})
	if err != nil {
		return nil, err
	}

	// Singletons are folded into the inventory before extraction so that
	// usage edges always have a target resource, even when the registered
	// script was never scanned.
	a.foldSingletons(inv, project.Singletons)

	meta, deps, err := a.extract(ctx, inv)
	if err != nil {
		return nil, err
	}

	usage, err := runStage(ctx, a, StageAutoloads, func() ([]graph.Dependency, error) {
		return godot.SingletonUsage(project.Singletons, inv, a.readFile), nil
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, usage...)

	assembled, err := runStage(ctx, a, StageAssemble, func() ([]graph.Dependency, error) {
		return graph.Assemble(deps, a.opts.Filters), nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ProjectName:  project.Name,
		Root:         a.opts.Root,
		Inventory:    inv,
		Dependencies: assembled,
		Singletons:   project.Singletons,
		Filters:      a.opts.Filters,
		Meta:         meta,
	}, nil
}

// runStage wraps one sequential pipeline stage with a context check and
// working/complete/failed progress events.
func runStage[T any](ctx context.Context, a *Analyzer, stage Stage, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	a.emit(ProgressEvent{Stage: stage, Status: ProgressWorking})
	out, err := fn()
	if err != nil {
		a.emit(ProgressEvent{Stage: stage, Status: ProgressFailed, Message: err.Error()})
		return zero, err
	}
	a.emit(ProgressEvent{Stage: stage, Status: ProgressComplete})
	return out, nil
}

func (a *Analyzer) foldSingletons(inv *graph.Inventory, singletons graph.SingletonTable) {
	names := make([]string, 0, len(singletons))
	for name := range singletons {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logical := singletons[name]
		disk := filepath.Join(a.opts.Root, filepath.FromSlash(strings.TrimPrefix(logical, "res://")))
		inv.FoldSingleton(name, logical, disk)
	}
}

// extract fans the scene/script resources out over the worker pool. Results
// land in a per-index slice and are merged in order afterwards, so the
// emitted dependency order does not depend on goroutine scheduling. A file
// that cannot be read is logged and skipped; only cancellation aborts the
// stage.
func (a *Analyzer) extract(ctx context.Context, inv *graph.Inventory) (map[string]godot.Extraction, []graph.Dependency, error) {
	var targets []*graph.Resource
	for _, res := range inv.Resources() {
		if a.extractor.CanExtract(res) {
			targets = append(targets, res)
		}
	}

	results := make([]godot.Extraction, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for i, res := range targets {
		a.emit(ProgressEvent{Stage: StageExtract, Path: res.Path, Status: ProgressPending})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.emit(ProgressEvent{Stage: StageExtract, Path: res.Path, Status: ProgressWorking})

			content, err := a.readFile(res.DiskPath)
			if err != nil {
				slog.Default().Warn("skipping unreadable resource", "path", res.Path, "error", err)
				a.emit(ProgressEvent{Stage: StageExtract, Path: res.Path, Status: ProgressFailed, Message: err.Error()})
				return nil
			}

			results[i] = a.extractor.Extract(res, content)
			a.emit(ProgressEvent{Stage: StageExtract, Path: res.Path, Status: ProgressComplete})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	meta := make(map[string]godot.Extraction, len(targets))
	var deps []graph.Dependency
	for i, res := range targets {
		ex := results[i]
		deps = append(deps, ex.Dependencies...)
		if !ex.Empty() {
			meta[res.Path] = ex
		}
	}
	return meta, deps, nil
}

// readFile returns the file body through the shared LRU cache.
func (a *Analyzer) readFile(diskPath string) ([]byte, error) {
	if content, ok := a.cache.Get(diskPath); ok {
		return content, nil
	}
	content, err := os.ReadFile(diskPath)
	if err != nil {
		return nil, err
	}
	a.cache.Add(diskPath, content)
	return content, nil
}

func (a *Analyzer) emit(ev ProgressEvent) {
	if a.onProgress != nil {
		a.onProgress(ev)
	}
}
