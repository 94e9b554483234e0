package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/poagraph/poagraph/pkg/align"
	"github.com/poagraph/poagraph/pkg/cache"
	"github.com/poagraph/poagraph/pkg/dot"
	"github.com/poagraph/poagraph/pkg/gfa"
	"github.com/poagraph/poagraph/pkg/graphio"
	"github.com/poagraph/poagraph/pkg/msa"
	"github.com/poagraph/poagraph/pkg/observability"
	"github.com/poagraph/poagraph/pkg/poa"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options, though each graph still needs external
// write serialization.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// GraphHash returns the content hash of a graph. Derived artifacts are
// cached under this hash, and stored graphs record it as their digest.
func GraphHash(g *poa.Graph) (string, error) {
	data, err := graphio.MarshalGraph(g)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// Build runs the complete align → thread pipeline for every input and
// returns the finished graph.
func (r *Runner) Build(ctx context.Context, inputs []Input, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	g := poa.New()
	result := &Result{Graph: g}

	for _, in := range inputs {
		add, err := r.AddSequence(ctx, g, in, opts)
		if err != nil {
			return nil, err
		}
		result.Added = append(result.Added, add)
		result.Stats.AlignTime += add.AlignTime
		result.Stats.ThreadTime += add.ThreadTime
	}

	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	if hash, err := GraphHash(g); err == nil {
		result.GraphHash = hash
	}

	r.Logger.Info("built graph",
		"sequences", len(inputs),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"align", result.Stats.AlignTime,
		"thread", result.Stats.ThreadTime)

	return result, nil
}

// AddSequence aligns one sequence against the graph and threads it in.
// The first sequence of an empty graph is threaded directly without
// alignment. An empty input name is replaced by "seq_N" where N is the
// sequence's ordinal position in the graph.
func (r *Runner) AddSequence(ctx context.Context, g *poa.Graph, in Input, opts Options) (AddResult, error) {
	if err := opts.ValidateForAlign(); err != nil {
		return AddResult{}, err
	}
	r.applyLogger(&opts)

	name := in.Name
	if name == "" {
		name = fmt.Sprintf("seq_%d", g.SequenceCount()+1)
	}
	weight := in.Weight
	if weight == 0 {
		weight = DefaultWeight
	}

	var res AddResult
	var pairs []poa.AlignedPair

	if g.SequenceCount() > 0 {
		start := time.Now()
		observability.Pipeline().OnAlignStart(ctx, name, len(in.Residues), g.NodeCount())
		alignment, err := align.Align(g, in.Residues, opts.Scoring())
		res.AlignTime = time.Since(start)
		observability.Pipeline().OnAlignComplete(ctx, name, alignment.Score, res.AlignTime, err)
		if err != nil {
			return AddResult{}, err
		}
		res.Score = alignment.Score
		res.Aligned = true
		pairs = alignment.Pairs

		opts.Logger.Debug("aligned sequence",
			"name", name,
			"score", alignment.Score,
			"duration", res.AlignTime)
	}

	if err := ctx.Err(); err != nil {
		return AddResult{}, err
	}

	start := time.Now()
	observability.Pipeline().OnThreadStart(ctx, name, weight)
	seq, err := g.ThreadSequence(name, in.Residues, weight, pairs)
	res.ThreadTime = time.Since(start)
	observability.Pipeline().OnThreadComplete(ctx, name, g.NodeCount(), res.ThreadTime, err)
	if err != nil {
		return AddResult{}, err
	}
	res.Sequence = seq

	opts.Logger.Debug("threaded sequence",
		"name", name,
		"nodes", g.NodeCount(),
		"duration", res.ThreadTime)

	return res, nil
}

// MSAWithCacheInfo builds the multiple sequence alignment with caching and
// returns cache hit info.
func (r *Runner) MSAWithCacheInfo(ctx context.Context, g *poa.Graph) (msa.Alignment, bool, error) {
	graphHash, err := GraphHash(g)
	if err != nil {
		return msa.Alignment{}, false, err
	}
	cacheKey := r.Keyer.MSAKey(graphHash)

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		var cached msa.Alignment
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "msa")
			return cached, true, nil // Cache hit
		}
		// If deserialization fails, fall through to rebuild
	}
	observability.Cache().OnCacheMiss(ctx, "msa")

	start := time.Now()
	observability.Pipeline().OnEmitStart(ctx, "msa")
	result, err := msa.Build(g)
	if err != nil {
		observability.Pipeline().OnEmitComplete(ctx, "msa", 0, time.Since(start), err)
		return msa.Alignment{}, false, err
	}

	// Cache the result
	data, err := json.Marshal(result)
	if err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLMSA)
		observability.Cache().OnCacheSet(ctx, "msa", len(data))
	}
	observability.Pipeline().OnEmitComplete(ctx, "msa", len(data), time.Since(start), nil)

	return result, false, nil // Cache miss
}

// MSA is a convenience wrapper that calls MSAWithCacheInfo and discards the
// cache hit info.
func (r *Runner) MSA(ctx context.Context, g *poa.Graph) (msa.Alignment, error) {
	result, _, err := r.MSAWithCacheInfo(ctx, g)
	return result, err
}

// GFAWithCacheInfo serializes the graph to GFA with caching and returns
// cache hit info.
func (r *Runner) GFAWithCacheInfo(ctx context.Context, g *poa.Graph) ([]byte, bool, error) {
	graphHash, err := GraphHash(g)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.GFAKey(graphHash)

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "gfa")
		return data, true, nil // Cache hit
	}
	observability.Cache().OnCacheMiss(ctx, "gfa")

	start := time.Now()
	observability.Pipeline().OnEmitStart(ctx, "gfa")
	data, err := gfa.MarshalGraph(g)
	observability.Pipeline().OnEmitComplete(ctx, "gfa", len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLGFA)
	observability.Cache().OnCacheSet(ctx, "gfa", len(data))

	return data, false, nil // Cache miss
}

// GFA is a convenience wrapper that calls GFAWithCacheInfo and discards the
// cache hit info.
func (r *Runner) GFA(ctx context.Context, g *poa.Graph) ([]byte, error) {
	data, _, err := r.GFAWithCacheInfo(ctx, g)
	return data, err
}

// RenderWithCacheInfo renders the graph with caching and returns cache hit
// info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *poa.Graph, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	format, err := dot.ParseFormat(opts.Format)
	if err != nil {
		return nil, false, err
	}

	graphHash, err := GraphHash(g)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.RenderKey(graphHash, opts.RenderKeyOpts())

	// Try cache first
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "render")
		return data, true, nil // Cache hit
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	start := time.Now()
	observability.Pipeline().OnEmitStart(ctx, string(format))
	data, err := dot.Render(g, dot.Options{Detailed: opts.Detailed}, format)
	observability.Pipeline().OnEmitComplete(ctx, string(format), len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRender)
	observability.Cache().OnCacheSet(ctx, "render", len(data))

	return data, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *poa.Graph, opts Options) ([]byte, error) {
	data, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return data, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
