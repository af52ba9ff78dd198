package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spreadline/pkg/cache"
	"github.com/matzehuels/spreadline/pkg/contextual"
	"github.com/matzehuels/spreadline/pkg/network"
	"github.com/matzehuels/spreadline/pkg/observability"
	"github.com/matzehuels/spreadline/pkg/render"
	"github.com/matzehuels/spreadline/pkg/render/nodelink"
	"github.com/matzehuels/spreadline/pkg/render/sink"
)

// Result contains the outputs of a runner execution.
type Result struct {
	// Geometry is the fitted layout, the core output contract.
	Geometry *render.Result

	// Network is the constructed egocentric network.
	Network *network.Network

	// Artifacts contains serialized outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
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
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the complete load → center → fit → serialize pipeline with
// caching. Determinism makes the fit cacheable on a content hash of the
// data and every shaping option.
func (r *Runner) Execute(ctx context.Context, data Data, opts Options, cfg Config) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{Artifacts: make(map[string][]byte)}
	result.Stats.RowCount = len(data.Topology)

	dataHash, err := hashData(data)
	if err != nil {
		return nil, err
	}
	fitKey := r.Keyer.FitKey(dataHash, fitKeyOpts(opts, cfg))

	sl := New()
	if err := sl.Load(data); err != nil {
		return nil, err
	}

	centerStart := time.Now()
	observability.Pipeline().OnCenterStart(ctx, opts.Ego)
	err = sl.Center(opts)
	result.Stats.CenterTime = time.Since(centerStart)
	if err != nil {
		observability.Pipeline().OnCenterComplete(ctx, opts.Ego, 0, 0, result.Stats.CenterTime, err)
		return nil, err
	}
	result.Network = sl.Network()
	result.Stats.EntityCount = len(result.Network.Entities)
	result.Stats.SessionCount = len(result.Network.Sessions)
	observability.Pipeline().OnCenterComplete(ctx, opts.Ego,
		result.Stats.EntityCount, result.Stats.SessionCount, result.Stats.CenterTime, nil)

	r.Logger.Info("centered network",
		"ego", opts.Ego,
		"entities", result.Stats.EntityCount,
		"sessions", result.Stats.SessionCount,
		"duration", result.Stats.CenterTime)

	if err := sl.Configure(cfg); err != nil {
		return nil, err
	}

	fitStart := time.Now()
	observability.Pipeline().OnFitStart(ctx, opts.Ego)
	geometry, fitHit, err := r.fitWithCache(ctx, sl, fitKey)
	result.Stats.FitTime = time.Since(fitStart)
	if err != nil {
		observability.Pipeline().OnFitComplete(ctx, opts.Ego, 0, result.Stats.FitTime, err)
		return nil, err
	}
	result.Geometry = geometry
	result.CacheInfo.FitHit = fitHit
	observability.Pipeline().OnFitComplete(ctx, opts.Ego,
		len(geometry.Storylines), result.Stats.FitTime, nil)

	r.Logger.Info("fitted layout",
		"storylines", len(geometry.Storylines),
		"blocks", len(geometry.Blocks),
		"cached", fitHit,
		"duration", result.Stats.FitTime)

	renderStart := time.Now()
	artifacts, artifactHit, err := r.renderWithCache(ctx, sl, geometry, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.ArtifactHit = artifactHit

	r.Logger.Info("serialized outputs",
		"formats", opts.Formats,
		"cached", artifactHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// fitWithCache returns the cached geometry when available, computing and
// storing it otherwise.
func (r *Runner) fitWithCache(ctx context.Context, sl *SpreadLine, key string) (*render.Result, bool, error) {
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var cached render.Result
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "fit")
			return &cached, true, nil
		}
		// Corrupt entry, fall through to recompute.
	}
	observability.Cache().OnCacheMiss(ctx, "fit")

	geometry, err := sl.Fit()
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(geometry); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLFit)
		observability.Cache().OnCacheSet(ctx, "fit", len(data))
	}
	return geometry, false, nil
}

// renderWithCache serializes the requested formats, reusing cached
// artifacts when every format is available.
func (r *Runner) renderWithCache(ctx context.Context, sl *SpreadLine, geometry *render.Result, opts Options) (map[string][]byte, bool, error) {
	fitData, err := json.Marshal(geometry)
	if err != nil {
		return nil, false, err
	}
	fitHash := cache.Hash(fitData)

	palette := paletteHash(sl.data.Colors)
	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(fitHash, cache.ArtifactKeyOpts{Format: format, Palette: palette})
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered, err := r.serialize(sl, geometry, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(fitHash, cache.ArtifactKeyOpts{Format: format, Palette: palette})
		_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return rendered, false, nil
}

// serialize produces every requested artifact from the fitted geometry.
func (r *Runner) serialize(sl *SpreadLine, geometry *render.Result, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		switch format {
		case FormatJSON:
			data, err := sink.RenderJSON(geometry, sink.WithJSONLayout(opts.Layout))
			if err != nil {
				return nil, err
			}
			out[format] = data
		case FormatSVG:
			out[format] = sink.RenderSVG(geometry,
				sink.WithFrame(opts.Width, opts.Height),
				sink.WithColors(sl.data.Colors),
				sink.WithBands(), sink.WithLabels())
		case FormatDOT:
			out[format] = []byte(dotArtifact(sl.Network()))
		}
	}
	return out, nil
}

// dotArtifact exports the most recent qualifying slice as a node-link
// diagram, empty when the network has no sessions.
func dotArtifact(net *network.Network) string {
	if len(net.Sessions) == 0 {
		return ""
	}
	last := net.Sessions[len(net.Sessions)-1]
	return nodelink.ToDOT(net, last.Slice, nodelink.Options{Detailed: true})
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// hashData produces the content hash of the geometry-shaping inputs for
// cache keys.
func hashData(data Data) (string, error) {
	raw, err := json.Marshal(struct {
		Topology   []network.Interaction
		Groups     map[string][network.NumTiers][]string
		Categories map[string]string
		Profiles   []contextual.ProfileRow
	}{data.Topology, data.Groups, data.Categories, data.Profiles})
	if err != nil {
		return "", err
	}
	return cache.Hash(raw), nil
}

// paletteHash identifies the style-only color assignments.
func paletteHash(colors map[string]string) string {
	if len(colors) == 0 {
		return ""
	}
	raw, err := json.Marshal(colors)
	if err != nil {
		return "unhashable"
	}
	return cache.Hash(raw)[:16]
}

// fitKeyOpts folds every geometry-shaping option into the cache key.
func fitKeyOpts(opts Options, cfg Config) cache.FitKeyOpts {
	return cache.FitKeyOpts{
		NetworkKeyOpts: cache.NetworkKeyOpts{
			Ego:       opts.Ego,
			Layout:    opts.Layout,
			RawLayout: opts.RawLayout,
			TimeRange: opts.TimeRange,
			MaxHops:   opts.MaxHops,
		},
		Minimize:            string(cfg.Minimize),
		SqueezeSameCategory: cfg.SqueezeSameCategory,
		BandStretch:         cfg.BandStretch,
		Width:               opts.Width,
		Height:              opts.Height,
		BlockWidth:          opts.BlockWidth,
		ProfileMatch:        string(opts.ProfileMatch),
		NormalizeProfile:    opts.NormalizeProfile,
		CenterProfile:       opts.CenterProfile,
	}
}
