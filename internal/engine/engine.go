// Package engine implements the Engine orchestrator (spec.md §4.7): the
// public API a host UI drives, wiring together metadata, chunk loading,
// tiles, the viewport resolver, LOD fallback, region query, and the
// loading tracker into one coherent lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pyramidview/pyramid/internal/cache"
	"github.com/pyramidview/pyramid/internal/camera"
	"github.com/pyramidview/pyramid/internal/colormap"
	"github.com/pyramidview/pyramid/internal/coord"
	"github.com/pyramidview/pyramid/internal/lod"
	"github.com/pyramidview/pyramid/internal/loadtracker"
	"github.com/pyramidview/pyramid/internal/meta"
	"github.com/pyramidview/pyramid/internal/region"
	"github.com/pyramidview/pyramid/internal/selector"
	"github.com/pyramidview/pyramid/internal/store"
	"github.com/pyramidview/pyramid/internal/tile"
	"github.com/pyramidview/pyramid/internal/viewport"
)

// ErrModeInvalid is the ModeInvalid error kind (spec.md §7): mode outside
// {grid, dotgrid, texture}, fatal at construction.
var ErrModeInvalid = errors.New("engine: invalid mode")

// Mode is the render mode the shader contract is built for.
type Mode string

const (
	ModeTexture Mode = "texture"
	ModeGrid    Mode = "grid"
	ModeDotGrid Mode = "dotgrid"
)

// Options is construct-time configuration (spec.md §6's engine public API),
// mirroring the teacher's `tile.Config` / `pmtiles.WriterOptions` pattern:
// one flat struct instead of a long parameter list.
type Options struct {
	Store    meta.Store
	Version  meta.Version
	Variable string
	Loaders  *store.Registry

	Selector selector.Selector
	Clim     [2]float64
	Colormap *colormap.Colormap
	Opacity  float64
	Display  bool
	Mode     Mode

	// Projection overrides the CRS-derived projection when non-empty.
	Projection string
	OrderX     int
	OrderY     int
	Uniforms   map[string]any
	Frag       string

	ViewportWidth    float64
	ViewportHeight   float64
	DevicePixelRatio float64

	ChunkCacheBytes int64 // <=0 computes a budget from system RAM

	// SetMetadata is invoked once metadata resolves (spec.md §4.7).
	SetMetadata func(*meta.Pyramid)
	// Invalidate is called whenever a redraw is needed.
	Invalidate func()
	// InvalidateRegion is called when new tile data may affect an
	// in-flight region query's consumer.
	InvalidateRegion func()
}

// ViewState is the authoritative camera state when supplied to
// UpdateCamera, per spec.md §9's resolved Open Question: when present it
// shadows the separate Center/Zoom fields for that call.
type ViewState struct {
	Center camera.LngLat
	Zoom   float64
}

// CameraUpdate is UpdateCamera's input.
type CameraUpdate struct {
	ViewState *ViewState
	Center    camera.LngLat
	Zoom      float64
}

// Prop is one draw call's worth of data (spec.md §4.7's getProps): a
// substitute tile's buffers plus the level/offset it must be drawn at, ready to hand to a gpu.Allocator as one DrawPass's attributes.
type Prop struct {
	Key     coord.Key
	Buffers map[string][]float64
	Level   int
	Offset  [2]int
}

// Stats is a snapshot of engine internals, useful for the CLI demo and
// tests (spec.md §7 supplemented feature, mirroring the teacher's
// tile.Stats / DiskTileStore.Stats()).
type Stats struct {
	TileCount    int
	ActiveTiles  int
	ChunkCacheN  int
	ChunkCacheKB int64
}

// Engine is the C7 orchestrator. Its mutating methods are driven from a
// single goroutine (the host's render/event loop), exactly as spec.md §5
// describes the "single logical task runner". UpdateCamera and QueryRegion
// fan out one goroutine per tile; each goroutine loads and populates only
// its own tile, whose state is guarded by the tile's own mutex.
type Engine struct {
	opts     Options
	pyramid  *meta.Pyramid
	registry *store.Registry
	chunks   *cache.ChunkCache
	tracker  *loadtracker.Tracker

	projection coord.Kind

	mu       sync.Mutex
	selector selector.Selector
	colormap *colormap.Colormap
	uniforms map[string]any
	opacity  float64
	display  bool
	mode     Mode

	tiles  map[coord.Key]*tile.Tile
	active map[string][]viewport.Offset

	cameraInitialized bool
	level             int
	cameraTile        coord.Key

	viewportWidth    float64
	viewportHeight   float64
	devicePixelRatio float64

	queryStart time.Time
}

// New implements construct(opts) (spec.md §4.7): validates mode, reads
// metadata, resolves the projection, and returns a ready engine. Invalid
// mode/projection/metadata are fatal, surfaced as an error here (the Go
// rendering of the original's fatal metadata/projection future).
func New(opts Options) (*Engine, error) {
	switch opts.Mode {
	case ModeTexture, ModeGrid, ModeDotGrid:
	default:
		return nil, fmt.Errorf("%w: %q", ErrModeInvalid, opts.Mode)
	}
	if opts.OrderX == 0 {
		opts.OrderX = 1
	}
	if opts.OrderY == 0 {
		opts.OrderY = 1
	}
	if opts.DevicePixelRatio <= 0 {
		opts.DevicePixelRatio = 1
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1280
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 720
	}

	tracker := loadtracker.New()
	id := tracker.SetLoading(loadtracker.Metadata)
	pyramid, err := meta.Read(opts.Store, opts.Version, opts.Variable)
	tracker.ClearLoading(id, false)
	if err != nil {
		return nil, fmt.Errorf("engine: construct: %w", err)
	}
	if opts.SetMetadata != nil {
		opts.SetMetadata(pyramid)
	}

	projKind, err := resolveProjection(opts.Projection, pyramid.CRS)
	if err != nil {
		return nil, fmt.Errorf("engine: construct: %w", err)
	}

	byteBudget := opts.ChunkCacheBytes
	if byteBudget <= 0 {
		byteBudget = cache.ComputeByteBudget(cache.DefaultMemoryPressurePercent, false)
	}

	e := &Engine{
		opts:       opts,
		pyramid:    pyramid,
		registry:   opts.Loaders,
		chunks:     cache.New(byteBudget, 0),
		tracker:    tracker,
		projection: projKind,
		selector:   opts.Selector,
		colormap:   opts.Colormap,
		uniforms:   opts.Uniforms,
		opacity:    opts.Opacity,
		display:    opts.Display,
		mode:       opts.Mode,
		tiles:      map[coord.Key]*tile.Tile{},
		active:     map[string][]viewport.Offset{},

		viewportWidth:    opts.ViewportWidth,
		viewportHeight:   opts.ViewportHeight,
		devicePixelRatio: opts.DevicePixelRatio,
	}
	if !e.display {
		e.opacity = 0
	}
	return e, nil
}

// resolveProjection implements spec.md §4.7's projection choice: the
// explicit prop overrides metadata; otherwise CRS mapping applies.
// Invalid projection/CRS combos are fatal (ProjectionInvalid).
func resolveProjection(prop string, crs string) (coord.Kind, error) {
	if prop != "" {
		return coord.ParseKind(prop)
	}
	return coord.KindForCRS(crs)
}

// getOrCreateTile lazily allocates the Tile for a key. The spec describes
// construct() as allocating a Tile "for every (x,y,z)"; a raster pyramid's
// full grid is unbounded (2^z × 2^z per level), so tiles are in practice
// created on first reference — the same set that would ever be asked for —
// rather than eagerly for every theoretical key.
func (e *Engine) getOrCreateTile(key coord.Key) (*tile.Tile, error) {
	e.mu.Lock()
	if t, ok := e.tiles[key]; ok {
		e.mu.Unlock()
		return t, nil
	}
	e.mu.Unlock()

	arrayMeta, ok := e.pyramid.Arrays[key.Level]
	if !ok {
		return nil, fmt.Errorf("engine: no array metadata for level %d", key.Level)
	}
	loader, err := e.registry.Loader(key.Level)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	coords := map[string][]selector.Coord{}
	for dim, axis := range e.pyramid.Axes {
		vals := make([]selector.Coord, len(axis.Values))
		for i, v := range axis.Values {
			vals[i] = v
		}
		coords[dim] = vals
	}

	axes := arrayToAxes(arrayMeta)
	axes.Coords = coords
	t := tile.New(key, e.opts.Variable, axes, coords, e.pyramid.TileSize, e.chunks, loader)

	e.mu.Lock()
	if existing, ok := e.tiles[key]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.tiles[key] = t
	e.mu.Unlock()
	return t, nil
}

func arrayToAxes(a meta.ArrayMeta) selector.Axes {
	spatialX, spatialY := "", ""
	for _, d := range a.Dims {
		switch d {
		case "x", "lon":
			spatialX = d
		case "y", "lat":
			spatialY = d
		}
	}
	return selector.Axes{
		Dims:     a.Dims,
		Shape:    a.Shape,
		Chunks:   a.Chunks,
		SpatialX: spatialX,
		SpatialY: spatialY,
	}
}

// UpdateCamera implements spec.md §4.7's updateCamera: resolves the active
// tile level/set and populates buffers for every newly-active tile,
// fanning out one future per tile via errgroup (the idiomatic replacement
// for the original's Promise.all).
func (e *Engine) UpdateCamera(ctx context.Context, u CameraUpdate) error {
	center, zoom := u.Center, u.Zoom
	if u.ViewState != nil {
		center, zoom = u.ViewState.Center, u.ViewState.Zoom
	}

	level := clampInt(int(math.Floor(zoom)), 0, e.pyramid.MaxZoom)
	tileX, tileY, fracX, fracY := coord.FracTileForKind(center.Lng, center.Lat, level, e.projection)
	cameraTile := coord.Key{Level: level, X: tileX, Y: tileY}

	e.mu.Lock()
	e.level = level
	e.cameraTile = cameraTile
	e.cameraInitialized = true
	sel := e.selector
	vw, vh, dpr := e.viewportWidth, e.viewportHeight, e.devicePixelRatio
	e.mu.Unlock()

	params := viewport.Params{
		CameraTile:       cameraTile,
		CameraFracX:      fracX,
		CameraFracY:      fracY,
		Zoom:             zoom,
		ViewportWidth:    vw,
		ViewportHeight:   vh,
		DevicePixelRatio: dpr,
		OrderX:           e.opts.OrderX,
		OrderY:           e.opts.OrderY,
		Projection:       e.projection,
	}
	active := viewport.Resolve(params)

	g, gctx := errgroup.WithContext(ctx)
	var anyNew atomicBool

	for keyStr := range active {
		keyStr := keyStr
		key, err := coord.ParseKey(keyStr)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		g.Go(func() error {
			t, err := e.getOrCreateTile(key)
			if err != nil {
				return err
			}
			if t.HasPopulatedBuffer(sel) {
				return nil
			}

			axesChunks, err := selector.ChunkSet(sel, t.Axes, key.X, key.Y)
			if err != nil {
				return fmt.Errorf("tile %s: %w", key, err)
			}

			if t.HasLoadedChunks(axesChunks) {
				if err := t.PopulateBuffersSync(sel); err != nil {
					return fmt.Errorf("tile %s: %w", key, err)
				}
				anyNew.set()
				return nil
			}

			loadID := e.tracker.SetLoading(loadtracker.Chunk)
			defer e.tracker.ClearLoading(loadID, false)

			newData, err := t.PopulateBuffers(gctx, axesChunks, sel)
			if err != nil {
				// spec.md §4.7: a single chunk's loader error aborts that
				// tile's populate_buffers future but does not cascade; the
				// tile stays empty so a later camera update retries.
				log.Printf("engine: populate buffers for tile %s: %v", key, err)
				return nil
			}
			if newData && t.HasPopulatedBuffer(sel) {
				anyNew.set()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("engine: update camera: %w", err)
	}

	e.mu.Lock()
	e.active = active
	e.mu.Unlock()

	if anyNew.get() && e.opts.InvalidateRegion != nil {
		e.opts.InvalidateRegion()
	}
	if e.opts.Invalidate != nil {
		e.opts.Invalidate()
	}
	return nil
}

// UpdateViewport records the host's current viewport size/device pixel
// ratio (the `resize` camera event of spec.md §6), used by the next
// UpdateCamera call's viewport resolution.
func (e *Engine) UpdateViewport(width, height, devicePixelRatio float64) {
	e.mu.Lock()
	e.viewportWidth = width
	e.viewportHeight = height
	if devicePixelRatio > 0 {
		e.devicePixelRatio = devicePixelRatio
	}
	e.mu.Unlock()
	if e.opts.Invalidate != nil {
		e.opts.Invalidate()
	}
}

// UpdateSelector implements spec.md §4.7: overwrites the selector and
// invalidates redraw. Buffers whose bufferCache is stale are repopulated
// lazily on the next UpdateCamera tick.
func (e *Engine) UpdateSelector(sel selector.Selector) {
	e.mu.Lock()
	e.selector = sel
	e.mu.Unlock()
	if e.opts.Invalidate != nil {
		e.opts.Invalidate()
	}
}

// UpdateUniforms implements spec.md §4.7: opacity is forced to 0 when
// display is false.
func (e *Engine) UpdateUniforms(display bool, opacity float64, uniforms map[string]any) {
	e.mu.Lock()
	e.display = display
	if !display {
		opacity = 0
	}
	e.opacity = opacity
	e.uniforms = uniforms
	e.mu.Unlock()
	if e.opts.Invalidate != nil {
		e.opts.Invalidate()
	}
}

// UpdateColormap re-uploads the 1-D colormap texture (spec.md §4.7).
func (e *Engine) UpdateColormap(cm *colormap.Colormap) {
	e.mu.Lock()
	e.colormap = cm
	e.mu.Unlock()
	if e.opts.Invalidate != nil {
		e.opts.Invalidate()
	}
}

// GetProps implements spec.md §4.7's getProps: iterates active, applies
// C6's LOD fallback, and emits one Prop per (substitute, adjusted offset),
// suppressing duplicates and entries whose substitute has an overlapping
// coarser ancestor already emitted.
func (e *Engine) GetProps() []Prop {
	e.mu.Lock()
	active := e.active
	sel := e.selector
	e.mu.Unlock()

	tiles := &tileSetAdapter{e: e, sel: sel}

	var rendered []coord.Key
	var props []Prop
	seen := map[string]bool{}

	for keyStr, offsets := range active {
		key, err := coord.ParseKey(keyStr)
		if err != nil {
			continue
		}
		substitutes := lod.KeysToRender(key, tiles, e.pyramid.MaxZoom)

		for _, sub := range substitutes {
			if _, ok := lod.OverlappingAncestor(sub, rendered); ok {
				continue
			}
			t, ok := e.lookupTile(sub)
			if !ok {
				continue
			}
			for _, off := range offsets {
				adj := lod.AdjustedOffset([2]int{off.OX, off.OY}, off.Level, sub)
				dk := fmt.Sprintf("%s|%d,%d", sub, adj[0], adj[1])
				if seen[dk] {
					continue
				}
				seen[dk] = true
				props = append(props, Prop{
					Key:     sub,
					Buffers: t.Buffers(),
					Level:   off.Level,
					Offset:  adj,
				})
			}
			rendered = append(rendered, sub)
		}
	}

	return props
}

type tileSetAdapter struct {
	e   *Engine
	sel selector.Selector
}

func (a *tileSetAdapter) IsBufferPopulated(key coord.Key) bool {
	t, ok := a.e.lookupTile(key)
	if !ok {
		return false
	}
	return t.HasPopulatedBuffer(a.sel)
}

// lookupTile returns an already-created tile for key, if any, under e.mu —
// GetProps and tileSetAdapter both read e.tiles and must see a consistent
// view alongside getOrCreateTile's concurrent inserts.
func (e *Engine) lookupTile(key coord.Key) (*tile.Tile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tiles[key]
	return t, ok
}

// QueryRegion implements spec.md §4.8: enumerate the region's tiles,
// ensure chunks are loaded, and sample every pixel within the radius. A
// later call's result supersedes an earlier in-flight one per the
// queryStart timestamp.
func (e *Engine) QueryRegion(ctx context.Context, r *region.Region, sel selector.Selector) (*region.Result, error) {
	e.mu.Lock()
	if !e.cameraInitialized {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: query region: camera not initialized")
	}
	level := e.level
	e.mu.Unlock()

	startedAt := time.Now()
	e.mu.Lock()
	e.queryStart = startedAt
	e.mu.Unlock()

	arrayMeta, ok := e.pyramid.Arrays[level]
	if !ok {
		return nil, fmt.Errorf("engine: query region: no array metadata for level %d", level)
	}
	axes := arrayToAxes(arrayMeta)
	axes.Coords = map[string][]selector.Coord{}
	for dim, axis := range e.pyramid.Axes {
		for _, v := range axis.Values {
			axes.Coords[dim] = append(axes.Coords[dim], v)
		}
	}

	provider := &engineTileProvider{e: e}
	result, err := region.Query(ctx, r, level, e.projection, e.pyramid.TileSize, axes, sel, provider)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.mu.Lock()
	superseded := e.queryStart.After(startedAt)
	e.mu.Unlock()
	if superseded {
		return nil, nil
	}
	return result, nil
}

type engineTileProvider struct{ e *Engine }

func (p *engineTileProvider) Tile(key coord.Key) (*tile.Tile, error) {
	return p.e.getOrCreateTile(key)
}

// Stats returns a snapshot of engine internals (spec.md §7 supplemented
// feature).
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		TileCount:    len(e.tiles),
		ActiveTiles:  len(e.active),
		ChunkCacheN:  e.chunks.Len(),
		ChunkCacheKB: e.chunks.Bytes() / 1024,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// atomicBool is a tiny race-free flag set concurrently by UpdateCamera's
// per-tile goroutines.
type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (a *atomicBool) set()      { a.mu.Lock(); a.v = true; a.mu.Unlock() }
func (a *atomicBool) get() bool { a.mu.Lock(); defer a.mu.Unlock(); return a.v }
