package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"panelspace/internal/models"
	"panelspace/pkg/config"
	"panelspace/pkg/curved"
	"panelspace/pkg/imagecache"
	"panelspace/pkg/layout"
	"panelspace/pkg/source"
)

var (
	// ErrStaleCallback marks a load completion for a panel that was
	// closed or reloaded since the load was issued. It is logged and
	// dropped, never returned.
	ErrStaleCallback = errors.New("stale load callback")

	// ErrUnknownPanel is returned for IDs the coordinator does not hold.
	ErrUnknownPanel = errors.New("unknown panel")

	// ErrInvalidSize is returned by Resize for non-positive sizes.
	ErrInvalidSize = errors.New("invalid panel size")
)

// Options configures a Coordinator.
type Options struct {
	DefaultWidth  float64
	DefaultHeight float64

	// AutoFitAspect resizes panels to the image aspect ratio once loaded
	AutoFitAspect bool

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// OptionsFromConfig maps the panel section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultWidth:  cfg.Panel.DefaultWidth,
		DefaultHeight: cfg.Panel.DefaultHeight,
		AutoFitAspect: cfg.Panel.AutoFitAspect,
	}
}

// Coordinator is the only place where layout, the image cache and curved
// surfaces meet. It asks the layout for a slot, places the panel there,
// starts the image load and applies the result when it arrives.
//
// All methods must be called from the goroutine that drains the cache's
// main-thread queue; load completions arrive on it too.
type Coordinator struct {
	opts  Options
	cache *imagecache.Cache
	grid  *layout.Engine
	tiler *layout.Tiler
	gen   *curved.Generator
	log   *log.Logger

	panels   map[uuid.UUID]*Panel
	order    []*Panel
	onChange func(*Panel)
	dropped  uint64
}

// NewCoordinator creates a coordinator over its collaborators.
func NewCoordinator(cache *imagecache.Cache, grid *layout.Engine, tiler *layout.Tiler, gen *curved.Generator, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if gen == nil {
		gen = curved.NewGenerator(curved.Options{})
	}
	c := &Coordinator{
		opts:   opts,
		cache:  cache,
		grid:   grid,
		tiler:  tiler,
		gen:    gen,
		log:    opts.Logger.WithPrefix("panel"),
		panels: make(map[uuid.UUID]*Panel),
	}
	cache.OnRelease(c.textureReleased)
	return c
}

// OnChange registers fn to be called whenever a panel's state, slot or
// geometry changes. Passing nil removes the hook.
func (c *Coordinator) OnChange(fn func(*Panel)) {
	c.onChange = fn
}

func (c *Coordinator) notify(p *Panel) {
	if c.onChange != nil {
		c.onChange(p)
	}
}

func (c *Coordinator) newPanel(rec models.ImageRecord, slot models.Slot, place placement) *Panel {
	p := &Panel{
		id:      uuid.New(),
		record:  rec,
		state:   Loading,
		slot:    slot,
		surface: curved.NewSurface(c.gen),
		place:   place,
	}
	p.surface.Update(slot.Width, slot.Height, 0)
	c.panels[p.id] = p
	c.order = append(c.order, p)
	return p
}

// Open places a single image in tiling mode next to the previously
// opened one and starts loading it.
func (c *Coordinator) Open(path string, frame models.ViewerFrame) *Panel {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rec := models.ImageRecord{
		Path:   path,
		Column: c.tiler.Count(),
		Name:   filepath.Base(path),
		Folder: filepath.Base(filepath.Dir(path)),
	}

	slot := c.tiler.Next(c.opts.DefaultWidth, c.opts.DefaultHeight, frame)
	slot.Record = rec
	p := c.newPanel(rec, slot, placement{})

	c.log.Debug("opened", "id", p.id, "path", path, "position", slot.Position)
	c.notify(p)
	c.load(p)
	return p
}

// OpenFolder replaces the curved grid with the images of src, one row per
// folder, and starts loading all of them. Tiled panels are kept.
func (c *Coordinator) OpenFolder(ctx context.Context, src source.ImageSource, frame models.ViewerFrame) ([]*Panel, error) {
	records, err := src.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate images: %w", err)
	}

	c.closeWhere(func(p *Panel) bool { return p.place.grid })

	rowSize := make(map[int]int)
	for _, rec := range records {
		rowSize[rec.Row]++
	}

	slots := c.grid.ComputeSlots(records, frame)
	opened := make([]*Panel, 0, len(slots))
	for _, slot := range slots {
		rec := slot.Record
		p := c.newPanel(rec, slot, placement{
			grid:    true,
			row:     rec.Row,
			column:  rec.Column,
			rowSize: rowSize[rec.Row],
		})
		opened = append(opened, p)
		c.notify(p)
	}

	c.log.Info("opened folder", "images", len(opened), "rows", len(rowSize))
	for _, p := range opened {
		c.load(p)
	}
	return opened, nil
}

// Reload starts a fresh load for the panel. It is the retry path for
// Failed and Evicted panels.
func (c *Coordinator) Reload(id uuid.UUID) error {
	p, ok := c.panels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, id)
	}
	p.state = Loading
	p.err = nil
	p.texture = nil
	c.notify(p)
	c.load(p)
	return nil
}

// load requests p's image. A cache hit completes before load returns.
func (c *Coordinator) load(p *Panel) {
	p.loadSeq++
	seq := p.loadSeq
	c.cache.LoadAsync(p.record.Path, func(res imagecache.Result) {
		if err := c.checkLive(p, seq); err != nil {
			c.dropped++
			c.log.Debug("dropping load result", "id", p.id, "path", res.Path, "err", err)
			return
		}
		c.apply(p, res)
	})
}

func (c *Coordinator) checkLive(p *Panel, seq uint64) error {
	if p.state == Closed || c.panels[p.id] != p || p.loadSeq != seq {
		return ErrStaleCallback
	}
	return nil
}

// apply installs a load result on a live panel.
func (c *Coordinator) apply(p *Panel, res imagecache.Result) {
	if !res.OK() {
		p.state = Failed
		p.err = res.Err
		if p.err == nil {
			p.err = imagecache.ErrDecodeFailure
		}
		c.log.Warn("image failed", "id", p.id, "path", p.record.Path, "err", p.err)
		c.notify(p)
		return
	}

	p.texture = res.Texture
	p.aspect = float64(res.Width) / float64(res.Height)
	p.state = Ready
	if c.opts.AutoFitAspect {
		w, h := fitAspect(p.slot.Width, p.slot.Height, p.aspect)
		c.resize(p, w, h)
	}
	c.log.Debug("image ready", "id", p.id, "path", p.record.Path,
		"width", res.Width, "height", res.Height, "cached", res.Cached)
	c.notify(p)
}

// resize keeps the slot size and the curved surface in step.
func (c *Coordinator) resize(p *Panel, width, height float64) {
	p.slot = p.slot.WithSize(width, height)
	p.surface.Update(width, height, p.surface.Curvature())
}

// textureReleased runs when the cache frees the texture for path. Ready
// panels showing it load it again while every open image fits in the
// cache; otherwise they become Evicted so that reloading cannot keep
// pushing other panels' textures out.
func (c *Coordinator) textureReleased(path string) {
	var hit []*Panel
	for _, p := range c.order {
		if p.record.Path == path && p.texture.Released() {
			hit = append(hit, p)
		}
	}
	if len(hit) == 0 {
		return
	}

	fits := c.openImages() <= c.cache.Stats().Capacity
	for _, p := range hit {
		p.texture = nil
		if fits {
			p.state = Loading
			c.log.Debug("texture released, reloading", "id", p.id, "path", path)
			c.notify(p)
			c.load(p)
			continue
		}
		p.state = Evicted
		c.log.Debug("texture released", "id", p.id, "path", path)
		c.notify(p)
	}
}

// openImages counts the distinct images that open panels want to show.
func (c *Coordinator) openImages() int {
	paths := make(map[string]struct{}, len(c.order))
	for _, p := range c.order {
		if p.state != Failed {
			paths[p.record.Path] = struct{}{}
		}
	}
	return len(paths)
}

// Resize sets the panel's size.
func (c *Coordinator) Resize(id uuid.UUID, width, height float64) error {
	p, ok := c.panels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, id)
	}
	if !(width > 0) || !(height > 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidSize, width, height)
	}
	c.resize(p, width, height)
	c.notify(p)
	return nil
}

// SetCurvature bends the panel. Values are clamped to [0,1]; 0 returns
// the panel to flat and frees its mesh.
func (c *Coordinator) SetCurvature(id uuid.UUID, curvature float64) error {
	p, ok := c.panels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, id)
	}
	if p.surface.Update(p.slot.Width, p.slot.Height, curvature) {
		c.log.Debug("curvature changed", "id", p.id, "curvature", p.surface.Curvature())
		c.notify(p)
	}
	return nil
}

// Relayout recomputes every slot for a new viewer frame. Grid panels are
// placed one by one with ComputeSlot; tiled panels are tiled again in
// opening order. Panel sizes are kept.
func (c *Coordinator) Relayout(frame models.ViewerFrame) error {
	c.tiler.Reset()
	var errs []error
	for _, p := range c.order {
		var slot models.Slot
		if p.place.grid {
			s, err := c.grid.ComputeSlot(p.place.row, p.place.column, p.place.rowSize, frame)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			slot = s.WithSize(p.slot.Width, p.slot.Height)
		} else {
			slot = c.tiler.Next(p.slot.Width, p.slot.Height, frame)
		}
		slot.Record = p.record
		p.slot = slot
		c.notify(p)
	}
	return errors.Join(errs...)
}

// Close destroys a panel. Its load, if still in flight, is ignored when
// it completes. The texture stays cached for reuse.
func (c *Coordinator) Close(id uuid.UUID) error {
	p, ok := c.panels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, id)
	}
	c.closeWhere(func(q *Panel) bool { return q == p })
	return nil
}

// CloseAll destroys every panel and restarts tiling.
func (c *Coordinator) CloseAll() {
	c.closeWhere(func(*Panel) bool { return true })
	c.tiler.Reset()
}

func (c *Coordinator) closeWhere(match func(*Panel) bool) {
	kept := c.order[:0]
	for _, p := range c.order {
		if !match(p) {
			kept = append(kept, p)
			continue
		}
		p.state = Closed
		p.texture = nil
		p.surface.Release()
		delete(c.panels, p.id)
		c.log.Debug("closed", "id", p.id, "path", p.record.Path)
		c.notify(p)
	}
	for i := len(kept); i < len(c.order); i++ {
		c.order[i] = nil
	}
	c.order = kept
}

// Panel returns the panel with the given ID.
func (c *Coordinator) Panel(id uuid.UUID) (*Panel, bool) {
	p, ok := c.panels[id]
	return p, ok
}

// Panels returns the open panels in opening order.
func (c *Coordinator) Panels() []*Panel {
	out := make([]*Panel, len(c.order))
	copy(out, c.order)
	return out
}

// Pending returns the number of panels still loading. Evicted panels are
// not counted; they load only when reloaded.
func (c *Coordinator) Pending() int {
	n := 0
	for _, p := range c.order {
		if p.state == Loading {
			n++
		}
	}
	return n
}

// Dropped returns how many stale load completions were discarded.
func (c *Coordinator) Dropped() uint64 { return c.dropped }
