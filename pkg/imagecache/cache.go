// Package imagecache loads, decodes, downsamples and caches images for
// display under a bounded LRU budget.
//
// Reading and decoding happen on worker goroutines. Everything else
// (texture creation and release, the LRU order, completion callbacks)
// happens on the goroutine that drains the cache's mainthread.Queue.
// LoadAsync, Evict, ClearCache and Shutdown must be called from that
// goroutine too.
package imagecache

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/semaphore"

	"panelspace/pkg/config"
	"panelspace/pkg/mainthread"
	"panelspace/pkg/resample"
)

// Result is delivered to every LoadAsync callback. On failure Texture is
// nil, the sizes are zero and Err says why.
type Result struct {
	Path    string
	Texture *Texture

	// Width and Height are the original image size before downscaling
	Width  int
	Height int

	// Cached is true when the result was served from the cache
	Cached bool

	Err error
}

// OK reports whether the load produced a texture.
func (r Result) OK() bool { return r.Err == nil && r.Texture != nil }

// Callback receives the outcome of a load on the main-thread goroutine.
type Callback func(Result)

// Options configures a Cache.
type Options struct {
	MaxEntries          int
	MaxTextureDimension int
	Workers             int
	Filter              resample.Filter
	GenerateMips        bool
	Anisotropy          int

	// Factory creates renderer textures. Defaults to a MemoryFactory.
	Factory TextureFactory

	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// OptionsFromConfig maps the cache section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	filter, err := resample.ParseFilter(cfg.Cache.Filter)
	if err != nil {
		return Options{}, err
	}
	return Options{
		MaxEntries:          cfg.Cache.MaxEntries,
		MaxTextureDimension: cfg.Cache.MaxTextureDimension,
		Workers:             cfg.Cache.Workers,
		Filter:              filter,
		GenerateMips:        cfg.Cache.GenerateMips,
		Anisotropy:          cfg.Cache.Anisotropy,
	}, nil
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64 // requests that started a decode
	Joined    uint64 // requests that attached to an in-flight decode of the same path
	Loads     uint64
	Failures  uint64
	Evictions uint64
	InFlight  int
}

type entry struct {
	texture *Texture
	width   int
	height  int
}

// Cache is the asynchronous image cache.
type Cache struct {
	opts    Options
	queue   *mainthread.Queue
	log     *log.Logger
	sampler Sampler

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the fields below. The main-thread discipline already
	// serialises mutation; the lock makes Stats/Len safe from elsewhere.
	mu       sync.Mutex
	lru      *simplelru.LRU[string, *entry]
	pending  map[string][]Callback
	explicit bool
	closed   bool
	stats    Stats

	// released collects paths whose textures were freed while c.mu was
	// held; onRelease is told about them once the lock is dropped.
	released  []string
	onRelease func(path string)
}

// New creates a cache whose completions are delivered through queue.
func New(queue *mainthread.Queue, opts Options) (*Cache, error) {
	if queue == nil {
		return nil, fmt.Errorf("imagecache: nil queue")
	}
	if opts.MaxEntries < 1 {
		return nil, fmt.Errorf("imagecache: max entries must be at least 1, got %d", opts.MaxEntries)
	}
	if opts.MaxTextureDimension < 1 {
		return nil, fmt.Errorf("imagecache: max texture dimension must be at least 1, got %d", opts.MaxTextureDimension)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Factory == nil {
		opts.Factory = &MemoryFactory{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		opts:    opts,
		queue:   queue,
		log:     opts.Logger.WithPrefix("imagecache"),
		sampler: TrilinearSampler(opts.Anisotropy),
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string][]Callback),
	}

	lru, err := simplelru.NewLRU[string, *entry](opts.MaxEntries, c.onEvict)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("imagecache: %w", err)
	}
	c.lru = lru
	return c, nil
}

// onEvict releases the texture of an entry leaving the cache. Caller holds c.mu.
func (c *Cache) onEvict(path string, e *entry) {
	if !c.explicit {
		c.stats.Evictions++
		c.log.Debug("evicted", "path", path)
	}
	e.texture.Release()
	c.released = append(c.released, path)
}

// OnRelease registers fn to be called on the main-thread goroutine after
// the texture cached under path has been released, whether by LRU
// eviction, Evict, ClearCache or replacement. Holders of that texture
// must stop using it. Nothing is reported after Shutdown.
func (c *Cache) OnRelease(fn func(path string)) {
	c.mu.Lock()
	c.onRelease = fn
	c.mu.Unlock()
}

// flushReleased reports released paths. Caller must not hold c.mu.
func (c *Cache) flushReleased() {
	c.mu.Lock()
	paths := c.released
	c.released = nil
	fn := c.onRelease
	closed := c.closed
	c.mu.Unlock()

	if fn == nil || closed {
		return
	}
	for _, path := range paths {
		fn(path)
	}
}

// LoadAsync loads path and calls cb with the result. A cache hit moves the
// entry to the front and calls cb before LoadAsync returns. A miss reads
// and decodes on a worker goroutine and calls cb later from the main-thread
// queue. Concurrent misses on one path share a single decode.
func (c *Cache) LoadAsync(path string, cb Callback) {
	if cb == nil {
		cb = func(Result) {}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cb(Result{Path: path, Err: ErrShutdown})
		return
	}
	if e, ok := c.lru.Get(path); ok {
		c.stats.Hits++
		c.mu.Unlock()
		cb(Result{Path: path, Texture: e.texture, Width: e.width, Height: e.height, Cached: true})
		return
	}

	if waiters, ok := c.pending[path]; ok {
		c.pending[path] = append(waiters, cb)
		c.stats.Joined++
		c.mu.Unlock()
		return
	}
	c.stats.Misses++
	c.pending[path] = []Callback{cb}
	c.mu.Unlock()

	c.log.Debug("miss", "path", path)
	c.wg.Add(1)
	go c.work(path)
}

// work runs on a worker goroutine.
func (c *Cache) work(path string) {
	defer c.wg.Done()

	if err := c.sem.Acquire(c.ctx, 1); err != nil {
		return
	}
	p, err := prepare(path, c.opts.MaxTextureDimension, c.opts.Filter, c.opts.GenerateMips)
	c.sem.Release(1)

	c.queue.PostContext(c.ctx, func() { c.complete(path, p, err) })
}

// complete runs on the main-thread goroutine.
func (c *Cache) complete(path string, p *prepared, err error) {
	c.mu.Lock()
	waiters := c.pending[path]
	delete(c.pending, path)
	closed := c.closed
	c.mu.Unlock()

	if closed && err == nil {
		err = ErrShutdown
	}

	var res Result
	if err == nil {
		res, err = c.install(path, p)
	}
	if err != nil {
		c.mu.Lock()
		c.stats.Failures++
		c.mu.Unlock()
		c.log.Warn("load failed", "path", path, "err", err)
		res = Result{Path: path, Err: err}
	}

	for _, cb := range waiters {
		cb(res)
	}
}

// install creates the texture for p and inserts it under path.
func (c *Cache) install(path string, p *prepared) (Result, error) {
	desc := NewDescriptor(path, p.levels)
	handle, err := c.opts.Factory.CreateTexture(desc, c.sampler, p.levels)
	if err != nil {
		return Result{}, fmt.Errorf("create texture for %s: %w", path, err)
	}

	factory := c.opts.Factory
	tex := &Texture{
		Descriptor: desc,
		Sampler:    c.sampler,
		Levels:     p.levels,
		Handle:     handle,
		release:    func(t *Texture) { factory.ReleaseTexture(t.Handle) },
	}
	e := &entry{texture: tex, width: p.originalWidth, height: p.originalHeight}

	c.mu.Lock()
	if c.lru.Contains(path) {
		// A stale entry from before an Evict/ClearCache race; replace it.
		c.explicit = true
		c.lru.Remove(path)
		c.explicit = false
	}
	c.lru.Add(path, e)
	c.stats.Loads++
	c.mu.Unlock()
	c.flushReleased()

	c.log.Debug("loaded", "path", path,
		"width", p.originalWidth, "height", p.originalHeight,
		"texture", fmt.Sprintf("%dx%d", desc.Size.Width, desc.Size.Height),
		"mips", desc.MipLevelCount)

	return Result{Path: path, Texture: tex, Width: e.width, Height: e.height}, nil
}

// Evict removes and releases the entry for path. Absent keys are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	c.explicit = true
	c.lru.Remove(path)
	c.explicit = false
	c.mu.Unlock()
	c.flushReleased()
}

// ClearCache releases and removes every entry.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	c.explicit = true
	c.lru.Purge()
	c.explicit = false
	c.mu.Unlock()
	c.flushReleased()
}

// SetCapacity changes the maximum number of entries, evicting the least
// recently used ones when shrinking.
func (c *Cache) SetCapacity(n int) error {
	if n < 1 {
		return fmt.Errorf("imagecache: max entries must be at least 1, got %d", n)
	}
	c.mu.Lock()
	c.lru.Resize(n)
	c.opts.MaxEntries = n
	c.mu.Unlock()
	c.flushReleased()
	return nil
}

// Contains reports whether path is cached without touching the LRU order.
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(path)
}

// Keys returns cached paths from least to most recently used.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Len = c.lru.Len()
	s.Capacity = c.opts.MaxEntries
	s.InFlight = len(c.pending)
	return s
}

// Shutdown stops new loads, waits for workers to exit and releases every
// entry. Callbacks of loads still in flight receive ErrShutdown.
func (c *Cache) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string][]Callback)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.ClearCache()

	for path, waiters := range pending {
		for _, cb := range waiters {
			cb(Result{Path: path, Err: ErrShutdown})
		}
	}
}
