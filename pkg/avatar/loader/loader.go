// Package loader fills display slots with contact avatars.
//
// A Load is served from the cache when possible. On a miss the slot gets a
// generated placeholder at once and a background fetch is dispatched to the
// worker pool; when it finishes, the result is cached and handed to the
// slot, but only if no newer request for that slot came in meanwhile.
//
// All slot assignments and coordinator bookkeeping happen on the delivery
// loop. Load runs its body there synchronously, so by the time it returns
// the slot shows either the cached image or the placeholder.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/internal/telemetry"
	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/avatar/coordinator"
	"github.com/marmos91/contactpic/pkg/avatar/fallback"
	"github.com/marmos91/contactpic/pkg/avatar/loop"
	"github.com/marmos91/contactpic/pkg/avatar/slot"
	"github.com/marmos91/contactpic/pkg/avatar/workqueue"
)

const (
	defaultLoopBuffer   = 256
	defaultStopTimeout  = 10 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Options wires a Loader. Directory, Opener, Codec and Cache are required.
//
// Queue, Loop and Slots may be shared with other components; the caller
// owns their lifecycle (in particular, an injected Queue must be started by
// the caller). When left nil the loader creates private ones and shuts them
// down in Close.
type Options struct {
	PictureSize int

	Directory Directory
	Opener    Opener
	Codec     Codec
	Cache     *cache.Cache

	// Generator defaults to a fallback.Generator of PictureSize.
	Generator *fallback.Generator

	Queue *workqueue.Queue
	Loop  *loop.Loop
	Slots *slot.Registry

	Metrics Metrics

	// FetchTimeout bounds one shared fetch, independently of the callers
	// waiting on it.
	FetchTimeout time.Duration

	// StopTimeout bounds how long Close waits for a private queue to drain.
	StopTimeout time.Duration
}

// Loader resolves avatars into display slots.
type Loader struct {
	size      int
	dir       Directory
	opener    Opener
	codec     Codec
	cache     *cache.Cache
	generator *fallback.Generator
	queue     *workqueue.Queue
	loop      *loop.Loop
	slots     *slot.Registry
	metrics   Metrics

	// coord is only touched on the delivery loop.
	coord *coordinator.Coordinator

	// flight collapses concurrent fetches of the same key across slots.
	flight singleflight.Group

	// generation is bumped by Invalidate and Purge. A fetch that saw an
	// older generation does not cache its result.
	generation atomic.Uint64

	ownsQueue    bool
	ownsLoop     bool
	fetchTimeout time.Duration
	stopTimeout  time.Duration
	closeOnce    sync.Once
}

// New builds a loader from opts.
func New(opts Options) (*Loader, error) {
	if opts.PictureSize <= 0 {
		return nil, fmt.Errorf("%w: picture size must be positive, got %d", avatar.ErrInvalidInput, opts.PictureSize)
	}
	if opts.Directory == nil || opts.Opener == nil || opts.Codec == nil || opts.Cache == nil {
		return nil, fmt.Errorf("%w: directory, opener, codec and cache are required", avatar.ErrInvalidInput)
	}

	gen := opts.Generator
	if gen == nil {
		var err error
		if gen, err = fallback.New(opts.PictureSize); err != nil {
			return nil, err
		}
	} else if gen.Size() != opts.PictureSize {
		return nil, fmt.Errorf("%w: generator size %d does not match picture size %d",
			avatar.ErrInvalidInput, gen.Size(), opts.PictureSize)
	}

	l := &Loader{
		size:         opts.PictureSize,
		dir:          opts.Directory,
		opener:       opts.Opener,
		codec:        opts.Codec,
		cache:        opts.Cache,
		generator:    gen,
		queue:        opts.Queue,
		loop:         opts.Loop,
		slots:        opts.Slots,
		metrics:      opts.Metrics,
		coord:        coordinator.New(),
		fetchTimeout: opts.FetchTimeout,
		stopTimeout:  opts.StopTimeout,
	}

	if l.fetchTimeout <= 0 {
		l.fetchTimeout = defaultFetchTimeout
	}
	if l.stopTimeout <= 0 {
		l.stopTimeout = defaultStopTimeout
	}
	if l.slots == nil {
		l.slots = slot.NewRegistry()
	}
	if l.loop == nil {
		l.loop = loop.New(defaultLoopBuffer)
		l.ownsLoop = true
	}
	if l.queue == nil {
		l.queue = workqueue.New(workqueue.Config{})
		l.queue.Start(context.Background())
		l.ownsQueue = true
	}

	return l, nil
}

// PictureSize returns the avatar dimension in pixels.
func (l *Loader) PictureSize() int { return l.size }

// Slots returns the slot registry handles are issued from.
func (l *Loader) Slots() *slot.Registry { return l.slots }

// Register adds sink to the slot registry.
func (l *Loader) Register(sink slot.Sink) slot.Handle {
	return l.slots.Register(sink)
}

// Load fills slot h with the avatar for id. It never fails: invalid input
// and a closed loader are logged and ignored.
//
// Load must not be called from code running on the delivery loop (such as
// a Sink), which would wait on itself.
func (l *Loader) Load(id avatar.Identity, h slot.Handle) {
	key, err := id.Key()
	if err != nil {
		logger.Debug("Ignoring avatar request without address", logger.KeySlot, h.String())
		return
	}

	if err := l.loop.Do(func() { l.load(id, key, h) }); err != nil {
		logger.Debug("Loader closed, dropping avatar request",
			logger.KeyAddress, key.String(), logger.KeySlot, h.String())
	}
}

// load runs on the delivery loop.
func (l *Loader) load(id avatar.Identity, key avatar.Key, h slot.Handle) {
	if _, live := l.slots.Lookup(h); !live {
		logger.Debug("Ignoring avatar request for released slot", logger.KeySlot, h.String())
		return
	}

	if img, ok := l.cache.Get(key); ok {
		l.slots.Assign(h, img)
		// A newer request has been served; whatever was in flight is stale.
		l.coord.Cancel(h)
		recordResolution(l.metrics, SourceCache)
		return
	}

	task, started := l.coord.Begin(h, key)
	if !started {
		return
	}

	l.slots.Assign(h, l.generator.Generate(id))

	err := l.queue.Submit(workqueue.Job{
		Name: "fetch " + key.String(),
		Run: func(ctx context.Context) error {
			return l.runTask(ctx, task, id)
		},
	})
	if err != nil {
		l.coord.Abort(task)
		recordRejected(l.metrics)
		logger.Debug("Avatar fetch not dispatched, keeping placeholder",
			logger.KeyAddress, key.String(),
			logger.KeySlot, h.String(),
			logger.KeyError, fmt.Errorf("%w: %w", avatar.ErrDispatchRejected, err))
		return
	}
	recordDispatch(l.metrics)
}

// runTask is the worker side of a dispatched fetch.
func (l *Loader) runTask(ctx context.Context, task *coordinator.Task, id avatar.Identity) error {
	// A task superseded while queued still runs so its result gets cached.
	task.Start()

	ctx, span := telemetry.StartFetchSpan(ctx, task.Key.String(),
		telemetry.Slot(task.Slot.String()),
		telemetry.TaskID(task.ID.String()),
		telemetry.Epoch(task.Epoch),
	)
	defer span.End()

	ctx = logger.WithContext(ctx, &logger.LogContext{
		TraceID:   telemetry.TraceID(ctx),
		SpanID:    telemetry.SpanID(ctx),
		Address:   task.Key.String(),
		Slot:      task.Slot.String(),
		StartTime: time.Now(),
	})

	res := l.fetch(ctx, id, task.Key)
	telemetry.SetAttributes(ctx, telemetry.Source(res.source.String()))

	if err := l.loop.Post(func() { l.deliver(task, res) }); err != nil {
		return fmt.Errorf("deliver %s: %w", task.Key, err)
	}
	return nil
}

// deliver runs on the delivery loop.
func (l *Loader) deliver(task *coordinator.Task, res result) {
	if !l.coord.Complete(task) {
		recordDelivery(l.metrics, false)
		logger.Debug("Dropping stale avatar delivery",
			logger.KeyAddress, task.Key.String(),
			logger.KeySlot, task.Slot.String(),
			logger.KeyTaskID, task.ID.String(),
			logger.KeyEpoch, task.Epoch)
		return
	}

	delivered := l.slots.Assign(task.Slot, res.image)
	recordDelivery(l.metrics, delivered)
	if delivered {
		recordResolution(l.metrics, res.source)
	}
}

// Resolve returns the avatar for id synchronously. It shares the cache and
// in-flight fetches with Load but does not touch any slot.
func (l *Loader) Resolve(ctx context.Context, id avatar.Identity) (*avatar.Image, Source, error) {
	key, err := id.Key()
	if err != nil {
		return nil, "", err
	}

	ctx, span := telemetry.StartResolveSpan(ctx, key.String())
	defer span.End()

	if img, ok := l.cache.Get(key); ok {
		telemetry.SetAttributes(ctx, telemetry.CacheHit(true))
		recordResolution(l.metrics, SourceCache)
		return img, SourceCache, nil
	}

	res := l.fetch(ctx, id, key)
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	telemetry.SetAttributes(ctx, telemetry.CacheHit(false), telemetry.Source(res.source.String()))
	recordResolution(l.metrics, res.source)
	return res.image, res.source, nil
}

// Fallback renders the placeholder for id without consulting the cache.
func (l *Loader) Fallback(id avatar.Identity) *avatar.Image {
	return l.generator.Generate(id)
}

// Release tears down slot h: it is unregistered and any fetch in flight for
// it will not be delivered.
func (l *Loader) Release(h slot.Handle) {
	l.slots.Unregister(h)
	_ = l.loop.Do(func() { l.coord.Forget(h) })
}

// Invalidate drops the cached avatar for address, so the next request
// fetches it again.
func (l *Loader) Invalidate(address string) bool {
	key, err := avatar.KeyFor(address)
	if err != nil {
		return false
	}
	l.generation.Add(1)
	l.flight.Forget(key.String())
	return l.cache.Remove(key)
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.generation.Add(1)
	l.cache.Clear()
}

// Stats is a snapshot of loader state.
type Stats struct {
	Cache    cache.Stats     `json:"cache"`
	Queue    workqueue.Stats `json:"queue"`
	InFlight int             `json:"in_flight"`
	Slots    int             `json:"slots"`
}

// Stats returns a snapshot of the cache, the worker pool and in-flight
// work.
func (l *Loader) Stats() Stats {
	s := Stats{
		Cache: l.cache.Stats(),
		Queue: l.queue.Stats(),
		Slots: l.slots.Len(),
	}
	_ = l.loop.Do(func() { s.InFlight = l.coord.Len() })
	return s
}

// Close stops the private worker pool and delivery loop, if any. Fetches
// already queued finish and are delivered first.
func (l *Loader) Close() error {
	l.closeOnce.Do(func() {
		if l.ownsQueue {
			l.queue.Stop(l.stopTimeout)
		}
		if l.ownsLoop {
			l.loop.Stop()
		}
	})
	return nil
}

// result is a produced avatar and where it came from.
type result struct {
	image  *avatar.Image
	source Source
}

// fetch produces the avatar for key, collapsing concurrent calls for the
// same key. The shared fetch is detached from ctx and bounded by the fetch
// timeout instead; if ctx ends first only this caller gives up, with the
// placeholder.
func (l *Loader) fetch(ctx context.Context, id avatar.Identity, key avatar.Key) result {
	ch := l.flight.DoChan(key.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.fetchTimeout)
		defer cancel()
		return l.produce(fctx, id, key), nil
	})

	select {
	case r := <-ch:
		return r.Val.(result)
	case <-ctx.Done():
		return result{image: l.generator.Generate(id), source: SourceFallback}
	}
}

// produce looks up, opens and decodes the photo, falling back to the
// placeholder. Definitive outcomes are cached; transient failures (a
// directory error, a cancelled context) are not, so a later request retries.
func (l *Loader) produce(ctx context.Context, id avatar.Identity, key avatar.Key) result {
	if img, ok := l.cache.Get(key); ok {
		return result{image: img, source: SourceCache}
	}

	gen := l.generation.Load()
	start := time.Now()
	img, definitive := l.fetchPhoto(ctx, key)

	res := result{image: img, source: SourcePhoto}
	if img == nil {
		res = result{image: l.generator.Generate(id), source: SourceFallback}
	}
	observeFetch(l.metrics, res.source, time.Since(start))

	if !definitive || l.generation.Load() != gen {
		return res
	}

	if !l.cache.Put(key, res.image) {
		// Another writer got there first; converge on its image.
		if cached, ok := l.cache.Get(key); ok {
			res.image = cached
		}
	} else if l.generation.Load() != gen {
		// Invalidated between the check and the put.
		l.cache.Remove(key)
	}
	logger.DebugCtx(ctx, "Avatar produced",
		logger.KeySource, res.source.String(),
		logger.KeyDurationMs, logger.Duration(start))
	return res
}

// fetchPhoto returns the decoded photo for key, or nil when there is none.
// definitive is false when the outcome may differ on retry.
func (l *Loader) fetchPhoto(ctx context.Context, key avatar.Key) (img *avatar.Image, definitive bool) {
	loc, found, err := l.dir.LocatePhoto(ctx, key.String())
	if err != nil {
		telemetry.RecordError(ctx, err)
		if ctx.Err() == nil {
			logger.WarnCtx(ctx, "Directory lookup failed", logger.KeyError, err)
		}
		return nil, false
	}
	if !found {
		return nil, true
	}

	rc, err := l.opener.Open(ctx, loc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		l.logPhotoFailure(ctx, "Cannot open contact photo", loc, err, avatar.ErrNotFound)
		return nil, true
	}
	defer func() { _ = rc.Close() }()

	decodeCtx, span := telemetry.StartDecodeSpan(ctx, loc.String(), l.size)
	img, err = l.codec.DecodeAndScale(rc, l.size)
	telemetry.RecordError(decodeCtx, err)
	span.End()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false
		}
		l.logPhotoFailure(ctx, "Cannot decode contact photo", loc, err, avatar.ErrDecode)
		return nil, true
	}
	return img, true
}

// logPhotoFailure logs expected failures at debug and anything else at warn.
func (l *Loader) logPhotoFailure(ctx context.Context, msg string, loc avatar.Locator, err, expected error) {
	if errors.Is(err, expected) {
		logger.DebugCtx(ctx, msg, logger.KeyLocator, loc.String(), logger.KeyError, err)
		return
	}
	telemetry.RecordError(ctx, err)
	logger.WarnCtx(ctx, msg, logger.KeyLocator, loc.String(), logger.KeyError, err)
}
