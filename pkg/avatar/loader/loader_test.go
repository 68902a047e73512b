package loader

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/avatar/fallback"
	"github.com/marmos91/contactpic/pkg/avatar/loop"
	"github.com/marmos91/contactpic/pkg/avatar/workqueue"
)

const testSize = 8

// fakeDirectory serves locators from a map. Lookups for an address with a
// gate block until the gate is closed.
type fakeDirectory struct {
	mu     sync.Mutex
	photos map[string]avatar.Locator
	gates  map[string]chan struct{}
	calls  map[string]int
	err    error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		photos: make(map[string]avatar.Locator),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
	}
}

func (d *fakeDirectory) LocatePhoto(ctx context.Context, address string) (avatar.Locator, bool, error) {
	d.mu.Lock()
	d.calls[address]++
	gate := d.gates[address]
	loc, ok := d.photos[address]
	err := d.err
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	if err != nil {
		return "", false, err
	}
	return loc, ok, nil
}

func (d *fakeDirectory) gate(address string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.gates[address] = ch
	return ch
}

func (d *fakeDirectory) callCount(address string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[address]
}

// fakeOpener returns the locator text itself as the photo bytes.
type fakeOpener struct {
	missing map[avatar.Locator]bool
}

func (o fakeOpener) Open(_ context.Context, loc avatar.Locator) (io.ReadCloser, error) {
	if o.missing[loc] {
		return nil, avatar.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(loc.String())), nil
}

// fakeCodec stamps the stream bytes into the first pixels, so distinct
// locators give distinct images. "corrupt" fails to decode.
type fakeCodec struct{}

func (fakeCodec) DecodeAndScale(r io.Reader, size int) (*avatar.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if string(data) == "corrupt" {
		return nil, avatar.ErrDecode
	}
	return photoImage(string(data), size), nil
}

func photoImage(loc string, size int) *avatar.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	copy(rgba.Pix, loc)
	return avatar.NewImage(rgba)
}

// recordingSink keeps every image assigned to it.
type recordingSink struct {
	mu     sync.Mutex
	images []*avatar.Image
}

func (s *recordingSink) SetImage(img *avatar.Image) {
	s.mu.Lock()
	s.images = append(s.images, img)
	s.mu.Unlock()
}

func (s *recordingSink) last() *avatar.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return nil
	}
	return s.images[len(s.images)-1]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

type fixture struct {
	loader *Loader
	dir    *fakeDirectory
	cache  *cache.Cache
	queue  *workqueue.Queue
	loop   *loop.Loop
	gen    *fallback.Generator
	opener fakeOpener
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()

	gen, err := fallback.New(testSize)
	require.NoError(t, err)

	f := &fixture{
		dir:    newFakeDirectory(),
		cache:  cache.New(1 << 20),
		queue:  workqueue.New(workqueue.Config{Workers: workers, QueueSize: 16}),
		loop:   loop.New(16),
		gen:    gen,
		opener: fakeOpener{missing: map[avatar.Locator]bool{}},
	}
	f.queue.Start(context.Background())

	f.loader, err = New(Options{
		PictureSize: testSize,
		Directory:   f.dir,
		Opener:      f.opener,
		Codec:       fakeCodec{},
		Cache:       f.cache,
		Generator:   gen,
		Queue:       f.queue,
		Loop:        f.loop,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = f.loader.Close()
		f.queue.Stop(time.Second)
		f.loop.Stop()
	})
	return f
}

// settle waits until n jobs have finished and their deliveries have run.
func (f *fixture) settle(t *testing.T, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := f.queue.Stats()
		return s.Completed+s.Failed >= n
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, f.loop.Do(func() {}))
}

func TestLoad_CacheHitIsImmediate(t *testing.T) {
	f := newFixture(t, 1)

	cached := photoImage("cached", testSize)
	f.cache.Put("bob@x.com", cached)

	sink := &recordingSink{}
	h := f.loader.Register(sink)
	f.loader.Load(avatar.NewIdentity("Bob@X.com", "Bob"), h)

	assert.Same(t, cached, sink.last())
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, uint64(0), f.queue.Stats().Completed)
	assert.Equal(t, 0, f.dir.callCount("bob@x.com"))
}

func TestLoad_MissShowsPlaceholderThenPhoto(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["alice@x.com"] = "alice.png"
	gate := f.dir.gate("alice@x.com")

	id := avatar.NewIdentity("alice@x.com", "Alice")
	sink := &recordingSink{}
	h := f.loader.Register(sink)
	f.loader.Load(id, h)

	// The placeholder is visible as soon as Load returns.
	require.Equal(t, 1, sink.count())
	assert.True(t, f.gen.Generate(id).Equal(sink.last()))

	close(gate)
	f.settle(t, 1)

	want := photoImage("alice.png", testSize)
	assert.True(t, want.Equal(sink.last()))

	cached, ok := f.cache.Get("alice@x.com")
	require.True(t, ok)
	assert.True(t, want.Equal(cached))
}

func TestLoad_NoPhotoFallsBackAndCaches(t *testing.T) {
	f := newFixture(t, 1)

	id := avatar.NewIdentity("nobody@x.com", "")
	sink := &recordingSink{}
	f.loader.Load(id, f.loader.Register(sink))
	f.settle(t, 1)

	placeholder := f.gen.Generate(id)
	assert.True(t, placeholder.Equal(sink.last()))

	cached, ok := f.cache.Get("nobody@x.com")
	require.True(t, ok)
	assert.True(t, placeholder.Equal(cached))
}

func TestLoad_OpenAndDecodeFailuresFallBack(t *testing.T) {
	f := newFixture(t, 2)
	f.dir.photos["gone@x.com"] = "gone.png"
	f.opener.missing["gone.png"] = true
	f.dir.photos["bad@x.com"] = "corrupt"

	for _, addr := range []string{"gone@x.com", "bad@x.com"} {
		sink := &recordingSink{}
		f.loader.Load(avatar.NewIdentity(addr, ""), f.loader.Register(sink))
	}
	f.settle(t, 2)

	for _, addr := range []string{"gone@x.com", "bad@x.com"} {
		cached, ok := f.cache.Get(avatar.Key(addr))
		require.True(t, ok, addr)
		assert.True(t, f.gen.Generate(avatar.NewIdentity(addr, "")).Equal(cached), addr)
	}
}

func TestLoad_DirectoryErrorIsNotCached(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.err = errors.New("database unavailable")

	id := avatar.NewIdentity("flaky@x.com", "")
	sink := &recordingSink{}
	f.loader.Load(id, f.loader.Register(sink))
	f.settle(t, 1)

	assert.True(t, f.gen.Generate(id).Equal(sink.last()))
	_, ok := f.cache.Get("flaky@x.com")
	assert.False(t, ok, "transient failures must not be cached")
}

func TestLoad_SingleFlightPerSlot(t *testing.T) {
	f := newFixture(t, 2)
	f.dir.photos["a@x.com"] = "a.png"
	gate := f.dir.gate("a@x.com")

	sink := &recordingSink{}
	h := f.loader.Register(sink)
	id := avatar.NewIdentity("a@x.com", "")

	f.loader.Load(id, h)
	f.loader.Load(id, h)
	f.loader.Load(id, h)

	// Only the first request placed a placeholder and dispatched work.
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, f.loader.Stats().InFlight)

	close(gate)
	f.settle(t, 1)

	assert.Equal(t, uint64(1), f.queue.Stats().Completed)
	assert.Equal(t, 1, f.dir.callCount("a@x.com"))
	assert.True(t, photoImage("a.png", testSize).Equal(sink.last()))
	assert.Equal(t, 0, f.loader.Stats().InFlight)
}

func TestLoad_LastRequestWins(t *testing.T) {
	f := newFixture(t, 2)
	f.dir.photos["a@x.com"] = "a.png"
	f.dir.photos["b@x.com"] = "b.png"
	gateA := f.dir.gate("a@x.com")

	sink := &recordingSink{}
	h := f.loader.Register(sink)

	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	f.loader.Load(avatar.NewIdentity("b@x.com", ""), h)

	// B completes while A is still stuck in the directory.
	f.settle(t, 1)
	photoB := photoImage("b.png", testSize)
	require.True(t, photoB.Equal(sink.last()))

	close(gateA)
	f.settle(t, 2)

	// A finished last but was superseded: the slot keeps B.
	assert.True(t, photoB.Equal(sink.last()))

	// A's result was still cached.
	cachedA, ok := f.cache.Get("a@x.com")
	require.True(t, ok)
	assert.True(t, photoImage("a.png", testSize).Equal(cachedA))
}

func TestLoad_LastRequestWins_OlderFinishesFirst(t *testing.T) {
	f := newFixture(t, 2)
	f.dir.photos["a@x.com"] = "a.png"
	f.dir.photos["b@x.com"] = "b.png"
	gateA := f.dir.gate("a@x.com")
	gateB := f.dir.gate("b@x.com")

	sink := &recordingSink{}
	h := f.loader.Register(sink)

	idB := avatar.NewIdentity("b@x.com", "")
	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	f.loader.Load(idB, h)

	// A completes while B is still stuck in the directory.
	close(gateA)
	f.settle(t, 1)
	assert.True(t, f.gen.Generate(idB).Equal(sink.last()), "superseded A must not replace B's placeholder")

	close(gateB)
	f.settle(t, 2)
	assert.True(t, photoImage("b.png", testSize).Equal(sink.last()))

	_, ok := f.cache.Get("a@x.com")
	assert.True(t, ok, "A's result is still cached")
}

func TestLoad_SharedFetchOutlivesCancelledResolve(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["a@x.com"] = "a.png"
	gate := f.dir.gate("a@x.com")
	id := avatar.NewIdentity("a@x.com", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resolved := make(chan error, 1)
	go func() {
		_, _, err := f.loader.Resolve(ctx, id)
		resolved <- err
	}()
	require.Eventually(t, func() bool { return f.dir.callCount("a@x.com") == 1 },
		time.Second, time.Millisecond)

	sink := &recordingSink{}
	f.loader.Load(id, f.loader.Register(sink))

	require.ErrorIs(t, <-resolved, context.DeadlineExceeded)

	close(gate)
	f.settle(t, 1)

	want := photoImage("a.png", testSize)
	assert.True(t, want.Equal(sink.last()), "slot must end with the photo")
	cached, ok := f.cache.Get("a@x.com")
	require.True(t, ok)
	assert.True(t, want.Equal(cached))
	assert.Equal(t, 1, f.dir.callCount("a@x.com"))
}

func TestInvalidate_DuringFetchDoesNotCacheStalePhoto(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["a@x.com"] = "old.png"
	gate := f.dir.gate("a@x.com")

	sink := &recordingSink{}
	f.loader.Load(avatar.NewIdentity("a@x.com", ""), f.loader.Register(sink))
	require.Eventually(t, func() bool { return f.dir.callCount("a@x.com") == 1 },
		time.Second, time.Millisecond)

	// The directory changes while the fetch holds the old locator.
	f.dir.mu.Lock()
	f.dir.photos["a@x.com"] = "new.png"
	delete(f.dir.gates, "a@x.com")
	f.dir.mu.Unlock()
	f.loader.Invalidate("a@x.com")

	close(gate)
	f.settle(t, 1)

	_, ok := f.cache.Get("a@x.com")
	assert.False(t, ok, "a fetch that started before the invalidation must not be cached")

	img, src, err := f.loader.Resolve(context.Background(), avatar.NewIdentity("a@x.com", ""))
	require.NoError(t, err)
	assert.Equal(t, SourcePhoto, src)
	assert.True(t, photoImage("new.png", testSize).Equal(img))
}

func TestLoad_CacheHitSupersedesInFlight(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["a@x.com"] = "a.png"
	gateA := f.dir.gate("a@x.com")

	cachedB := photoImage("b-cached", testSize)
	f.cache.Put("b@x.com", cachedB)

	sink := &recordingSink{}
	h := f.loader.Register(sink)

	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	f.loader.Load(avatar.NewIdentity("b@x.com", ""), h)
	require.Same(t, cachedB, sink.last())

	close(gateA)
	f.settle(t, 1)

	assert.Same(t, cachedB, sink.last())
}

func TestLoad_SharedFetchAcrossSlots(t *testing.T) {
	f := newFixture(t, 2)
	f.dir.photos["a@x.com"] = "a.png"
	gate := f.dir.gate("a@x.com")

	sinks := []*recordingSink{{}, {}}
	for _, s := range sinks {
		f.loader.Load(avatar.NewIdentity("a@x.com", ""), f.loader.Register(s))
	}

	close(gate)
	f.settle(t, 2)

	want := photoImage("a.png", testSize)
	for _, s := range sinks {
		assert.True(t, want.Equal(s.last()))
	}
	assert.Equal(t, 1, f.dir.callCount("a@x.com"))
}

func TestLoad_ReleasedSlotGetsNothing(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["a@x.com"] = "a.png"
	gate := f.dir.gate("a@x.com")

	sink := &recordingSink{}
	h := f.loader.Register(sink)
	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	require.Equal(t, 1, sink.count())

	f.loader.Release(h)
	close(gate)
	f.settle(t, 1)

	assert.Equal(t, 1, sink.count(), "no delivery after release")

	// Loading into a released slot is a no-op.
	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	assert.Equal(t, 1, sink.count())
}

func TestLoad_InvalidAddressIsNoop(t *testing.T) {
	f := newFixture(t, 1)

	sink := &recordingSink{}
	f.loader.Load(avatar.NewIdentity("   ", "Ghost"), f.loader.Register(sink))

	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, f.queue.Pending())
}

func TestLoad_DispatchRejectedKeepsPlaceholder(t *testing.T) {
	gen, err := fallback.New(testSize)
	require.NoError(t, err)

	// Never started, so the single queue slot stays occupied.
	q := workqueue.New(workqueue.Config{Workers: 1, QueueSize: 1})
	lp := loop.New(4)
	defer lp.Stop()

	dir := newFakeDirectory()
	l, err := New(Options{
		PictureSize: testSize,
		Directory:   dir,
		Opener:      fakeOpener{},
		Codec:       fakeCodec{},
		Cache:       cache.New(1 << 20),
		Generator:   gen,
		Queue:       q,
		Loop:        lp,
	})
	require.NoError(t, err)

	first := &recordingSink{}
	l.Load(avatar.NewIdentity("one@x.com", ""), l.Register(first))

	second := &recordingSink{}
	h2 := l.Register(second)
	id2 := avatar.NewIdentity("two@x.com", "Two")
	l.Load(id2, h2)

	assert.True(t, gen.Generate(id2).Equal(second.last()))
	assert.Equal(t, uint64(1), q.Stats().Rejected)

	// Only the first task is still tracked; the rejected one was aborted.
	assert.Equal(t, 1, l.Stats().InFlight)
	q.Start(context.Background())
	q.Stop(time.Second)
	require.NoError(t, lp.Do(func() {}))
	assert.Equal(t, 0, l.Stats().InFlight)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["a@x.com"] = "a.png"
	ctx := context.Background()

	img, src, err := f.loader.Resolve(ctx, avatar.NewIdentity("a@x.com", ""))
	require.NoError(t, err)
	assert.Equal(t, SourcePhoto, src)
	assert.True(t, photoImage("a.png", testSize).Equal(img))

	_, src, err = f.loader.Resolve(ctx, avatar.NewIdentity("A@X.com", ""))
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)

	id := avatar.NewIdentity("nobody@x.com", "Nobody")
	img, src, err = f.loader.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, src)
	assert.True(t, f.gen.Generate(id).Equal(img))

	_, _, err = f.loader.Resolve(ctx, avatar.NewIdentity("", ""))
	assert.ErrorIs(t, err, avatar.ErrInvalidInput)
}

func TestResolve_ContextCancelled(t *testing.T) {
	f := newFixture(t, 1)
	f.dir.photos["slow@x.com"] = "slow.png"
	gate := f.dir.gate("slow@x.com")
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := f.loader.Resolve(ctx, avatar.NewIdentity("slow@x.com", ""))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := f.cache.Get("slow@x.com")
	assert.False(t, ok)
}

func TestInvalidateAndPurge(t *testing.T) {
	f := newFixture(t, 1)
	f.cache.Put("a@x.com", photoImage("a", testSize))
	f.cache.Put("b@x.com", photoImage("b", testSize))

	assert.True(t, f.loader.Invalidate(" A@x.com "))
	assert.False(t, f.loader.Invalidate("a@x.com"))
	assert.False(t, f.loader.Invalidate(""))

	f.loader.Purge()
	assert.Equal(t, 0, f.cache.Len())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{PictureSize: 0})
	assert.ErrorIs(t, err, avatar.ErrInvalidInput)

	_, err = New(Options{PictureSize: 8})
	assert.ErrorIs(t, err, avatar.ErrInvalidInput)

	gen, err := fallback.New(16)
	require.NoError(t, err)
	_, err = New(Options{
		PictureSize: 8,
		Directory:   newFakeDirectory(),
		Opener:      fakeOpener{},
		Codec:       fakeCodec{},
		Cache:       cache.New(1024),
		Generator:   gen,
	})
	assert.ErrorIs(t, err, avatar.ErrInvalidInput)
}

func TestNew_PrivateQueueAndLoop(t *testing.T) {
	l, err := New(Options{
		PictureSize: testSize,
		Directory:   newFakeDirectory(),
		Opener:      fakeOpener{},
		Codec:       fakeCodec{},
		Cache:       cache.New(1 << 20),
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	l.Load(avatar.NewIdentity("solo@x.com", "Solo"), l.Register(sink))
	require.NoError(t, l.Close())

	// Close drains the private queue and loop, so the fetch was delivered.
	require.Equal(t, 2, sink.count())
	_, ok := l.cache.Get("solo@x.com")
	assert.True(t, ok)

	// Loads after Close are dropped.
	l.Load(avatar.NewIdentity("late@x.com", ""), l.Register(sink))
	assert.Equal(t, 2, sink.count())
	require.NoError(t, l.Close())
}

type countingMetrics struct {
	mu          sync.Mutex
	dispatched  int
	rejected    int
	delivered   int
	dropped     int
	resolutions map[Source]int
}

func (m *countingMetrics) RecordDispatch() { m.mu.Lock(); m.dispatched++; m.mu.Unlock() }
func (m *countingMetrics) RecordRejected() { m.mu.Lock(); m.rejected++; m.mu.Unlock() }
func (m *countingMetrics) RecordDelivery(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.delivered++
	} else {
		m.dropped++
	}
}
func (m *countingMetrics) RecordResolution(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolutions == nil {
		m.resolutions = map[Source]int{}
	}
	m.resolutions[src]++
}
func (m *countingMetrics) ObserveFetch(Source, time.Duration) {}

func TestMetrics(t *testing.T) {
	f := newFixture(t, 2)
	m := &countingMetrics{}
	f.loader.metrics = m

	f.dir.photos["a@x.com"] = "a.png"
	gateA := f.dir.gate("a@x.com")

	h := f.loader.Register(&recordingSink{})
	f.loader.Load(avatar.NewIdentity("a@x.com", ""), h)
	f.loader.Load(avatar.NewIdentity("b@x.com", ""), h)
	f.settle(t, 1)
	close(gateA)
	f.settle(t, 2)
	f.loader.Load(avatar.NewIdentity("b@x.com", ""), h)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 2, m.dispatched)
	assert.Equal(t, 1, m.delivered)
	assert.Equal(t, 1, m.dropped)
	assert.Equal(t, 1, m.resolutions[SourceFallback])
	assert.Equal(t, 1, m.resolutions[SourceCache])
}
