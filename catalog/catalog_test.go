package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/blobarena"
	"github.com/hupe1980/blobarena/blobstore"
	"github.com/hupe1980/blobarena/resource"
	"github.com/hupe1980/blobarena/snapshot"
)

type weapon struct {
	Name   blobarena.String
	Damage int32
}

// buildWeapons returns a container whose root is a map of n weapons whose
// damage is id*scale.
func buildWeapons(t *testing.T, n int, scale int32) blobarena.Container {
	t.Helper()
	c, err := blobarena.New(1024, blobarena.WithAllocator(blobarena.HeapAllocator))
	require.NoError(t, err)
	t.Cleanup(c.Dispose)

	m, err := blobarena.AllocMap[uint32, weapon](c, n)
	require.NoError(t, err)
	for id := range uint32(n) {
		name, err := blobarena.AllocString(c, fmt.Sprintf("weapon-%d", id))
		require.NoError(t, err)
		require.NoError(t, m.Set(c, id, weapon{Name: name, Damage: int32(id) * scale}))
	}
	require.NoError(t, c.SetRoot(m.Raw()))
	return c
}

func weaponsOf(c blobarena.Container) blobarena.Map[uint32, weapon] {
	return blobarena.Map[uint32, weapon](c.Root())
}

func stores(t *testing.T) map[string]blobstore.Store {
	return map[string]blobstore.Store{
		"Memory": blobstore.NewMemoryStore(),
		"Local":  blobstore.NewLocalStore(t.TempDir()),
	}
}

func TestCatalog(t *testing.T) {
	for storeName, store := range stores(t) {
		for _, codec := range []snapshot.Codec{snapshot.None, snapshot.LZ4, snapshot.ZSTD} {
			t.Run(storeName+"/"+codec.String(), func(t *testing.T) {
				ctx := context.Background()
				name := "game/" + strings.ToLower(codec.String())
				cat := New(store, WithCompression(codec), WithAllocator(blobarena.HeapAllocator))
				defer cat.Close()

				blob, err := cat.Publish(ctx, name, buildWeapons(t, 20, 2))
				require.NoError(t, err)
				assert.Equal(t, name+"/00000001.blob", blob)

				c, err := cat.Load(ctx, name)
				require.NoError(t, err)
				weapons := weaponsOf(c)
				require.NoError(t, weapons.Verify(c))
				w, err := weapons.Get(c, 7)
				require.NoError(t, err)
				assert.Equal(t, int32(14), w.Damage)
				assert.Equal(t, "weapon-7", w.Name.Value(c))

				blob, err = cat.Publish(ctx, name, buildWeapons(t, 20, 3))
				require.NoError(t, err)
				assert.Equal(t, name+"/00000002.blob", blob)

				// The cached container is served until evicted.
				again, err := cat.Load(ctx, name)
				require.NoError(t, err)
				w, _ = weaponsOf(again).Get(again, 7)
				assert.Equal(t, int32(14), w.Damage)

				assert.True(t, cat.Evict(name))
				assert.False(t, c.IsValid())
				assert.False(t, cat.Evict(name))

				c, err = cat.Load(ctx, name)
				require.NoError(t, err)
				w, _ = weaponsOf(c).Get(c, 7)
				assert.Equal(t, int32(21), w.Damage)

				loaded, ok := cat.Loaded(name)
				assert.True(t, ok)
				assert.Equal(t, name+"/00000002.blob", loaded)

				versions, err := cat.Versions(ctx, name)
				require.NoError(t, err)
				assert.Equal(t, []string{name + "/00000001.blob", name + "/00000002.blob"}, versions)

				removed, err := cat.Prune(ctx, name, 1)
				require.NoError(t, err)
				assert.Equal(t, 1, removed)
				versions, err = cat.Versions(ctx, name)
				require.NoError(t, err)
				assert.Equal(t, []string{name + "/00000002.blob"}, versions)
			})
		}
	}
}

func TestCatalog_NotFound(t *testing.T) {
	cat := New(blobstore.NewMemoryStore())
	defer cat.Close()

	_, err := cat.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCatalog_InvalidName(t *testing.T) {
	cat := New(blobstore.NewMemoryStore())
	defer cat.Close()
	ctx := context.Background()

	for _, name := range []string{"", ".", "/abs", "../up", "a//b", "a/", "CURRENT", "items/CURRENT"} {
		_, err := cat.Load(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = cat.Publish(ctx, name, blobarena.Container{})
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestCatalog_PublishInvalidContainer(t *testing.T) {
	store := blobstore.NewMemoryStore()
	cat := New(store)
	defer cat.Close()

	_, err := cat.Publish(context.Background(), "items", blobarena.Container{})
	assert.ErrorIs(t, err, blobarena.ErrInvalidOperation)

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCatalog_CorruptPointer(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "items/CURRENT", []byte("elsewhere/1.blob")))

	cat := New(store)
	defer cat.Close()

	_, err := cat.Load(context.Background(), "items")
	assert.ErrorIs(t, err, blobarena.ErrCorrupt)
}

func TestCatalog_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	cat := New(store)
	defer cat.Close()

	blob, err := cat.Publish(ctx, "items", buildWeapons(t, 4, 1))
	require.NoError(t, err)

	data, err := blobstore.ReadAll(ctx, store, blob)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, store.Put(ctx, blob, data))

	_, err = cat.Load(ctx, "items")
	assert.ErrorIs(t, err, snapshot.ErrChecksumMismatch)
}

// countingStore counts opens of snapshot blobs.
type countingStore struct {
	blobstore.Store
	opens atomic.Int32
}

func (s *countingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if strings.HasSuffix(name, blobSuffix) {
		s.opens.Add(1)
	}
	return s.Store.Open(ctx, name)
}

func TestCatalog_ConcurrentLoadDecodesOnce(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: blobstore.NewMemoryStore()}

	publisher := New(store)
	_, err := publisher.Publish(ctx, "weapons", buildWeapons(t, 100, 5))
	require.NoError(t, err)
	require.NoError(t, publisher.Close())

	cat := New(store, WithAllocator(blobarena.HeapAllocator))
	defer cat.Close()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := cat.Load(ctx, "weapons")
			if !assert.NoError(t, err) {
				return
			}
			w, ok := weaponsOf(c).TryGetValue(c, 42)
			assert.True(t, ok)
			assert.Equal(t, int32(210), w.Damage)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.opens.Load())
}

func TestCatalog_LoadAll(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	cat := New(store, WithResourceController(rc), WithCompression(snapshot.LZ4))
	defer cat.Close()

	names := []string{"items", "monsters", "quests", "zones"}
	for i, name := range names {
		_, err := cat.Publish(ctx, name, buildWeapons(t, 10, int32(i+1)))
		require.NoError(t, err)
	}

	loaded, err := cat.LoadAll(ctx, names...)
	require.NoError(t, err)
	require.Len(t, loaded, len(names))
	for i, name := range names {
		c := loaded[name]
		w, err := weaponsOf(c).Get(c, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(3*(i+1)), w.Damage, name)
	}

	_, err = cat.LoadAll(ctx, "items", "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCatalog_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	containers := make([]blobarena.Container, 6)
	for i := range containers {
		containers[i] = buildWeapons(t, 5, int32(i+1))
	}

	var wg sync.WaitGroup
	blobs := make([]string, len(containers))
	for i := range blobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cat := New(store)
			blob, err := cat.Publish(ctx, "items", containers[i])
			assert.NoError(t, err)
			blobs[i] = blob
		}()
	}
	wg.Wait()

	assert.Len(t, distinct(blobs), len(blobs))

	cat := New(store)
	defer cat.Close()
	versions, err := cat.Versions(ctx, "items")
	require.NoError(t, err)
	assert.Len(t, versions, len(blobs))

	newest := blobName("items", uint64(len(blobs)))
	pointer, err := blobstore.ReadAll(ctx, store, pointerOf("items"))
	require.NoError(t, err)
	assert.Equal(t, newest, string(pointer))

	_, err = cat.Load(ctx, "items")
	require.NoError(t, err)
	loaded, ok := cat.Loaded("items")
	require.True(t, ok)
	assert.Equal(t, newest, loaded)
}

// lateStore holds the first CURRENT update naming stale until a CURRENT
// update naming fresh has landed.
type lateStore struct {
	*blobstore.MemoryStore
	stale, fresh string
	waiting      chan struct{}
	landed       chan struct{}
	held         atomic.Bool
	once         sync.Once
}

func (s *lateStore) Put(ctx context.Context, name string, data []byte) error {
	pointer := path.Base(name) == PointerName
	if pointer && string(data) == s.stale && s.held.CompareAndSwap(false, true) {
		close(s.waiting)
		select {
		case <-s.landed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.MemoryStore.Put(ctx, name, data); err != nil {
		return err
	}
	if pointer && string(data) == s.fresh {
		s.once.Do(func() { close(s.landed) })
	}
	return nil
}

func TestCatalog_PublishNeverRegressesCurrent(t *testing.T) {
	ctx := context.Background()
	store := &lateStore{
		MemoryStore: blobstore.NewMemoryStore(),
		stale:       blobName("items", 1),
		fresh:       blobName("items", 2),
		waiting:     make(chan struct{}),
		landed:      make(chan struct{}),
	}
	older, newer := buildWeapons(t, 5, 1), buildWeapons(t, 5, 2)

	olderErr := make(chan error, 1)
	go func() {
		_, err := New(store).Publish(ctx, "items", older)
		olderErr <- err
	}()
	<-store.waiting

	// The newer publish lands CURRENT while the older one is still in flight.
	blob, err := New(store).Publish(ctx, "items", newer)
	require.NoError(t, err)
	require.Equal(t, blobName("items", 2), blob)
	require.NoError(t, <-olderErr)

	pointer, err := blobstore.ReadAll(ctx, store, pointerOf("items"))
	require.NoError(t, err)
	assert.Equal(t, blobName("items", 2), string(pointer))

	cat := New(store)
	defer cat.Close()
	c, err := cat.Load(ctx, "items")
	require.NoError(t, err)
	loaded, _ := cat.Loaded("items")
	assert.Equal(t, blobName("items", 2), loaded)
	w, err := weaponsOf(c).Get(c, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(6), w.Damage)
}

// gatedStore holds snapshot opens until release is closed.
type gatedStore struct {
	blobstore.Store
	opens   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if strings.HasSuffix(name, blobSuffix) {
		if s.opens.Add(1) == 1 {
			close(s.entered)
		}
		<-s.release
	}
	return s.Store.Open(ctx, name)
}

func TestCatalog_LoadSurvivesCanceledCaller(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		Store:   blobstore.NewMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	_, err := New(store).Publish(ctx, "weapons", buildWeapons(t, 10, 3))
	require.NoError(t, err)

	cat := New(store, WithAllocator(blobarena.HeapAllocator))
	defer cat.Close()

	first, cancel := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := cat.Load(first, "weapons")
		firstErr <- err
	}()
	<-store.entered

	type result struct {
		c   blobarena.Container
		err error
	}
	second := make(chan result, 1)
	go func() {
		c, err := cat.Load(ctx, "weapons")
		second <- result{c, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(store.release)

	res := <-second
	require.NoError(t, res.err)
	w, err := weaponsOf(res.c).Get(res.c, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(12), w.Damage)
	assert.Equal(t, int32(1), store.opens.Load())
}

func distinct(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func TestCatalog_Close(t *testing.T) {
	ctx := context.Background()
	cat := New(blobstore.NewMemoryStore())

	_, err := cat.Publish(ctx, "items", buildWeapons(t, 4, 1))
	require.NoError(t, err)
	c, err := cat.Load(ctx, "items")
	require.NoError(t, err)

	require.NoError(t, cat.Close())
	assert.False(t, c.IsValid())
	require.NoError(t, cat.Close())

	_, err = cat.Load(ctx, "items")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCatalog_MemoryBudget(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	_, err := New(store).Publish(ctx, "items", buildWeapons(t, 64, 1))
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	cat := New(store, WithResourceController(rc), WithAllocator(blobarena.HeapAllocator))
	defer cat.Close()

	_, err = cat.Load(ctx, "items")
	assert.ErrorIs(t, err, blobarena.ErrMemoryLimitExceeded)
	assert.Zero(t, rc.MemoryUsage())
}
