package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/blobarena"
	"github.com/hupe1980/blobarena/blobstore"
	"github.com/hupe1980/blobarena/snapshot"
)

// PointerName is the blob in each name's directory that names the live
// snapshot.
const PointerName = "CURRENT"

const (
	blobSuffix     = ".blob"
	publishRetries = 16
)

var (
	// ErrClosed is returned by operations on a closed Catalog.
	ErrClosed = errors.New("catalog closed")

	// ErrInvalidName is returned for names that cannot form a directory
	// in the store.
	ErrInvalidName = errors.New("invalid catalog name")
)

type entry struct {
	c    blobarena.Container
	blob string
}

// Catalog publishes and loads named Containers. Safe for concurrent use.
//
// Containers returned by Load stay owned by the Catalog: callers must not
// dispose them, and must stop using them after Evict or Close.
type Catalog struct {
	store blobstore.Store
	opts  options
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

// New creates a Catalog over store.
func New(store blobstore.Store, opts ...Option) *Catalog {
	o := options{
		codec:     snapshot.None,
		allocator: blobarena.MmapAllocator,
		logger:    blobarena.NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Catalog{
		store:   store,
		opts:    o,
		entries: make(map[string]*entry),
	}
}

func checkName(name string) error {
	if name == "" || name == "." || path.Clean(name) != name ||
		strings.HasPrefix(name, "/") || strings.HasPrefix(name, "..") ||
		path.Base(name) == PointerName {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func pointerOf(name string) string {
	return name + "/" + PointerName
}

func blobName(name string, seq uint64) string {
	return fmt.Sprintf("%s/%08d%s", name, seq, blobSuffix)
}

// Versions returns the snapshot blobs of name, oldest first.
func (cat *Catalog) Versions(ctx context.Context, name string) ([]string, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	names, err := cat.store.List(ctx, name+"/")
	if err != nil {
		return nil, err
	}
	var blobs []string
	for _, n := range names {
		if _, ok := parseSeq(name, n); ok {
			blobs = append(blobs, n)
		}
	}
	return blobs, nil
}

func parseSeq(name, blob string) (uint64, bool) {
	base, ok := strings.CutPrefix(blob, name+"/")
	if !ok || strings.Contains(base, "/") {
		return 0, false
	}
	digits, ok := strings.CutSuffix(base, blobSuffix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseUint(digits, 10, 64)
	return seq, err == nil
}

// Publish writes c as the next snapshot of name and advances CURRENT to the
// newest snapshot, which is c's unless a concurrent publisher wrote a later
// one. It returns the name of the written blob. Loaded Containers are not
// refreshed; Evict name to pick up the new snapshot.
func (cat *Catalog) Publish(ctx context.Context, name string, c blobarena.Container) (blob string, err error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	defer func() {
		cat.opts.logger.LogPublish(ctx, name, blob, err)
	}()

	var buf bytes.Buffer
	if err := snapshot.Write(ctx, &buf, c, cat.opts.snapshotOptions(name)...); err != nil {
		return "", err
	}

	blobs, err := cat.Versions(ctx, name)
	if err != nil {
		return "", err
	}
	var seq uint64
	if len(blobs) > 0 {
		seq, _ = parseSeq(name, blobs[len(blobs)-1])
	}

	if blob, err = cat.putSnapshot(ctx, name, seq+1, buf.Bytes()); err != nil {
		return "", err
	}
	if err := cat.advance(ctx, name, blob); err != nil {
		return blob, fmt.Errorf("failed to update %s: %w", pointerOf(name), err)
	}
	return blob, nil
}

// advance points CURRENT at the newest snapshot of name, never at an older
// one than it already names. Each round re-lists after its own write, so the
// last publisher to write CURRENT leaves it at the highest sequence.
func (cat *Catalog) advance(ctx context.Context, name, blob string) error {
	target, _ := parseSeq(name, blob)
	for range publishRetries {
		blobs, err := cat.Versions(ctx, name)
		if err != nil {
			return err
		}
		for _, b := range blobs {
			if seq, _ := parseSeq(name, b); seq > target {
				target = seq
			}
		}

		current, err := cat.current(ctx, name)
		if err != nil {
			return err
		}
		if current >= target {
			return nil
		}
		if err := cat.store.Put(ctx, pointerOf(name), []byte(blobName(name, target))); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s kept moving after %d updates", pointerOf(name), publishRetries)
}

// current returns the sequence CURRENT points at, or 0 if it is missing or
// unreadable.
func (cat *Catalog) current(ctx context.Context, name string) (uint64, error) {
	pointer, err := blobstore.ReadAll(ctx, cat.store, pointerOf(name))
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seq, _ := parseSeq(name, strings.TrimSpace(string(pointer)))
	return seq, nil
}

// putSnapshot stores data under the first free sequence number from seq.
// Stores without conditional puts simply overwrite.
func (cat *Catalog) putSnapshot(ctx context.Context, name string, seq uint64, data []byte) (string, error) {
	cp, ok := cat.store.(blobstore.ConditionalPutter)
	if !ok {
		blob := blobName(name, seq)
		return blob, cat.store.Put(ctx, blob, data)
	}

	for range publishRetries {
		blob := blobName(name, seq)
		err := cp.PutIfNotExists(ctx, blob, data)
		if err == nil {
			return blob, nil
		}
		if !errors.Is(err, blobstore.ErrExists) {
			return "", err
		}
		seq++
	}
	return "", fmt.Errorf("failed to publish %s: %d concurrent publishers won", name, publishRetries)
}

// Load returns the Container currently published under name. The first
// call decodes the snapshot; concurrent and later calls share it. A caller
// whose ctx ends stops waiting, but the shared decode runs on for the
// others.
func (cat *Catalog) Load(ctx context.Context, name string) (blobarena.Container, error) {
	if err := checkName(name); err != nil {
		return blobarena.Container{}, err
	}
	if c, ok, err := cat.cached(name); ok || err != nil {
		return c, err
	}

	ch := cat.group.DoChan(name, func() (any, error) {
		if c, ok, err := cat.cached(name); ok || err != nil {
			return c, err
		}
		return cat.load(context.WithoutCancel(ctx), name)
	})
	select {
	case <-ctx.Done():
		return blobarena.Container{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return blobarena.Container{}, res.Err
		}
		return res.Val.(blobarena.Container), nil
	}
}

func (cat *Catalog) cached(name string) (blobarena.Container, bool, error) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	if cat.closed {
		return blobarena.Container{}, false, ErrClosed
	}
	if e, ok := cat.entries[name]; ok {
		return e.c, true, nil
	}
	return blobarena.Container{}, false, nil
}

func (cat *Catalog) load(ctx context.Context, name string) (c blobarena.Container, err error) {
	var blob string
	defer func() {
		cat.opts.logger.LogLoad(ctx, name, blob, c.Len(), err)
	}()

	pointer, err := blobstore.ReadAll(ctx, cat.store, pointerOf(name))
	if err != nil {
		return blobarena.Container{}, err
	}
	blob = strings.TrimSpace(string(pointer))
	if _, ok := parseSeq(name, blob); !ok {
		return blobarena.Container{}, fmt.Errorf("%w: %s points at %q", blobarena.ErrCorrupt, pointerOf(name), blob)
	}

	c, err = cat.decode(ctx, name, blob)
	if err != nil {
		return blobarena.Container{}, fmt.Errorf("failed to load %s: %w", blob, err)
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()
	if cat.closed {
		c.Dispose()
		return blobarena.Container{}, ErrClosed
	}
	cat.entries[name] = &entry{c: c, blob: blob}
	return c, nil
}

func (cat *Catalog) decode(ctx context.Context, name, blob string) (blobarena.Container, error) {
	b, err := cat.store.Open(ctx, blob)
	if err != nil {
		return blobarena.Container{}, err
	}
	defer func() { _ = b.Close() }()

	var r io.Reader
	if m, ok := b.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return blobarena.Container{}, err
		}
		r = bytes.NewReader(data)
	} else {
		rc, err := b.ReadRange(ctx, 0, b.Size())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return blobarena.Container{}, snapshot.ErrTruncated
			}
			return blobarena.Container{}, err
		}
		defer func() { _ = rc.Close() }()
		r = rc
	}
	return snapshot.Read(ctx, r, cat.opts.snapshotOptions(name)...)
}

// LoadAll loads names in parallel. Each load holds one of the resource
// controller's background worker slots, so catalogs sharing a controller
// share the bound.
func (cat *Catalog) LoadAll(ctx context.Context, names ...string) (map[string]blobarena.Container, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cat.opts.rc.MaxBackgroundWorkers(), 1))

	var mu sync.Mutex
	out := make(map[string]blobarena.Container, len(names))
	for _, name := range names {
		g.Go(func() error {
			if err := cat.opts.rc.AcquireBackground(ctx); err != nil {
				return err
			}
			defer cat.opts.rc.ReleaseBackground()

			c, err := cat.Load(ctx, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			mu.Lock()
			out[name] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Loaded reports the blob the cached Container of name was decoded from.
func (cat *Catalog) Loaded(name string) (string, bool) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	if e, ok := cat.entries[name]; ok {
		return e.blob, true
	}
	return "", false
}

// Evict drops and disposes the cached Container of name.
func (cat *Catalog) Evict(name string) bool {
	cat.mu.Lock()
	e, ok := cat.entries[name]
	delete(cat.entries, name)
	cat.mu.Unlock()

	if ok {
		e.c.Dispose()
	}
	return ok
}

// Prune deletes all but the newest keep snapshot blobs of name. The blob
// CURRENT points at is never deleted.
func (cat *Catalog) Prune(ctx context.Context, name string, keep int) (int, error) {
	blobs, err := cat.Versions(ctx, name)
	if err != nil {
		return 0, err
	}
	pointer, err := blobstore.ReadAll(ctx, cat.store, pointerOf(name))
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return 0, err
	}
	live := strings.TrimSpace(string(pointer))

	removed := 0
	for _, blob := range blobs[:max(len(blobs)-max(keep, 0), 0)] {
		if blob == live {
			continue
		}
		if err := cat.store.Delete(ctx, blob); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Close disposes every cached Container. Later loads fail with ErrClosed.
func (cat *Catalog) Close() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if cat.closed {
		return nil
	}
	cat.closed = true
	for name, e := range cat.entries {
		e.c.Dispose()
		delete(cat.entries, name)
	}
	return nil
}
