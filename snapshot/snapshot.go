package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/blobarena"
	"github.com/hupe1980/blobarena/internal/conv"
	"github.com/hupe1980/blobarena/internal/fs"
	"github.com/hupe1980/blobarena/internal/hash"
	"github.com/hupe1980/blobarena/internal/mmap"
	"github.com/hupe1980/blobarena/resource"
)

// Write encodes the used bytes of c to w.
func Write(ctx context.Context, w io.Writer, c blobarena.Container, opts ...Option) (err error) {
	o := applyOptions(opts)
	if !c.IsValid() {
		return fmt.Errorf("%w: cannot snapshot an invalid container", blobarena.ErrInvalidOperation)
	}
	if !o.codec.valid() {
		return fmt.Errorf("%w: codec %s", blobarena.ErrInvalidArgument, o.codec)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := c.Bytes()
	h := header{
		Version: Version,
		Codec:   o.codec,
		CRC:     hash.CRC32C(data),
		Used:    uint64(len(data)),
		Root:    c.Root().Offset(),
	}
	defer func() {
		o.logger.LogSnapshot(ctx, "write", int64(HeaderSize+h.Stored), o.codec.String(), err) //nolint:gosec // bounded by arena size
	}()

	payload := data
	if o.codec != None {
		if payload, err = encodePayload(data, o.codec); err != nil {
			return err
		}
	}
	h.Stored = uint64(len(payload))

	rw := resource.NewRateLimitedWriter(ctx, w, o.rc)
	if _, err = rw.Write(h.marshal()); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err = rw.Write(payload); err != nil {
		return fmt.Errorf("failed to write snapshot payload: %w", err)
	}
	return nil
}

// Read decodes a snapshot from r into a new Container.
func Read(ctx context.Context, r io.Reader, opts ...Option) (c blobarena.Container, err error) {
	o := applyOptions(opts)
	var h header
	defer func() {
		o.logger.LogSnapshot(ctx, "read", int64(HeaderSize+h.Stored), h.Codec.String(), err) //nolint:gosec // bounded by arena size
	}()

	rr := resource.NewRateLimitedReader(ctx, r, o.rc)
	hb := make([]byte, HeaderSize)
	if _, err = io.ReadFull(rr, hb); err != nil {
		return blobarena.Container{}, truncated(err)
	}
	if h, err = parseHeader(hb); err != nil {
		return blobarena.Container{}, err
	}

	stored, err := conv.To[int](h.Stored)
	if err != nil {
		return blobarena.Container{}, fmt.Errorf("%w: stored length %d", blobarena.ErrCorrupt, h.Stored)
	}
	payload, err := io.ReadAll(io.LimitReader(rr, int64(stored)))
	if err != nil {
		return blobarena.Container{}, truncated(err)
	}
	if len(payload) != stored {
		return blobarena.Container{}, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, len(payload), stored)
	}

	data, release, err := decode(h, payload, o.rc)
	if err != nil {
		return blobarena.Container{}, err
	}
	defer release()
	return blobarena.FromBytes(data, o.containerOptions()...)
}

// Open loads the snapshot file at path. Uncompressed snapshots are mapped
// privately and used in place; compressed ones are decoded into a new arena.
func Open(path string, opts ...Option) (c blobarena.Container, err error) {
	o := applyOptions(opts)
	ctx := context.Background()
	var h header
	defer func() {
		o.logger.LogSnapshot(ctx, "open", int64(HeaderSize+h.Stored), h.Codec.String(), err) //nolint:gosec // bounded by arena size
	}()

	m, err := mmap.OpenPrivate(path)
	if err != nil {
		return blobarena.Container{}, fmt.Errorf("failed to map snapshot %s: %w", path, err)
	}
	adopted := false
	defer func() {
		if !adopted {
			_ = m.Close()
		}
	}()

	if h, err = parseHeader(m.Bytes()); err != nil {
		return blobarena.Container{}, err
	}
	if uint64(m.Size()-HeaderSize) < h.Stored {
		return blobarena.Container{}, fmt.Errorf("%w: file has %d of %d payload bytes", ErrTruncated, m.Size()-HeaderSize, h.Stored)
	}
	stored := int(h.Stored) //nolint:gosec // bounded by the file size

	if h.Codec != None {
		data, release, err := decode(h, m.Bytes()[HeaderSize:HeaderSize+stored], o.rc)
		if err != nil {
			return blobarena.Container{}, err
		}
		defer release()
		return blobarena.FromBytes(data, o.containerOptions()...)
	}

	region, err := m.Region(HeaderSize, stored)
	if err != nil {
		return blobarena.Container{}, err
	}
	data := region.Bytes()
	if sum := hash.CRC32C(data); sum != h.CRC {
		return blobarena.Container{}, fmt.Errorf("%w: crc %#08x, header %#08x", ErrChecksumMismatch, sum, h.CRC)
	}
	_ = region.Advise(mmap.AccessRandom)

	c, err = blobarena.FromMapping(m, data, o.containerOptions()...)
	if err != nil {
		return blobarena.Container{}, err
	}
	adopted = true
	return c, nil
}

// WriteFile writes a snapshot of c to path atomically: the data goes to a
// temporary file in the same directory that is synced and renamed over path.
func WriteFile(ctx context.Context, path string, c blobarena.Container, opts ...Option) error {
	return writeFile(ctx, fs.Default, path, c, opts...)
}

func writeFile(ctx context.Context, fsys fs.FileSystem, path string, c blobarena.Container, opts ...Option) error {
	f, err := fs.CreateAtomic(fsys, path)
	if err != nil {
		return err
	}
	if err := Write(ctx, f, c, opts...); err != nil {
		_ = f.Abort()
		return err
	}
	return f.Commit()
}

// decode turns a stored payload into the raw arena image and checks it.
// The decompression buffer is charged to rc until release is called.
func decode(h header, stored []byte, rc *resource.Controller) (data []byte, release func(), err error) {
	release = func() {}
	data = stored
	if h.Codec != None {
		if err := checkBlocks(stored, h.Used); err != nil {
			return nil, release, err
		}
		size := int64(h.Used) //nolint:gosec // bounded by the checked blocks
		if !rc.TryAcquireMemory(size) {
			return nil, release, fmt.Errorf("%w: cannot reserve %d bytes to decompress", blobarena.ErrMemoryLimitExceeded, size)
		}
		release = func() { rc.ReleaseMemory(size) }

		data = make([]byte, h.Used)
		if err := decodePayload(data, stored, h.Codec); err != nil {
			release()
			return nil, func() {}, err
		}
	}
	if sum := hash.CRC32C(data); sum != h.CRC {
		release()
		return nil, func() {}, fmt.Errorf("%w: crc %#08x, header %#08x", ErrChecksumMismatch, sum, h.CRC)
	}
	return data, release, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}
