package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// wasmPageSize is the WebAssembly linear memory page size.
const wasmPageSize = 65536

// Memory is the slice of the sandbox runtime's linear memory the bridge
// needs. The wazero api.Memory type satisfies it as-is.
type Memory interface {
	// Read returns a view of byteCount bytes at offset, or false if the
	// range is out of bounds.
	Read(offset, byteCount uint32) ([]byte, bool)
	// Write copies v into memory at offset, or returns false if the range
	// is out of bounds.
	Write(offset uint32, v []byte) bool
	// Size returns the current memory size in bytes.
	Size() uint32
	// Grow adds deltaPages pages, returning the previous page count and
	// whether the grow succeeded.
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}

// Allocator is the sandbox's own heap allocator, reached through exported
// functions. Alloc returns offset 0 when the sandbox heap is exhausted.
type Allocator interface {
	Alloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, offset uint32) error
}

// Region is a byte range inside the linear memory, owned by whichever call
// allocated it.
type Region struct {
	Offset uint32
	Length uint32
}

// Stats counts bridge allocation traffic. Allocs and Frees must be equal
// whenever no call is in flight; tests lean on that invariant.
type Stats struct {
	Allocs    uint64
	Frees     uint64
	LiveBytes uint64
}

// OutOfMemoryError reports that a sandbox allocation could not be satisfied
// within the configured linear memory ceiling.
type OutOfMemoryError struct {
	Requested    uint32 // bytes asked for
	CeilingPages uint32 // configured maximum memory size, in pages
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("sandbox out of memory: %d bytes requested, ceiling %d pages", e.Requested, e.CeilingPages)
}

// Bridge allocates, frees, reads and writes regions of a sandboxed linear
// memory.
type Bridge struct {
	mem   Memory
	alloc Allocator
	log   *zap.Logger

	ceilingPages uint32
	stats        Stats
	live         map[uint32]uint32 // offset -> length, for double-free/stale-region detection
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCeiling caps the linear memory at maxPages pages. Zero means the
// default of 4096 pages (256 MiB).
func WithCeiling(maxPages uint32) Option {
	return func(b *Bridge) {
		if maxPages > 0 {
			b.ceilingPages = maxPages
		}
	}
}

// WithLogger attaches a logger for allocation-failure diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a Bridge over the given memory and allocator.
func New(mem Memory, alloc Allocator, opts ...Option) *Bridge {
	b := &Bridge{
		mem:          mem,
		alloc:        alloc,
		log:          zap.NewNop(),
		ceilingPages: 4096,
		live:         make(map[uint32]uint32),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Alloc reserves size bytes inside the sandbox. If the sandbox allocator
// reports exhaustion, the linear memory is grown by enough pages for the
// request and the allocation retried, up to the ceiling.
func (b *Bridge) Alloc(ctx context.Context, size uint32) (Region, error) {
	if size == 0 {
		size = 1 // zero-byte regions still need a distinct offset
	}
	offset, err := b.alloc.Alloc(ctx, size)
	if err != nil {
		return Region{}, fmt.Errorf("sandbox alloc: %w", err)
	}
	if offset == 0 {
		if err := b.grow(size); err != nil {
			return Region{}, err
		}
		offset, err = b.alloc.Alloc(ctx, size)
		if err != nil {
			return Region{}, fmt.Errorf("sandbox alloc after grow: %w", err)
		}
		if offset == 0 {
			return Region{}, &OutOfMemoryError{Requested: size, CeilingPages: b.ceilingPages}
		}
	}
	b.stats.Allocs++
	b.stats.LiveBytes += uint64(size)
	b.live[offset] = size
	return Region{Offset: offset, Length: size}, nil
}

// grow extends the linear memory by enough whole pages to hold size more
// bytes, failing with *OutOfMemoryError at the ceiling.
func (b *Bridge) grow(size uint32) error {
	delta := (size + wasmPageSize - 1) / wasmPageSize
	if delta == 0 {
		delta = 1
	}
	current := b.mem.Size() / wasmPageSize
	if current+delta > b.ceilingPages {
		b.log.Warn("linear memory ceiling reached",
			zap.Uint32("current_pages", current),
			zap.Uint32("requested_bytes", size),
			zap.Uint32("ceiling_pages", b.ceilingPages))
		return &OutOfMemoryError{Requested: size, CeilingPages: b.ceilingPages}
	}
	if _, ok := b.mem.Grow(delta); !ok {
		return &OutOfMemoryError{Requested: size, CeilingPages: b.ceilingPages}
	}
	return nil
}

// Free returns a region to the sandbox allocator. Freeing a region the
// bridge did not hand out (or freeing one twice) is an error: it means an
// ownership bug in the caller.
func (b *Bridge) Free(ctx context.Context, r Region) error {
	length, ok := b.live[r.Offset]
	if !ok {
		return fmt.Errorf("free of unknown region at offset %d", r.Offset)
	}
	delete(b.live, r.Offset)
	b.stats.Frees++
	b.stats.LiveBytes -= uint64(length)
	if err := b.alloc.Free(ctx, r.Offset); err != nil {
		return fmt.Errorf("sandbox free: %w", err)
	}
	return nil
}

// Write copies data into the region. The data must fit.
func (b *Bridge) Write(r Region, data []byte) error {
	if uint32(len(data)) > r.Length {
		return fmt.Errorf("write of %d bytes exceeds region length %d", len(data), r.Length)
	}
	if !b.mem.Write(r.Offset, data) {
		return fmt.Errorf("write of %d bytes at offset %d out of linear memory bounds", len(data), r.Offset)
	}
	return nil
}

// WriteAt copies data into the region starting at the given in-region
// offset. The data must fit.
func (b *Bridge) WriteAt(r Region, off uint32, data []byte) error {
	if off+uint32(len(data)) > r.Length {
		return fmt.Errorf("write of %d bytes at %d exceeds region length %d", len(data), off, r.Length)
	}
	if !b.mem.Write(r.Offset+off, data) {
		return fmt.Errorf("write of %d bytes at offset %d out of linear memory bounds", len(data), r.Offset+off)
	}
	return nil
}

// Read copies the whole region out into host-owned memory.
func (b *Bridge) Read(r Region) ([]byte, error) {
	return b.ReadAt(r, 0, r.Length)
}

// ReadAt copies byteCount bytes out of the region starting at the given
// in-region offset.
func (b *Bridge) ReadAt(r Region, off, byteCount uint32) ([]byte, error) {
	if off+byteCount > r.Length {
		return nil, fmt.Errorf("read of %d bytes at %d exceeds region length %d", byteCount, off, r.Length)
	}
	view, ok := b.mem.Read(r.Offset+off, byteCount)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at offset %d out of linear memory bounds", byteCount, r.Offset+off)
	}
	// The view aliases sandbox memory; copy before it can be mutated.
	out := make([]byte, byteCount)
	copy(out, view)
	return out, nil
}

// ReadMemory copies byteCount bytes from an arbitrary linear-memory offset,
// for engine-owned buffers whose location is reported by the engine rather
// than allocated through the bridge.
func (b *Bridge) ReadMemory(offset, byteCount uint32) ([]byte, error) {
	view, ok := b.mem.Read(offset, byteCount)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at offset %d out of linear memory bounds", byteCount, offset)
	}
	out := make([]byte, byteCount)
	copy(out, view)
	return out, nil
}

// Stats returns a snapshot of the allocation counters.
func (b *Bridge) Stats() Stats { return b.stats }
