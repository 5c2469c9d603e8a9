package heap

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/heap/internal/module"
)

const (
	pageSize   = 65536
	allocBase  = 8 // offset 0 is never handed out
	allocAlign = 8
)

// linearMemory owns the wazero runtime whose memory stores vector data.
type linearMemory struct {
	runtime wazero.Runtime
	mod     api.Module
	mem     api.Memory
}

func newLinearMemory(ctx context.Context, initialPages, maxPages uint32) (*linearMemory, error) {
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(maxPages).
		WithMemoryCapacityFromMax(true)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.InstantiateWithConfig(ctx, module.Memory(initialPages, maxPages),
		wazero.NewModuleConfig().WithName("rheap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, "instantiate heap memory")
	}

	mem := mod.ExportedMemory(module.MemoryExport)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.InvalidData(errors.PhaseRuntime, "heap module exports no memory")
	}

	return &linearMemory{runtime: rt, mod: mod, mem: mem}, nil
}

func (m *linearMemory) close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

// view returns the bytes [off, off+size) as a slice aliasing linear memory.
func (m *linearMemory) view(off, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	data, ok := m.mem.Read(off, size)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", off, size)
	}
	return data, nil
}

type block struct {
	off  uint32
	size uint32
}

// allocator is a first-fit free-list allocator over linear memory.
// Freed blocks are coalesced with their neighbours.
type allocator struct {
	mem   api.Memory
	free  []block // sorted by offset
	top   uint32
	inUse uint64
}

func newAllocator(mem api.Memory) *allocator {
	return &allocator{mem: mem, top: allocBase}
}

func alignUp(v, align uint32) (uint32, bool) {
	r := (v + align - 1) &^ (align - 1)
	return r, r >= v
}

// Alloc returns a zeroed block of at least size bytes.
func (a *allocator) Alloc(size, align uint32) (uint32, error) {
	if align < allocAlign {
		align = allocAlign
	}
	size, ok := alignUp(size, align)
	if !ok || size == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}

	for i, b := range a.free {
		if b.size < size {
			continue
		}
		off := b.off
		if b.size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = block{off: b.off + size, size: b.size - size}
		}
		a.zero(off, size)
		a.inUse += uint64(size)
		return off, nil
	}

	end := uint64(a.top) + uint64(size)
	if end > uint64(^uint32(0)) {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
	}
	if cur := uint64(a.mem.Size()); end > cur {
		delta := (end - cur + pageSize - 1) / pageSize
		if _, ok := a.mem.Grow(uint32(delta)); !ok {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
		}
	}

	off := a.top
	a.top = uint32(end)
	a.zero(off, size)
	a.inUse += uint64(size)
	return off, nil
}

// Free returns a block to the free list.
func (a *allocator) Free(ptr, size, align uint32) {
	if ptr == 0 || size == 0 {
		return
	}
	if align < allocAlign {
		align = allocAlign
	}
	size, _ = alignUp(size, align)
	a.inUse -= uint64(size)

	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off > ptr })
	a.free = append(a.free, block{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = block{off: ptr, size: size}

	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}

	// Give the tail back to the bump pointer.
	if last := a.free[len(a.free)-1]; last.off+last.size == a.top {
		a.top = last.off
		a.free = a.free[:len(a.free)-1]
	}
}

func (a *allocator) zero(off, size uint32) {
	if data, ok := a.mem.Read(off, size); ok {
		clear(data)
	}
}
