package vector

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// lazy is the altrep payload stored in the heap: a generator plus a cache
// of regions already produced.
type lazy[T Element] struct {
	gen        Generator[T]
	cache      *regionCache[T]
	regionSize int
}

func newLazy[T Element](gen Generator[T], regionSize, cacheRegions int) *lazy[T] {
	return &lazy[T]{
		gen:        gen,
		cache:      newRegionCache[T](cacheRegions),
		regionSize: regionSize,
	}
}

func (l *lazy[T]) region(index int) []T {
	if values, ok := l.cache.get(index); ok {
		return values
	}
	start := index * l.regionSize
	n := min(l.regionSize, l.gen.Len()-start)
	values := make([]T, n)
	fill(l.gen, start, values)
	l.cache.set(index, values)
	return values
}

func (l *lazy[T]) elt(i int) T {
	return l.region(i / l.regionSize)[i%l.regionSize]
}

// read copies [start, start+len(dst)) through the region cache.
func (l *lazy[T]) read(start int, dst []T) {
	for len(dst) > 0 {
		values := l.region(start / l.regionSize)
		n := copy(dst, values[start%l.regionSize:])
		dst = dst[n:]
		start += n
	}
}

// generate fills dst with the whole vector, one region per task. The cache
// is bypassed so a full pass does not evict the working set.
func (l *lazy[T]) generate(ctx context.Context, dst []T, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(dst); start += l.regionSize {
		end := min(start+l.regionSize, len(dst))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fill(l.gen, start, dst[start:end])
			return nil
		})
	}
	return g.Wait()
}
