package heap

import (
	"runtime"

	"go.uber.org/zap"
)

const (
	// DefaultAltrepThreshold is the length at which vectors built from a
	// sequence switch to lazy backing.
	DefaultAltrepThreshold = 1 << 16

	DefaultInitialPages     = 1
	DefaultMemoryLimitPages = 1024
	DefaultGCInterval       = 256
	DefaultRegionSize       = 4096
	DefaultCacheRegions     = 64
)

// Config holds configuration for heap creation
type Config struct {
	// Logger overrides the package logger for this heap.
	Logger *zap.Logger

	// InitialPages is the starting size of linear memory in 64KiB pages.
	InitialPages uint32

	// MemoryLimitPages caps linear memory in pages (64KB each).
	// 0 means DefaultMemoryLimitPages (64MB). The full capacity is reserved
	// up front so data views stay valid across growth.
	MemoryLimitPages uint32

	// AltrepThreshold is the length at or above which FromValues and
	// friends produce lazily backed vectors. 0 means the default.
	AltrepThreshold int

	// GCInterval runs a collection every N allocations. Negative disables
	// automatic collection; 0 means DefaultGCInterval.
	GCInterval int

	// Torture collects before every allocation. Used to flush out
	// missing protection.
	Torture bool

	// FinalizeOnClose runs the finalizers of all remaining external
	// pointers when the heap is closed.
	FinalizeOnClose bool

	// Workers bounds parallel generation when lazy vectors materialize.
	// 0 means GOMAXPROCS.
	Workers int

	// RegionSize is the number of elements per cached region of a lazy
	// vector; CacheRegions bounds how many regions each vector keeps.
	RegionSize   int
	CacheRegions int
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = Logger()
	}
	if c.InitialPages == 0 {
		c.InitialPages = DefaultInitialPages
	}
	if c.MemoryLimitPages == 0 {
		c.MemoryLimitPages = DefaultMemoryLimitPages
	}
	if c.InitialPages > c.MemoryLimitPages {
		c.InitialPages = c.MemoryLimitPages
	}
	if c.AltrepThreshold <= 0 {
		c.AltrepThreshold = DefaultAltrepThreshold
	}
	if c.GCInterval == 0 {
		c.GCInterval = DefaultGCInterval
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.RegionSize <= 0 {
		c.RegionSize = DefaultRegionSize
	}
	if c.CacheRegions <= 0 {
		c.CacheRegions = DefaultCacheRegions
	}
	return c
}
