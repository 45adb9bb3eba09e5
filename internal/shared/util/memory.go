package util

import (
	"log/slog"
	"runtime"
)

// MemoryUsage is a point-in-time view of the Go heap, logged as a group.
type MemoryUsage struct {
	HeapAllocMB uint64
	HeapObjects uint64
	NumGC       uint32
}

func ReadMemoryUsage() MemoryUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryUsage{
		HeapAllocMB: m.HeapAlloc >> 20,
		HeapObjects: m.HeapObjects,
		NumGC:       m.NumGC,
	}
}

func (m MemoryUsage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("heap_mb", m.HeapAllocMB),
		slog.Uint64("heap_objects", m.HeapObjects),
		slog.Uint64("gc_cycles", uint64(m.NumGC)),
	)
}
