package common

import (
	"fmt"
	"runtime"
)

// MemoryStats is the runtime summary reported by the health endpoint.
type MemoryStats struct {
	HeapAlloc  uint64 `json:"heap_alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAlloc:  m.HeapAlloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Heap: %d KB, Total: %d KB, Sys: %d KB, GC: %d, Goroutines: %d",
		m.HeapAlloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC, m.Goroutines)
}
