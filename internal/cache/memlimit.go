// Package cache sizes the shared chunk LRU by available system memory,
// resolving the "size-bounded by bytes" open question for chunkedData
// eviction.
package cache

import (
	"log"
	"runtime"
)

// DefaultMemoryPressurePercent is the fraction of total RAM the chunk cache
// may occupy before eviction kicks in. Deliberately conservative since the
// cache shares the process with the host map application.
const DefaultMemoryPressurePercent = 0.10

// ComputeByteBudget returns the maximum bytes the shared chunk cache
// (the ChunkCache every tile at every level uses) should hold. It takes a fraction of total
// system RAM and subtracts current Go heap usage to leave headroom for GPU
// buffer staging and the rest of the host application.
//
// Returns 0 if RAM detection fails or the computed budget is unreasonably
// small; callers should fall back to a fixed entry-count limit in that case.
func ComputeByteBudget(fraction float64, verbose bool) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("cache: cannot detect system RAM: %v; falling back to entry-count limit", err)
		}
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys

	budget := int64(float64(totalRAM)*fraction) - int64(overhead)
	if budget < 32*1024*1024 { // minimum 32 MB
		if verbose {
			log.Printf("cache: computed byte budget too small (%.1f MB); falling back to entry-count limit",
				float64(budget)/(1024*1024))
		}
		return 0
	}

	if verbose {
		log.Printf("cache: chunk cache byte budget %.1f MB (%.0f%% of %.1f GB RAM minus %.1f MB heap)",
			float64(budget)/(1024*1024), fraction*100, float64(totalRAM)/(1024*1024*1024), float64(overhead)/(1024*1024))
	}

	return budget
}
