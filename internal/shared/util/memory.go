package util

import "runtime"

// GetHeapAllocMB reads the live heap size for the status report, rounded
// down to whole megabytes.
func GetHeapAllocMB() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc >> 20
}
