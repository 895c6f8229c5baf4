package workers

import (
	"os"
	"runtime"
	"strconv"
)

const (
	// VipsConcurrencyEnv overrides ForVips
	VipsConcurrencyEnv = "VIPS_CONCURRENCY"

	// maxVipsThreads caps libvips threads. A thumbnail is one image; more
	// threads than this only add memory.
	maxVipsThreads = 4
)

// Count returns multiplier workers per available CPU, at least 1 and at most
// limit (0 means no limit). A positive integer in the environment variable
// override replaces the computed value, still subject to limit.
func Count(override string, multiplier float64, limit int) int {
	return count(os.Getenv(override), runtime.GOMAXPROCS(0), multiplier, limit)
}

func count(override string, available int, multiplier float64, limit int) int {
	workers := int(float64(available) * multiplier)

	if override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			workers = n
		}
	}

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForVips returns the libvips concurrency level: one thread per CPU up to
// maxVipsThreads.
func ForVips() int {
	return Count(VipsConcurrencyEnv, 1.0, maxVipsThreads)
}
