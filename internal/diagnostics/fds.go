package diagnostics

import (
	"context"
	"math"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// CountFDs returns the number of file descriptors open in the runner and the
// soft limit. Either value is zero when the platform does not expose it.
func CountFDs(ctx context.Context) (open, limit int) {
	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) // #nosec G115 -- pids fit in int32
	if err != nil {
		return 0, 0
	}
	if n, err := self.NumFDsWithContext(ctx); err == nil {
		open = int(n)
	}
	if limits, err := self.RlimitWithContext(ctx); err == nil {
		for _, l := range limits {
			if l.Resource == process.RLIMIT_NOFILE {
				// RLIM_INFINITY reads as no limit.
				if l.Soft <= math.MaxInt32 {
					limit = int(l.Soft)
				}
				break
			}
		}
	}
	return open, limit
}
