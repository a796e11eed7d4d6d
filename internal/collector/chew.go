package collector

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// spins keeps the busy loop observable so it is not optimized away.
var spins atomic.Uint64

// Chew keeps threads OS threads busy for at least d, which makes placement
// visible to external tools such as top. It returns early with the context
// error if ctx is canceled.
func Chew(ctx context.Context, threads int, d time.Duration) error {
	if d <= 0 || threads < 1 {
		return nil
	}
	deadline := time.Now().Add(d)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			var count uint64
			for time.Now().Before(deadline) {
				if err := gctx.Err(); err != nil {
					return err
				}
				for j := 0; j < 100000; j++ {
					count++
				}
			}
			spins.Add(count)
			return nil
		})
	}
	return g.Wait()
}
