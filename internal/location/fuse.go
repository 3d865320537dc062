package location

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// Sink receives every fix the selector accepted
type Sink func(models.Fix)

// Fuse reads all sources concurrently and runs each fix through the shared
// selector. Accepted fixes are passed to sink one at a time, in the order they
// were accepted. Fuse returns when every source is exhausted or ctx is done.
func Fuse(ctx context.Context, selector *Selector, sink Sink, sources ...FixSource) error {
	var (
		wg     sync.WaitGroup
		sinkMu sync.Mutex
		errMu  sync.Mutex
		first  error
	)

	for _, src := range sources {
		wg.Add(1)
		go func(src FixSource) {
			defer wg.Done()
			for {
				fix, err := src.Next(ctx)
				if err != nil {
					if !errors.Is(err, ErrSourceClosed) {
						errMu.Lock()
						if first == nil {
							first = err
						}
						errMu.Unlock()
					}
					return
				}

				// sink order matches acceptance order
				sinkMu.Lock()
				if selector.Offer(fix) {
					sink(fix)
				}
				sinkMu.Unlock()
			}
		}(src)
	}

	wg.Wait()

	if first != nil && !errors.Is(first, context.Canceled) {
		log.Printf("[Fuse] Fix source stopped: %v", first)
		return first
	}
	return nil
}
