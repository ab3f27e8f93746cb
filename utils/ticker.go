package utils

import (
	"context"
	"time"

	"github.com/gridscan/gridscan/logging"
)

// SlowLogger warns every few seconds until the returned function is called or ctx is done. It is
// used around waits that can hang on the user, such as a camera permission prompt.
func SlowLogger(ctx context.Context, msg, fieldName, fieldVal string, logger logging.Logger) func() {
	return slowLogger(ctx, msg, fieldName, fieldVal, logger, 2*time.Second)
}

func slowLogger(ctx context.Context, msg, fieldName, fieldVal string, logger logging.Logger, first time.Duration) func() {
	ticker := time.NewTicker(first)
	ctx, cancel := context.WithCancel(ctx)
	start := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		interval := first
		for {
			select {
			case <-ticker.C:
				logger.CWarnw(ctx, msg, fieldName, fieldVal, "time_elapsed", time.Since(start).Round(time.Millisecond).String())
				// back off up to 5x the first interval
				if interval < 5*first {
					interval += first
					ticker.Reset(interval)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		cancel()
		<-done
	}
}
