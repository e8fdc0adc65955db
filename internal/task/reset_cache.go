package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/spimex-api/internal/cache"
)

// ResetCacheTask is the name of the periodic cache flush.
const ResetCacheTask = "reset_cache"

// flushLayout formats the timestamp in the flush log line.
const flushLayout = "2006-01-02_15:04:05"

// ErrCacheNotFlushed is returned when the cache refused the flush.
var ErrCacheNotFlushed = errors.New("cache was not flushed")

// NewResetCacheHandler returns the handler that empties the response cache.
func NewResetCacheHandler(c cache.Cache, logger *slog.Logger, now func() time.Time) Handler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, _ json.RawMessage) error {
		ok, err := c.Flush(ctx)
		stamp := now().UTC().Format(flushLayout)
		if err != nil {
			logger.Error("Cache hasn't been flushed at "+stamp, "error", err)
			return err
		}
		if !ok {
			logger.Warn("Cache hasn't been flushed at " + stamp)
			return ErrCacheNotFlushed
		}
		logger.Info("Cache has been flushed at " + stamp)
		return nil
	}
}
