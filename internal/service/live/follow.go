// internal/service/live/follow.go

package live

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
)

// Follow runs feed into sink until ctx is cancelled, restarting the feed
// after retryWait whenever it fails. While the feed is down the sink keeps
// serving its last snapshot.
func Follow(ctx context.Context, feed complaint.Feed, sink complaint.Sink, retryWait time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if retryWait <= 0 {
		retryWait = time.Second
	}

	for {
		err := feed.Run(ctx, sink)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("feed ended")
		}

		metrics.UpstreamFailures.WithLabelValues("feed").Inc()
		logger.Warn("complaint feed stopped, retrying",
			"error", err,
			"retry_in", retryWait,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryWait):
		}
	}
}
