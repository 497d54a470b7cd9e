// internal/service/live/resync.go

package live

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
)

// ResyncConfig contains configuration for scheduled full reloads
type ResyncConfig struct {
	Schedule string
	Timeout  time.Duration
}

// Resyncer periodically reloads the full complaint set from the system of
// record, repairing any change a push feed may have missed.
type Resyncer struct {
	reader complaint.Reader
	sink   complaint.Sink
	config ResyncConfig
	cron   *cron.Cron
	logger *slog.Logger
}

// NewResyncer creates a resyncer and registers its cron job
func NewResyncer(reader complaint.Reader, sink complaint.Sink, config ResyncConfig, logger *slog.Logger) (*Resyncer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	r := &Resyncer{
		reader: reader,
		sink:   sink,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}

	if _, err := r.cron.AddFunc(config.Schedule, r.scheduled); err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", config.Schedule, err)
	}

	return r, nil
}

// Start begins running the scheduled job
func (r *Resyncer) Start() {
	r.logger.Info("starting complaint resync", "schedule", r.config.Schedule)
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish
func (r *Resyncer) Stop(ctx context.Context) error {
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce reloads the full set immediately. On failure the sink keeps its
// last known snapshot.
func (r *Resyncer) RunOnce(ctx context.Context) error {
	records, err := r.reader.ListAll(ctx)
	if err != nil {
		metrics.Resyncs.WithLabelValues("error").Inc()
		return complaint.NewUpstreamUnavailable("complaint store", err)
	}

	r.sink.Replace(records)
	metrics.Resyncs.WithLabelValues("ok").Inc()
	r.logger.Debug("complaint resync complete", "count", len(records))
	return nil
}

func (r *Resyncer) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)
	defer cancel()

	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("complaint resync failed", "error", err)
	}
}
