// internal/adapter/feed/nats.go

package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// Subjects names the NATS subjects under a common prefix
type Subjects struct {
	Prefix string
}

// Upsert carries a single complaint record
func (s Subjects) Upsert() string { return s.Prefix + ".feed.upsert" }

// Remove carries {"id": "..."}
func (s Subjects) Remove() string { return s.Prefix + ".feed.remove" }

// Snapshot carries the full complaint set
func (s Subjects) Snapshot() string { return s.Prefix + ".feed.snapshot" }

// Feed matches every feed subject. One subscription keeps them ordered.
func (s Subjects) Feed() string { return s.Prefix + ".feed.>" }

// Transition carries lifecycle events
func (s Subjects) Transition() string { return s.Prefix + ".events.transition" }

// removal is the payload of a remove message
type removal struct {
	ID string `json:"id"`
}

// NATSFeed pushes complaint changes published on NATS into a sink
type NATSFeed struct {
	nc       *nats.Conn
	subjects Subjects
	reader   complaint.Reader
	buffer   int
	logger   *slog.Logger
}

// NewNATSFeed creates a new NATS feed. When reader is set, every Run
// starts with a full snapshot from it.
func NewNATSFeed(nc *nats.Conn, subjects Subjects, reader complaint.Reader, buffer int, logger *slog.Logger) *NATSFeed {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 4096
	}
	return &NATSFeed{
		nc:       nc,
		subjects: subjects,
		reader:   reader,
		buffer:   buffer,
		logger:   logger,
	}
}

// Run implements complaint.Feed
func (f *NATSFeed) Run(ctx context.Context, sink complaint.Sink) error {
	ch := make(chan *nats.Msg, f.buffer)
	sub, err := f.nc.ChanSubscribe(f.subjects.Feed(), ch)
	if err != nil {
		return complaint.NewUpstreamUnavailable("nats", err)
	}
	defer sub.Unsubscribe()

	// Subscribe before reading so no change falls between the two
	if f.reader != nil {
		records, err := f.reader.ListAll(ctx)
		if err != nil {
			return complaint.NewUpstreamUnavailable("complaint store", err)
		}
		sink.Replace(records)
	}

	f.logger.Info("following complaint feed", "subject", f.subjects.Feed())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			f.apply(sink, msg.Subject, msg.Data)
		case <-ticker.C:
			if f.nc.IsClosed() {
				return complaint.NewUpstreamUnavailable("nats", nats.ErrConnectionClosed)
			}
		}
	}
}

// apply decodes one feed message into a sink call
func (f *NATSFeed) apply(sink complaint.Sink, subject string, data []byte) {
	switch subject {
	case f.subjects.Upsert():
		var r complaint.Record
		if err := json.Unmarshal(data, &r); err != nil {
			f.logger.Warn("dropping undecodable complaint", "error", err)
			return
		}
		sink.Upsert(r)

	case f.subjects.Remove():
		var m removal
		if err := json.Unmarshal(data, &m); err != nil || m.ID == "" {
			f.logger.Warn("dropping malformed removal", "error", err)
			return
		}
		sink.Remove(m.ID)

	case f.subjects.Snapshot():
		var records []complaint.Record
		if err := json.Unmarshal(data, &records); err != nil {
			f.logger.Warn("dropping undecodable snapshot", "error", err)
			return
		}
		sink.Replace(records)

	default:
		f.logger.Debug("ignoring feed message", "subject", subject)
	}
}

// Publisher announces complaint changes and lifecycle events on NATS
type Publisher struct {
	nc       *nats.Conn
	subjects Subjects
}

// NewPublisher creates a new NATS publisher
func NewPublisher(nc *nats.Conn, subjects Subjects) *Publisher {
	return &Publisher{
		nc:       nc,
		subjects: subjects,
	}
}

// NotifyUpsert publishes a changed complaint to every feed follower
func (p *Publisher) NotifyUpsert(_ context.Context, record complaint.Record) error {
	return p.publish(p.subjects.Upsert(), record)
}

// PublishTransition implements complaint.EventPublisher
func (p *Publisher) PublishTransition(_ context.Context, event complaint.TransitionEvent) error {
	return p.publish(p.subjects.Transition(), event)
}

func (p *Publisher) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return complaint.NewUpstreamUnavailable("nats", err)
	}
	return nil
}
