package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ranjitk/sensor-monitor/internal/decision"
	"github.com/ranjitk/sensor-monitor/internal/history"
	"github.com/ranjitk/sensor-monitor/internal/notify"
	"github.com/ranjitk/sensor-monitor/internal/protocol"
	"github.com/ranjitk/sensor-monitor/internal/reading"
	"github.com/ranjitk/sensor-monitor/internal/registry"
)

// RecordSink persists readings. Record appends exactly one row and
// returns its identifier; MarkAlertSent flags that row once an alert for
// it was dispatched.
type RecordSink interface {
	Record(ctx context.Context, r *reading.Reading) (int64, error)
	MarkAlertSent(ctx context.Context, id int64) error
}

// Enricher fetches external context for an evaluation. A failed fetch is
// reported as an error; the pipeline degrades to defaults.
type Enricher interface {
	Fetch(ctx context.Context) (*decision.Enrichment, error)
}

// AuditPublisher receives one encoded decision record per cycle.
// Publishing is best effort; failures are logged, never fatal.
type AuditPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// AlertBuilder formats a triggered decision into a dispatchable alert.
type AlertBuilder func(dec decision.Decision) *notify.Alert

// Options wires a pipeline together. Source, Window, Evaluator, Sink and
// BuildAlert are required; the rest are optional collaborators.
type Options struct {
	Source     reading.Source
	Window     *history.Window
	Reducer    history.Reducer // defaults to history.SumSecondary
	Evaluator  decision.Evaluator
	Sink       RecordSink
	Notifiers  []notify.Notifier
	BuildAlert AlertBuilder
	Enricher   Enricher           // nil: evaluate without enrichment
	Audit      AuditPublisher     // nil: no audit stream
	Registry   *registry.Registry // nil: no liveness tracking
	Location   string
	Interval   time.Duration // 0: message-driven, read as fast as messages arrive
	Backoff    time.Duration // wait after a failed cycle, defaults to 10s
}

// Pipeline is the driver loop: a single sequential worker alternating
// between waiting for the next reading and processing it
// (read, record, aggregate, enrich, evaluate, audit, notify). Cycles
// never overlap; the loop itself is the only retry mechanism.
type Pipeline struct {
	source     reading.Source
	window     *history.Window
	reducer    history.Reducer
	evaluator  decision.Evaluator
	sink       RecordSink
	notifiers  []notify.Notifier
	buildAlert AlertBuilder
	enricher   Enricher
	audit      AuditPublisher
	registry   *registry.Registry
	location   string
	interval   time.Duration
	backoff    time.Duration
}

// New creates a pipeline from the given options.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline requires a reading source")
	}
	if opts.Window == nil {
		return nil, fmt.Errorf("pipeline requires a history window")
	}
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("pipeline requires an evaluator")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("pipeline requires a record sink")
	}
	if opts.BuildAlert == nil {
		return nil, fmt.Errorf("pipeline requires an alert builder")
	}

	reducer := opts.Reducer
	if reducer == nil {
		reducer = history.SumSecondary
	}

	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 10 * time.Second
	}

	return &Pipeline{
		source:     opts.Source,
		window:     opts.Window,
		reducer:    reducer,
		evaluator:  opts.Evaluator,
		sink:       opts.Sink,
		notifiers:  opts.Notifiers,
		buildAlert: opts.BuildAlert,
		enricher:   opts.Enricher,
		audit:      opts.Audit,
		registry:   opts.Registry,
		location:   opts.Location,
		interval:   opts.Interval,
		backoff:    backoff,
	}, nil
}

// Run executes cycles until the context is canceled. A malformed reading
// or a read timeout skips the cycle; any other cycle failure is logged
// and followed by a fixed backoff. Both paths return the loop to idle.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		err := p.Cycle(ctx)

		switch {
		case err == nil:
			// fall through to the idle wait

		case ctx.Err() != nil:
			return ctx.Err()

		case errors.Is(err, reading.ErrInvalid):
			log.Printf("Skipping cycle, invalid reading: %v", err)

		case errors.Is(err, context.DeadlineExceeded):
			log.Printf("Skipping cycle, no reading received: %v", err)

		default:
			log.Printf("Cycle failed: %v (backing off %s)", err, p.backoff)
			if !p.sleep(ctx, p.backoff) {
				return ctx.Err()
			}
		}

		if p.interval > 0 && !p.sleep(ctx, p.interval) {
			return ctx.Err()
		}
	}
}

// sleep waits for d, returning false if the context ended first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Cycle performs one read-evaluate-notify pass.
func (p *Pipeline) Cycle(ctx context.Context) error {
	r, err := p.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if p.registry != nil {
		p.registry.Touch(r.SourceID, p.location)
	}

	rowID, err := p.sink.Record(ctx, r)
	if err != nil {
		return fmt.Errorf("record reading: %w", err)
	}

	p.window.Push(*r)
	aggregate := p.window.Aggregate(p.reducer)

	enr := p.fetchEnrichment(ctx)
	dec := p.evaluator.Evaluate(*r, aggregate, enr)

	p.publishAudit(ctx, r, aggregate, enr, dec)

	fmt.Printf("Reading stored (id=%d, source=%s): primary=%.2f secondary=%.2f action=%t confidence=%.2f\n",
		rowID, r.SourceID, r.Primary, r.Secondary, dec.ActionNeeded, dec.Confidence)

	if !dec.ActionNeeded {
		return nil
	}

	alert := p.buildAlert(dec)
	delivered := false

	for _, notifier := range p.notifiers {
		result, err := notifier.Notify(ctx, alert)
		if err != nil {
			log.Printf("Alert delivery failed: %v", err)
			continue
		}
		if result.Delivered {
			delivered = true
			fmt.Printf("Alert sent via %s: %s\n", result.Channel, alert.Body)
		}
	}

	if delivered {
		if err := p.sink.MarkAlertSent(ctx, rowID); err != nil {
			log.Printf("Failed to flag reading %d as alerted: %v", rowID, err)
		}
	}

	return nil
}

// fetchEnrichment returns external context for the cycle, or nil when the
// enrichment service is unavailable so the evaluator falls back to its
// documented defaults.
func (p *Pipeline) fetchEnrichment(ctx context.Context) *decision.Enrichment {
	if p.enricher == nil {
		return nil
	}

	enr, err := p.enricher.Fetch(ctx)
	if err != nil {
		log.Printf("Enrichment unavailable, using defaults: %v", err)
		return nil
	}
	return enr
}

func (p *Pipeline) publishAudit(ctx context.Context, r *reading.Reading, aggregate float64, enr *decision.Enrichment, dec decision.Decision) {
	if p.audit == nil {
		return
	}

	if enr == nil {
		enr = decision.DefaultEnrichment()
	}

	record := &protocol.DecisionRecord{
		RecordID:        uuid.New().String(),
		SourceID:        r.SourceID,
		Location:        p.location,
		Timestamp:       r.Timestamp,
		PrimaryMetric:   r.Primary,
		SecondaryMetric: r.Secondary,
		AmbientTemp:     enr.AmbientTemperature,
		AmbientHumidity: enr.AmbientHumidity,
		WindowAggregate: aggregate,
		ActionNeeded:    dec.ActionNeeded,
		Confidence:      dec.Confidence,
	}

	data, err := protocol.EncodeDecisionRecord(record)
	if err != nil {
		log.Printf("Failed to encode decision record: %v", err)
		return
	}

	if err := p.audit.Publish(ctx, r.SourceID, data); err != nil {
		log.Printf("Failed to publish decision record: %v", err)
	}
}
