package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/decision"
	"github.com/ranjitk/sensor-monitor/internal/enrichment"
	"github.com/ranjitk/sensor-monitor/internal/history"
	"github.com/ranjitk/sensor-monitor/internal/notify"
	"github.com/ranjitk/sensor-monitor/internal/protocol"
	"github.com/ranjitk/sensor-monitor/internal/reading"
)

// fakeSource replays a fixed script of readings and errors.
type fakeSource struct {
	mu     sync.Mutex
	script []fakeDelivery
}

type fakeDelivery struct {
	reading *reading.Reading
	err     error
}

func (s *fakeSource) Next(ctx context.Context) (*reading.Reading, error) {
	s.mu.Lock()
	if len(s.script) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	d := s.script[0]
	s.script = s.script[1:]
	s.mu.Unlock()
	return d.reading, d.err
}

func (s *fakeSource) push(r *reading.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, fakeDelivery{reading: r})
}

func (s *fakeSource) pushErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, fakeDelivery{err: err})
}

// fakeSink stores rows in memory with sequential ids.
type fakeSink struct {
	mu      sync.Mutex
	rows    []reading.Reading
	flagged map[int64]bool
	fail    error
}

func newFakeSink() *fakeSink {
	return &fakeSink{flagged: make(map[int64]bool)}
}

func (s *fakeSink) Record(ctx context.Context, r *reading.Reading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail != nil {
		return 0, s.fail
	}
	s.rows = append(s.rows, *r)
	return int64(len(s.rows)), nil
}

func (s *fakeSink) MarkAlertSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagged[id] = true
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fakeNotifier records dispatched alerts.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []*notify.Alert
	fail   error
}

func (n *fakeNotifier) Notify(ctx context.Context, alert *notify.Alert) (*notify.DeliveryResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail != nil {
		return nil, n.fail
	}
	n.alerts = append(n.alerts, alert)
	return &notify.DeliveryResult{Delivered: true, Channel: "fake", At: time.Now()}, nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// failingEnricher always reports the enrichment service as down.
type failingEnricher struct{}

func (failingEnricher) Fetch(ctx context.Context) (*decision.Enrichment, error) {
	return nil, fmt.Errorf("%w: connection refused", enrichment.ErrUnavailable)
}

// captureScorer records the feature vector it was given.
type captureScorer struct {
	probability float64
	seen        []float64
}

func (s *captureScorer) Score(features []float64) float64 {
	s.seen = append([]float64(nil), features...)
	return s.probability
}

// fakeAudit collects published decision records.
type fakeAudit struct {
	mu      sync.Mutex
	records []*protocol.DecisionRecord
}

func (a *fakeAudit) Publish(ctx context.Context, key string, value []byte) error {
	record, err := protocol.DecodeDecisionRecord(value)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, record)
	return nil
}

func climateReading(temp, humidity float64) *reading.Reading {
	return &reading.Reading{
		Timestamp: time.Now(),
		Primary:   temp,
		Secondary: humidity,
		SourceID:  "home_sensor_1",
	}
}

func thresholdPipeline(t *testing.T, source reading.Source, sink RecordSink, notifier notify.Notifier) *Pipeline {
	t.Helper()

	actx := notify.AlertContext{
		Title:          "Temperature/Humidity Alert",
		Location:       "Home",
		PrimaryName:    "temperature",
		SecondaryName:  "humidity",
		PrimaryUnit:    "°C",
		SecondaryUnit:  "%",
		PrimaryLimit:   30.0,
		SecondaryLimit: 80.0,
	}

	p, err := New(Options{
		Source:    source,
		Window:    history.NewWindow(24),
		Evaluator: decision.NewThresholdEvaluator(30.0, 80.0),
		Sink:      sink,
		Notifiers: []notify.Notifier{notifier},
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return notify.BuildThresholdAlert(dec, actx)
		},
		Location: "Home",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestCycle_ThresholdBreachNotifies(t *testing.T) {
	source := &fakeSource{}
	source.push(climateReading(32.0, 50.0))

	sink := newFakeSink()
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	if notifier.count() != 1 {
		t.Fatalf("Expected 1 notification, got %d", notifier.count())
	}

	body := notifier.alerts[0].Body
	if !strings.Contains(body, "32") || !strings.Contains(body, "30") {
		t.Errorf("Expected alert body with value and threshold, got %q", body)
	}

	if sink.count() != 1 {
		t.Errorf("Expected 1 stored reading, got %d", sink.count())
	}
	if !sink.flagged[1] {
		t.Error("Expected stored reading to be flagged after delivery")
	}
}

func TestCycle_BelowThresholdsNoNotification(t *testing.T) {
	source := &fakeSource{}
	source.push(climateReading(25.0, 50.0))

	sink := newFakeSink()
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	if notifier.count() != 0 {
		t.Errorf("Expected no notifications, got %d", notifier.count())
	}
	if sink.count() != 1 {
		t.Errorf("Reading must be stored even without an alert, got %d rows", sink.count())
	}
	if sink.flagged[1] {
		t.Error("Reading must not be flagged without an alert")
	}
}

func TestCycle_EveryReadingStoredOnce(t *testing.T) {
	source := &fakeSource{}
	sink := newFakeSink()
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	for i := 0; i < 5; i++ {
		source.push(climateReading(20.0+float64(i), 40.0))
		before := sink.count()
		if err := p.Cycle(context.Background()); err != nil {
			t.Fatalf("Cycle %d failed: %v", i, err)
		}
		if sink.count() != before+1 {
			t.Errorf("Cycle %d: expected row count %d, got %d", i, before+1, sink.count())
		}
	}
}

func TestCycle_InvalidReadingSkips(t *testing.T) {
	source := &fakeSource{}
	source.pushErr(fmt.Errorf("%w: timestamp is required", reading.ErrInvalid))

	sink := newFakeSink()
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	err := p.Cycle(context.Background())
	if !errors.Is(err, reading.ErrInvalid) {
		t.Fatalf("Expected ErrInvalid, got %v", err)
	}

	if sink.count() != 0 {
		t.Errorf("Invalid reading must not be stored, got %d rows", sink.count())
	}
	if notifier.count() != 0 {
		t.Errorf("Invalid reading must not notify, got %d", notifier.count())
	}
}

func TestCycle_PersistenceFailureIsCycleFailure(t *testing.T) {
	source := &fakeSource{}
	source.push(climateReading(32.0, 50.0))

	sink := newFakeSink()
	sink.fail = fmt.Errorf("connection reset")
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	err := p.Cycle(context.Background())
	if err == nil {
		t.Fatal("Expected cycle failure for persistence error")
	}
	if errors.Is(err, reading.ErrInvalid) {
		t.Error("Persistence failure must not look like an invalid reading")
	}
	if notifier.count() != 0 {
		t.Error("No notification should go out when the reading was not stored")
	}
}

func TestCycle_DeliveryFailureDoesNotFailCycle(t *testing.T) {
	source := &fakeSource{}
	source.push(climateReading(32.0, 50.0))

	sink := newFakeSink()
	notifier := &fakeNotifier{fail: fmt.Errorf("%w: broker gone", notify.ErrDeliveryFailed)}
	p := thresholdPipeline(t, source, sink, notifier)

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Delivery failure must not fail the cycle, got %v", err)
	}

	if sink.flagged[1] {
		t.Error("Reading must not be flagged when delivery failed")
	}
}

func TestCycle_EnrichmentFailureUsesDefaults(t *testing.T) {
	source := &fakeSource{}
	source.push(&reading.Reading{
		Timestamp: time.Now(),
		Primary:   35.0,
		Secondary: 18.0,
		SourceID:  "soil_sensor_1",
	})

	sink := newFakeSink()
	scorer := &captureScorer{probability: 0.5}

	p, err := New(Options{
		Source:    source,
		Window:    history.NewWindow(24),
		Evaluator: decision.NewScoredEvaluator(scorer, 0.7),
		Sink:      sink,
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return &notify.Alert{}
		},
		Enricher: failingEnricher{},
		Location: "Field A",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle must survive enrichment failure, got %v", err)
	}

	if len(scorer.seen) != 5 {
		t.Fatalf("Expected 5 features, got %d", len(scorer.seen))
	}
	if scorer.seen[2] != decision.DefaultAmbientTemperature {
		t.Errorf("Expected default ambient temperature, got %v", scorer.seen[2])
	}
	if scorer.seen[3] != decision.DefaultAmbientHumidity {
		t.Errorf("Expected default ambient humidity, got %v", scorer.seen[3])
	}
}

func TestCycle_PublishesAuditRecord(t *testing.T) {
	source := &fakeSource{}
	source.push(climateReading(25.0, 50.0))

	sink := newFakeSink()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}

	actx := notify.AlertContext{
		Title: "Temperature/Humidity Alert", Location: "Home",
		PrimaryName: "temperature", SecondaryName: "humidity",
		PrimaryLimit: 30.0, SecondaryLimit: 80.0,
	}

	p, err := New(Options{
		Source:    source,
		Window:    history.NewWindow(24),
		Evaluator: decision.NewThresholdEvaluator(30.0, 80.0),
		Sink:      sink,
		Notifiers: []notify.Notifier{notifier},
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return notify.BuildThresholdAlert(dec, actx)
		},
		Audit:    audit,
		Location: "Home",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle failed: %v", err)
	}

	if len(audit.records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(audit.records))
	}

	record := audit.records[0]
	if record.ActionNeeded {
		t.Error("Expected action_needed=false for a quiet reading")
	}
	if record.SourceID != "home_sensor_1" {
		t.Errorf("Expected source id in audit record, got %q", record.SourceID)
	}
	if record.RecordID == "" {
		t.Error("Expected a generated record id")
	}
}

func TestCycle_WindowAggregateReachesEvaluator(t *testing.T) {
	source := &fakeSource{}
	sink := newFakeSink()
	scorer := &captureScorer{probability: 0.1}

	p, err := New(Options{
		Source:    source,
		Window:    history.NewWindow(24),
		Reducer:   history.SumSecondary,
		Evaluator: decision.NewScoredEvaluator(scorer, 0.7),
		Sink:      sink,
		BuildAlert: func(dec decision.Decision) *notify.Alert {
			return &notify.Alert{}
		},
		Location: "Field A",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Three cycles with secondary = 1, 2, 3: the third evaluation must
	// see the rolling sum 6
	for i := 1; i <= 3; i++ {
		source.push(&reading.Reading{
			Timestamp: time.Now(),
			Primary:   30.0,
			Secondary: float64(i),
			SourceID:  "soil_sensor_1",
		})
		if err := p.Cycle(context.Background()); err != nil {
			t.Fatalf("Cycle %d failed: %v", i, err)
		}
	}

	if scorer.seen[4] != 6.0 {
		t.Errorf("Expected rolling aggregate 6.0, got %v", scorer.seen[4])
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	sink := newFakeSink()
	notifier := &fakeNotifier{}
	p := thresholdPipeline(t, source, sink, notifier)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	if err == nil {
		t.Error("Expected error for empty options")
	}
}
