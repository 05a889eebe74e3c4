package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ranjitk/sensor-monitor/internal/decision"
)

// ErrDeliveryFailed marks a notification that could not be dispatched.
// The driver loop logs it and moves on; there is no per-alert retry
// beyond the next natural cycle.
var ErrDeliveryFailed = errors.New("delivery failed")

// Alert is a formatted, ready-to-dispatch notification.
type Alert struct {
	Title     string
	Body      string
	Target    string // recipient/device identifier, channel specific
	Timestamp time.Time
	Values    map[string]float64
}

// DeliveryResult reports the outcome of one dispatch attempt.
type DeliveryResult struct {
	Delivered bool
	Channel   string
	Detail    string
	At        time.Time
}

// Notifier dispatches an alert through one external channel.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) (*DeliveryResult, error)
}

// AlertContext carries the human-facing framing for alerts built from a
// decision: where the sensor is, what the metrics are called and what the
// configured limits were.
type AlertContext struct {
	Title          string
	Location       string
	Target         string
	PrimaryName    string
	SecondaryName  string
	PrimaryUnit    string
	SecondaryUnit  string
	PrimaryLimit   float64
	SecondaryLimit float64
}

// BuildThresholdAlert formats an alert for the fixed-threshold variant,
// naming whichever metric breached its limit.
func BuildThresholdAlert(dec decision.Decision, actx AlertContext) *Alert {
	var body string
	if dec.Basis.Primary > actx.PrimaryLimit {
		body = fmt.Sprintf("%s %.1f%s exceeds threshold %.1f%s at %s",
			actx.PrimaryName, dec.Basis.Primary, actx.PrimaryUnit,
			actx.PrimaryLimit, actx.PrimaryUnit, actx.Location)
	} else {
		body = fmt.Sprintf("%s %.1f%s exceeds threshold %.1f%s at %s",
			actx.SecondaryName, dec.Basis.Secondary, actx.SecondaryUnit,
			actx.SecondaryLimit, actx.SecondaryUnit, actx.Location)
	}

	return &Alert{
		Title:     actx.Title,
		Body:      body,
		Target:    actx.Target,
		Timestamp: time.Now(),
		Values: map[string]float64{
			actx.PrimaryName:   dec.Basis.Primary,
			actx.SecondaryName: dec.Basis.Secondary,
		},
	}
}

// BuildScoredAlert formats an alert for the model-scored variant, quoting
// the confidence as a percentage.
func BuildScoredAlert(dec decision.Decision, actx AlertContext) *Alert {
	body := fmt.Sprintf("%s needs irrigation. Current %s: %.1f%s. Confidence: %.1f%%",
		actx.Location, actx.PrimaryName, dec.Basis.Primary, actx.PrimaryUnit,
		dec.Confidence*100)

	return &Alert{
		Title:     actx.Title,
		Body:      body,
		Target:    actx.Target,
		Timestamp: time.Now(),
		Values: map[string]float64{
			actx.PrimaryName:   dec.Basis.Primary,
			actx.SecondaryName: dec.Basis.Secondary,
			"confidence":       dec.Confidence,
		},
	}
}
