package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushNotifier delivers alerts to a mobile device through an FCM-style
// HTTP endpoint: POST a JSON body with the device token and a
// title/body notification block.
type PushNotifier struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewPushNotifier creates a push notifier for the given endpoint.
func NewPushNotifier(endpoint, apiKey string, timeout time.Duration) *PushNotifier {
	return &PushNotifier{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

type pushRequest struct {
	To           string           `json:"to"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notify posts the alert to the push service. Alert.Target is the device
// token.
func (n *PushNotifier) Notify(ctx context.Context, alert *Alert) (*DeliveryResult, error) {
	payload, err := json.Marshal(pushRequest{
		To: alert.Target,
		Notification: pushNotification{
			Title: alert.Title,
			Body:  alert.Body,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode push request: %v", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "key="+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: push service returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return &DeliveryResult{
		Delivered: true,
		Channel:   "push",
		Detail:    alert.Target,
		At:        time.Now(),
	}, nil
}
