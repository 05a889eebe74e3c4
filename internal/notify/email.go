package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/ranjitk/sensor-monitor/pkg/config"
)

// EmailNotifier sends alerts by email. When SMTP credentials are not
// configured it logs the alert to stdout instead, so local runs work
// without a mail account.
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

var emailTemplate = template.Must(template.New("alert").Parse(`
Sensor Alert
============

{{.Title}}

{{.Body}}

Raised at: {{.Timestamp.Format "2006-01-02 15:04:05 MST"}}
{{- range $name, $value := .Values}}
{{$name}}: {{printf "%.2f" $value}}
{{- end}}

---
Sensor Monitor Notification System
`))

// Notify renders and sends the alert email.
func (e *EmailNotifier) Notify(ctx context.Context, alert *Alert) (*DeliveryResult, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, alert); err != nil {
		return nil, fmt.Errorf("%w: render email: %v", ErrDeliveryFailed, err)
	}

	subject := fmt.Sprintf("⚠️ %s", alert.Title)

	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, buf.String())
		return &DeliveryResult{
			Delivered: false,
			Channel:   "email",
			Detail:    "SMTP not configured, logged only",
			At:        time.Now(),
		}, nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += buf.String()

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return nil, fmt.Errorf("%w: send email: %v", ErrDeliveryFailed, err)
	}

	return &DeliveryResult{
		Delivered: true,
		Channel:   "email",
		Detail:    e.config.To,
		At:        time.Now(),
	}, nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
