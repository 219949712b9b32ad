package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Email sends plain-text mail over SMTP. Delivery mechanics beyond the send
// call (relay auth, DKIM) belong to the mail infrastructure.
type Email struct {
	addr    string
	from    string
	timeout time.Duration
}

func NewEmail(addr, from string, timeout time.Duration) *Email {
	return &Email{addr: addr, from: from, timeout: timeout}
}

// SendEmail delivers one message, honoring ctx cancellation by running the
// blocking SMTP exchange in a goroutine.
func (e *Email) SendEmail(ctx context.Context, to, subject, body string) error {
	if e.addr == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := strings.Join([]string{
		"From: " + e.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(e.addr, nil, e.from, []string{to}, []byte(msg))
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("smtp send timed out after %s", e.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
