package gateway

import (
	"context"
	"fmt"
	"net/smtp"
	"runtime/debug"
	"strings"

	"invoice-reconciler/internal/domain"
)

// SMTPNotifier sends the single failure alert a fatal run emits. Sender and
// recipient are fixed by configuration; delivery failure is the caller's to
// log, never to escalate.
type SMTPNotifier struct {
	addr     string
	from     string
	to       string
	username string
	password string
}

func NewSMTPNotifier(addr, from, to, username, password string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from, to: to, username: username, password: password}
}

// NotifyFailure sends one alert with the error message and a stack trace.
func (n *SMTPNotifier) NotifyFailure(ctx context.Context, period domain.Period, runErr error) error {
	subject := fmt.Sprintf("ERROR: invoice reconciliation failed for %s", period)
	body := fmt.Sprintf("Error in invoice reconciliation: %v\n\nTrace:\n%s", runErr, debug.Stack())

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", n.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if n.username != "" {
		host := n.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.username, n.password, host)
	}
	if err := smtp.SendMail(n.addr, auth, n.from, []string{n.to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send failure alert: %w", err)
	}
	return nil
}
