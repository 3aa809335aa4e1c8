package notify

import (
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	addr string
	from string
	send SendFunc
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewMailer sends through host:port without auth. A nil send uses smtp.SendMail.
func NewMailer(host string, port int, from string, send SendFunc, log *slog.Logger) *Mailer {
	if send == nil {
		send = smtp.SendMail
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Mailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: send,
		cb:   cb,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := "From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + sanitizeHeader(subject) + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body

	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.send(m.addr, nil, m.from, []string{to}, []byte(msg))
	})
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
