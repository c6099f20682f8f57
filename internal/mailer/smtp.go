package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Config holds SMTP delivery settings. A zero Host disables delivery.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Mailer sends emails via SMTP.
type Mailer struct {
	cfg    Config
	sendFn func(Message) error
}

func New(cfg *Config) *Mailer {
	m := &Mailer{}
	if cfg != nil {
		m.cfg = *cfg
	}
	m.sendFn = m.send
	return m
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != ""
}

// SendUploadRequest emails an upload link to a client. note is appended when
// non-empty.
func (m *Mailer) SendUploadRequest(to, name, link, note string) error {
	body := RenderTemplate(UploadRequestTemplate, map[string]string{
		"name": name,
		"link": link,
		"note": note,
	})
	return m.sendFn(Message{
		To:      []string{to},
		Subject: "Documents requested by Trajector",
		Body:    strings.TrimSpace(body) + "\n",
	})
}

// Ping checks that the SMTP server accepts connections.
func (m *Mailer) Ping(ctx context.Context) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("mailer: not configured")
	}
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr(m.cfg))
	if err != nil {
		return fmt.Errorf("mailer: dial: %w", err)
	}
	return conn.Close()
}

func (m *Mailer) send(msg Message) error {
	cfg := m.cfg

	if cfg.Host == "" {
		slog.Info("mailer: smtp not configured, message not sent", "to", msg.To, "subject", msg.Subject)
		slog.Debug("mailer: unsent body", "body", msg.Body)
		return nil
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	if err := smtp.SendMail(addr(cfg), auth, cfg.FromAddress, msg.To, []byte(m.formatMessage(msg))); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", strings.Join(msg.To, ", "), err)
	}
	return nil
}

func (m *Mailer) formatMessage(msg Message) string {
	from := fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)

	contentType := "text/plain; charset=UTF-8"
	if msg.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

func addr(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}
