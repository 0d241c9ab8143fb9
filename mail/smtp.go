// Package mail submits plain-text messages to an SMTP relay.
package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"math/rand"
	"mime"
	netmail "net/mail"
	"net/smtp"
	"os"
	"strings"
	"time"

	"ceapp/config"
)

// Mailer sends a single plain-text message
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPClient handles email sending
type SMTPClient struct {
	server      string
	port        int
	username    string
	password    string
	from        string
	fromName    string
	useSTARTTLS bool
}

// NewSMTPClient creates a new SMTP client from configuration
func NewSMTPClient(cfg config.SMTPConfig) *SMTPClient {
	return &SMTPClient{
		server:      cfg.Server,
		port:        cfg.GetPort(),
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.From,
		fromName:    cfg.FromName,
		useSTARTTLS: cfg.UseSTARTTLS,
	}
}

// Send delivers a plain-text email
func (c *SMTPClient) Send(to, subject, body string) error {
	rcpt, err := netmail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %v", to, err)
	}

	addr := fmt.Sprintf("%s:%d", c.server, c.port)

	var client *smtp.Client
	if c.useSTARTTLS {
		client, err = smtp.Dial(addr)
	} else {
		var conn *tls.Conn
		conn, err = tls.Dial("tcp", addr, &tls.Config{ServerName: c.server})
		if err == nil {
			client, err = smtp.NewClient(conn, c.server)
		}
	}
	if err != nil {
		return fmt.Errorf("dial failed: %v", err)
	}
	defer client.Close()

	if err := client.Hello(domainOf(c.from)); err != nil {
		return fmt.Errorf("hello failed: %v", err)
	}

	if c.useSTARTTLS {
		if err := client.StartTLS(&tls.Config{ServerName: c.server}); err != nil {
			return fmt.Errorf("starttls failed: %v", err)
		}
	}

	// Authenticate after TLS
	if c.username != "" {
		auth := smtp.PlainAuth("", c.username, c.password, c.server)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth failed: %v", err)
		}
	}

	if err := client.Mail(c.from); err != nil {
		return fmt.Errorf("mail from failed: %v", err)
	}
	if err := client.Rcpt(rcpt.Address); err != nil {
		return fmt.Errorf("rcpt to failed: %v", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("data failed: %v", err)
	}
	if _, err := writer.Write(c.buildMessage(to, subject, body, time.Now())); err != nil {
		return fmt.Errorf("write failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("data close failed: %v", err)
	}

	return client.Quit()
}

// buildMessage renders headers and a CRLF-normalized body
func (c *SMTPClient) buildMessage(to, subject, body string, now time.Time) []byte {
	from := (&netmail.Address{Name: c.fromName, Address: c.from}).String()

	headers := []struct{ key, value string }{
		{"Date", now.Format(time.RFC1123Z)},
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", generateMessageID(now), domainOf(c.from))},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=\"utf-8\""},
		{"Content-Transfer-Encoding", "8bit"},
	}

	var buf bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	body = strings.ReplaceAll(body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}

// generateMessageID creates a unique Message-ID for the email
func generateMessageID(now time.Time) string {
	return fmt.Sprintf("%d.%d.%d",
		now.UnixNano(),
		os.Getpid(),
		rand.Int63())
}
