package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is a plain text e-mail
type Message struct {
	ID      string
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
	Date    time.Time
}

// Bytes renders the message in RFC 5322 format with CRLF line endings
func (m Message) Bytes() []byte {
	var buf bytes.Buffer

	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}

	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	if m.ReplyTo != "" {
		header("Reply-To", m.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", date.Format(time.RFC1123Z))
	if m.ID != "" && m.From != "" {
		domain := m.From[strings.LastIndexByte(m.From, '@')+1:]
		header("Message-ID", fmt.Sprintf("<%s@%s>", m.ID, domain))
	}
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\r\n")
	}

	return buf.Bytes()
}

// Sender delivers messages. accessToken selects XOAUTH2; an empty token
// falls back to password authentication.
type Sender interface {
	Send(ctx context.Context, msg Message, accessToken string) error
}

// SMTPSender delivers mail over SMTP with STARTTLS or implicit TLS
type SMTPSender struct {
	Host      string
	Port      int
	UseTLS    bool
	UseSSL    bool
	Username  string
	Password  string
	Timeout   time.Duration
	TLSConfig *tls.Config
}

// Send dials the server and delivers msg to every recipient
func (s *SMTPSender) Send(ctx context.Context, msg Message, accessToken string) error {
	if s.Host == "" {
		return errors.New("mail server is not configured")
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	tlsConfig := s.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: s.Host}
	}

	var conn net.Conn
	var err error
	if s.UseSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer c.Close()

	if s.UseTLS && !s.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	if auth := s.auth(accessToken); auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}

	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return c.Quit()
}

func (s *SMTPSender) auth(accessToken string) smtp.Auth {
	switch {
	case accessToken != "":
		return &xoauth2Auth{username: s.Username, token: accessToken, host: s.Host}
	case s.Password != "":
		return smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	return nil
}

// xoauth2Auth implements the SASL XOAUTH2 mechanism
type xoauth2Auth struct {
	username string
	token    string
	host     string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, errors.New("wrong host name")
	}
	resp := "user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

// Next answers the server's error challenge with an empty response so the
// server completes the exchange with its final status
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
