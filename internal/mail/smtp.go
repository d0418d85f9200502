// Package mail renders notification templates and sends them over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/config"
	"github.com/slms/leave-service/internal/queue"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers rendered mails through one SMTP relay.
type Sender struct {
	cfg  config.SMTPConfig
	log  logrus.FieldLogger
	send sendFunc
}

func NewSender(cfg config.SMTPConfig, log logrus.FieldLogger) *Sender {
	return &Sender{cfg: cfg, log: log, send: smtp.SendMail}
}

func (s *Sender) validate() error {
	if s.cfg.Host == "" || s.cfg.Port == "" || s.cfg.From == "" {
		return errors.New("incomplete SMTP configuration")
	}
	return nil
}

// Deliver renders ev and sends it; it satisfies queue.HandlerFunc.
func (s *Sender) Deliver(_ context.Context, ev queue.MailEvent) error {
	if err := s.validate(); err != nil {
		return err
	}
	subject, body, err := Render(ev)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{ev.Email}, message(s.cfg.From, ev.Email, subject, body)); err != nil {
		return fmt.Errorf("send %s mail: %w", ev.Type, err)
	}
	s.log.WithFields(logrus.Fields{"type": ev.Type, "email": ev.Email}).Info("mail sent")
	return nil
}

func message(from, to, subject, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
