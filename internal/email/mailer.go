package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// Notification описывает отложенное email-уведомление о новом сообщении.
// Доставка best-effort: ошибка логируется и не ретраится.
type Notification struct {
	To           string
	ToName       string
	FromName     string
	ListingTitle string
	Preview      string
	ThreadID     string
	ListingID    string
}

// Mailer отправляет отложенные уведомления.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

// SMTPMailer отправляет письма через обычный SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer создаёт SMTP отправитель. host:port и from обязательны,
// auth может быть пустым для локального relay.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

// Send отправляет уведомление одним письмом.
func (m *SMTPMailer) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Новое сообщение по объявлению «%s»", n.ListingTitle)
	body := fmt.Sprintf(
		"Здравствуйте, %s!\r\n\r\n%s написал(а) вам по объявлению «%s»:\r\n\r\n%s\r\n\r\nОткройте диалог, чтобы ответить.\r\n",
		n.ToName, n.FromName, n.ListingTitle, n.Preview,
	)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.from, n.To, subject, body,
	))

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{n.To}, msg); err != nil {
		return fmt.Errorf("mailer: не удалось отправить письмо: %w", err)
	}
	return nil
}

// LogMailer пишет уведомления в лог вместо отправки. Используется в
// development и как запасной вариант без настроенного SMTP.
type LogMailer struct{}

// NewLogMailer создаёт лог-отправитель.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send логирует уведомление.
func (m *LogMailer) Send(ctx context.Context, n Notification) error {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"to":        n.To,
			"thread_id": n.ThreadID,
			"listing":   n.ListingTitle,
			"preview":   n.Preview,
		}).Info("mailer: отложенное уведомление (лог-режим)")
	}
	return nil
}
