package service

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// EmailSender доставляет уведомления по электронной почте через SMTP
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
	logger logger.Logger
}

// NewEmailSender создает новый экземпляр EmailSender
func NewEmailSender(cfg *config.SMTPConfig, logger logger.Logger) *EmailSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	return &EmailSender{
		dialer: dialer,
		from:   cfg.From,
		logger: logger,
	}
}

// Channel возвращает канал доставки
func (s *EmailSender) Channel() domain.NotificationChannel {
	return domain.ChannelEmail
}

// Send отправляет уведомление на адрес пользователя
func (s *EmailSender) Send(ctx context.Context, user *domain.User, entry *domain.QueuedNotification) error {
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.ID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", entry.Title)
	msg.SetBody("text/html", s.renderBody(user, entry))

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("Email notification sent", map[string]interface{}{
		"user_id": user.ID,
		"type":    entry.NotificationType,
	})

	return nil
}

// renderBody собирает HTML-тело письма
func (s *EmailSender) renderBody(user *domain.User, entry *domain.QueuedNotification) string {
	var b strings.Builder

	name := user.FullName
	if name == "" {
		name = user.Email
	}

	fmt.Fprintf(&b, "<p>Здравствуйте, %s!</p>", name)
	fmt.Fprintf(&b, "<h3>%s</h3>", entry.Title)
	fmt.Fprintf(&b, "<p>%s</p>", entry.Message)

	if len(entry.Data) > 0 {
		b.WriteString("<ul>")
		for key, value := range entry.Data {
			fmt.Fprintf(&b, "<li><b>%s:</b> %s</li>", key, value)
		}
		b.WriteString("</ul>")
	}

	return b.String()
}
