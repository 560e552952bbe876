package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"gridlease-backend/internal/config"
	"gridlease-backend/internal/logger"
)

// emailService sends merchant notifications over SMTP. With no SMTP host
// configured it degrades to a logged no-op, which keeps local development
// free of a mail server.
type emailService struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

func NewEmailService(cfg config.SMTPConfig) EmailService {
	return &emailService{
		cfg:    cfg,
		logger: logger.WithService("email"),
	}
}

func (s *emailService) SendLeaseCreatedNotification(ctx context.Context, email, assetName, payer string, expiresAt time.Time) error {
	subject := fmt.Sprintf("Your asset %q has been leased", assetName)
	body := fmt.Sprintf(
		"Hello,\n\nYour asset %q was just leased by %s.\nThe lease runs until %s.\n\nGridLease",
		assetName, payer, expiresAt.Format(time.RFC1123))
	return s.send(email, subject, body)
}

func (s *emailService) SendLeaseExpiredNotification(ctx context.Context, email, assetName string) error {
	subject := fmt.Sprintf("Lease on %q has ended", assetName)
	body := fmt.Sprintf(
		"Hello,\n\nThe lease on your asset %q has expired. The asset is available for new requests again.\n\nGridLease",
		assetName)
	return s.send(email, subject, body)
}

func (s *emailService) send(to, subject, body string) error {
	if s.cfg.Host == "" {
		s.logger.Debug("SMTP not configured, skipping notification", "to", to, "subject", subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	s.logger.Info("Notification sent", "to", to, "subject", subject)
	return nil
}
