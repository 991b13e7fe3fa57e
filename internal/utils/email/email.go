package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// sendFunc delivers a prepared message; replaced in tests
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

func defaultSend(e *email.Email, addr string, auth smtp.Auth) error {
	return e.Send(addr, auth)
}

// Sender handles sending emails via SMTP
type Sender struct {
	logger *logrus.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(logger *logrus.Logger) *Sender {
	return &Sender{
		logger: logger,
		send:   defaultSend,
	}
}

// SendTest sends a short message proving the SMTP settings work
func (s *Sender) SendTest(cfg models.SMTPSettings, to string) error {
	body := "This is a test message.\n\n" +
		fmt.Sprintf("It was sent through %s:%s at %s.\n", cfg.Host, cfg.Port, time.Now().Format("2006-01-02 15:04:05")) +
		"If you can read it, outgoing mail is configured correctly.\n"
	return s.deliver(cfg, to, "SMTP connection test", body)
}

// SendPastDueNotice tells a user their subscription period ended without payment
func (s *Sender) SendPastDueNotice(cfg models.SMTPSettings, to, name, planName string, periodEnd time.Time) error {
	body := fmt.Sprintf("Hi %s,\n\n", name) +
		fmt.Sprintf("Your %s subscription expired on %s and is now past due.\n", planName, periodEnd.Format("2006-01-02")) +
		"Renew it from the subscription page to keep access to your dashboard.\n" +
		"\nBest regards,\nFinance"
	return s.deliver(cfg, to, "Your subscription is past due", body)
}

// SendCartReminder follows up on a checkout that was started but not paid
func (s *Sender) SendCartReminder(cfg models.SMTPSettings, to, name, planName, checkoutURL string) error {
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s,\n\n", name) +
		fmt.Sprintf("You started subscribing to %s but did not finish the payment.\n", planName) +
		fmt.Sprintf("You can pick up where you left off here: %s\n", checkoutURL) +
		"\nBest regards,\nFinance"
	return s.deliver(cfg, to, "Finish your subscription", body)
}

// SendWelcome informs a user that an administrator created their account
func (s *Sender) SendWelcome(cfg models.SMTPSettings, to, name, loginURL string) error {
	body := fmt.Sprintf("Hi %s,\n\n", name) +
		"An account was created for you.\n" +
		fmt.Sprintf("Sign in at %s with this email address.\n", loginURL) +
		"\nBest regards,\nFinance"
	return s.deliver(cfg, to, "Your account is ready", body)
}

func (s *Sender) deliver(cfg models.SMTPSettings, to, subject, body string) error {
	if cfg.Host == "" || cfg.Port == "" {
		return fmt.Errorf("smtp host and port are required")
	}

	e := email.NewEmail()
	e.From = cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
	return nil
}
