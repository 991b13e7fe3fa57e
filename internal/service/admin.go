package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/storage"
	"github.com/Dan9191/finance-service/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const statsMonths = 12

// AdminStats gathers the admin console charts
func (s *Service) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(statsMonths - 1), 0)

	byStatus, err := s.repo.CountSubscriptionsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	signups, err := s.repo.SignupsPerMonth(ctx, since)
	if err != nil {
		return nil, err
	}
	revenue, err := s.repo.RevenuePerMonth(ctx, since)
	if err != nil {
		return nil, err
	}

	return &models.AdminStats{
		SubscriptionsByStatus: byStatus,
		TotalUsers:            total,
		Signups:               signups,
		Revenue:               revenue,
	}, nil
}

// ListUsers lists users for the admin console
func (s *Service) ListUsers(ctx context.Context, f models.UserFilter) ([]models.AdminUser, error) {
	return s.repo.ListUsers(ctx, f)
}

// appSettings returns stored settings with the SMTP password decrypted, or the defaults
func (s *Service) appSettings(ctx context.Context) (*models.AppSettings, error) {
	settings, err := s.repo.GetAppSettings(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.DefaultAppSettings(), nil
		}
		return nil, err
	}
	if settings.SMTPPassword != "" {
		plain, err := utils.Decrypt(settings.SMTPPassword, s.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt smtp password: %w", err)
		}
		settings.SMTPPassword = plain
	}
	return settings, nil
}

// GetSettings returns the app settings without the SMTP password
func (s *Service) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	settings, err := s.appSettings(ctx)
	if err != nil {
		return nil, err
	}
	settings.SMTPPassword = ""
	return settings, nil
}

// SaveSettings stores the app settings. An empty SMTP password keeps the stored one.
func (s *Service) SaveSettings(ctx context.Context, in *models.AppSettings) (*models.AppSettings, error) {
	if strings.TrimSpace(in.AppName) == "" {
		return nil, fmt.Errorf("%w: app_name is required", common.ErrValidation)
	}
	if in.ShortName == "" {
		in.ShortName = in.AppName
	}

	toStore := *in
	if in.SMTPPassword != "" {
		enc, err := utils.Encrypt(in.SMTPPassword, s.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt smtp password: %w", err)
		}
		toStore.SMTPPassword = enc
	} else {
		current, err := s.repo.GetAppSettings(ctx)
		switch {
		case err == nil:
			toStore.SMTPPassword = current.SMTPPassword
		case !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	if err := s.repo.SaveAppSettings(ctx, &toStore); err != nil {
		return nil, err
	}

	s.log.Infof("App settings updated: %s", in.AppName)
	out := toStore
	out.SMTPPassword = ""
	return &out, nil
}

// PresignIconUpload returns an upload URL for a new PWA icon
func (s *Service) PresignIconUpload(ctx context.Context, contentType string) (*storage.IconUpload, error) {
	if s.icons == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", common.ErrNotFound)
	}
	up, err := s.icons.PresignIconUpload(ctx, contentType)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Icon upload presigned: %s", up.Key)
	return up, nil
}

// smtpSettings picks the stored SMTP server when one is set, else the configured one
func (s *Service) smtpSettings(ctx context.Context) models.SMTPSettings {
	cfg := models.SMTPSettings{
		Host:     s.config.SMTPHost,
		Port:     s.config.SMTPPort,
		Username: s.config.SMTPUsername,
		Password: s.config.SMTPPassword,
		From:     s.config.SenderEmail,
	}
	settings, err := s.appSettings(ctx)
	if err != nil {
		s.log.Warnf("Using configured SMTP settings: %v", err)
		return cfg
	}
	if settings.SMTPHost == "" {
		return cfg
	}
	cfg.Host, cfg.Port = settings.SMTPHost, settings.SMTPPort
	cfg.Username, cfg.Password = settings.SMTPUsername, settings.SMTPPassword
	if settings.SenderEmail != "" {
		cfg.From = settings.SenderEmail
	}
	return cfg
}

// TestSMTPInput names the recipient and optional overrides of the stored settings
type TestSMTPInput struct {
	To       string `json:"to"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// TestSMTPResult is the outcome of an SMTP test
type TestSMTPResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestSMTP sends a test email. Delivery failures are reported in the result, not as errors.
func (s *Service) TestSMTP(ctx context.Context, in TestSMTPInput) (*TestSMTPResult, error) {
	if !strings.Contains(in.To, "@") {
		return nil, fmt.Errorf("%w: a valid recipient is required", common.ErrValidation)
	}
	if s.mailer == nil {
		return nil, fmt.Errorf("%w: mail is not configured", common.ErrNotFound)
	}

	cfg := s.smtpSettings(ctx)
	if in.Host != "" {
		cfg.Host = in.Host
	}
	if in.Port != "" {
		cfg.Port = in.Port
	}
	if in.Username != "" {
		cfg.Username = in.Username
	}
	if in.Password != "" {
		cfg.Password = in.Password
	}
	if in.From != "" {
		cfg.From = in.From
	}

	if err := s.mailer.SendTest(cfg, in.To); err != nil {
		return &TestSMTPResult{Success: false, Message: err.Error()}, nil
	}
	return &TestSMTPResult{Success: true, Message: fmt.Sprintf("Test email sent to %s", in.To)}, nil
}

// AdminCreateUserInput creates an account on someone's behalf
type AdminCreateUserInput struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	FullName    string      `json:"full_name"`
	Phone       string      `json:"phone"`
	Role        models.Role `json:"role"`
	PlanID      string      `json:"plan_id"`
	SendWelcome bool        `json:"send_welcome"`
}

// AdminCreateUser creates a user with a profile and, when a plan is given, an active subscription
func (s *Service) AdminCreateUser(ctx context.Context, in AdminCreateUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", common.ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role must be user or admin", common.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hashedPassword)}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := s.repo.CreateProfile(ctx, &models.Profile{
			UserID: user.ID, FullName: strings.TrimSpace(in.FullName), Phone: strings.TrimSpace(in.Phone), Role: role,
		}); err != nil {
			return err
		}
		if in.PlanID == "" {
			return nil
		}
		plan, err := s.repo.FindPlan(ctx, in.PlanID)
		if err != nil {
			return err
		}
		_, err = s.activateSubscription(ctx, user.ID, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("User %s created by admin with role %s", user.Email, role)

	if in.SendWelcome && s.mailer != nil {
		if err := s.mailer.SendWelcome(s.smtpSettings(ctx), user.Email, in.FullName, s.config.PublicURL+"/login"); err != nil {
			s.log.Warnf("Welcome email to %s failed: %v", user.Email, err)
		}
	}
	return user, nil
}
