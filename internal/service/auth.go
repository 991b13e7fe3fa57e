package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-service/internal/auth"
	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Principal is the authenticated caller of a request
type Principal struct {
	UserID     string      `json:"user_id"`
	SessionID  string      `json:"session_id"`
	Role       models.Role `json:"role"`
	HasProfile bool        `json:"has_profile"`
}

// IsAdmin reports whether the caller has the admin role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// SignUpInput is the data needed to open an account
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	TaxID    string `json:"tax_id"`
}

// AuthResult is returned by sign up and sign in
type AuthResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *models.User    `json:"user"`
	Profile   *models.Profile `json:"profile,omitempty"`
}

// Account is the signed-in user's own view
type Account struct {
	User         *models.User                `json:"user"`
	Profile      *models.Profile             `json:"profile,omitempty"`
	Subscription *models.SubscriptionDetails `json:"subscription"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", common.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", common.ErrValidation, minPasswordLength)
	}
	return nil
}

// SignUp creates a user, its profile and a first session
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", common.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hashedPassword)}
	profile := &models.Profile{
		UserID:   user.ID,
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		TaxID:    strings.TrimSpace(in.TaxID),
		Role:     models.RoleUser,
	}

	var res *AuthResult
	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := s.repo.CreateProfile(ctx, profile); err != nil {
			return err
		}
		res, err = s.openSession(ctx, user.ID, profile.Role, s.config.TokenTTL)
		return err
	})
	if err != nil {
		return nil, err
	}

	res.User, res.Profile = user, profile
	s.log.Infof("User registered: %s", user.Email)
	return res, nil
}

// SignIn verifies the password and opens a session.
// A user without a profile may sign in; the checkout flow deals with it.
func (s *Service) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}

	profile, err := s.findProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if profile != nil {
		role = profile.Role
	}

	res, err := s.openSession(ctx, user.ID, role, s.config.TokenTTL)
	if err != nil {
		return nil, err
	}
	res.User, res.Profile = user, profile

	s.log.Infof("User logged in: %s", user.Email)
	return res, nil
}

// SignOut revokes a session; revoking an unknown or revoked session is not an error
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.repo.RevokeSession(ctx, sessionID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	s.log.Infof("Session revoked: %s", sessionID)
	return nil
}

// SignOutEverywhere revokes every open session of a user
func (s *Service) SignOutEverywhere(ctx context.Context, userID string) error {
	if err := s.repo.RevokeUserSessions(ctx, userID); err != nil {
		return err
	}
	s.log.Infof("All sessions revoked for user %s", userID)
	return nil
}

// Authenticate resolves a bearer token into a Principal
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := auth.ParseToken(token, []byte(s.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindSession(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown session", common.ErrInvalidToken)
		}
		return nil, err
	}
	if !session.Active(s.now()) || session.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: session is no longer active", common.ErrInvalidToken)
	}

	profile, err := s.findProfile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	p := &Principal{UserID: claims.UserID, SessionID: session.ID, Role: models.RoleUser}
	if profile != nil {
		p.Role = profile.Role
		p.HasProfile = true
	}
	return p, nil
}

// Me returns the caller's user, profile and subscription
func (s *Service) Me(ctx context.Context, p *Principal) (*Account, error) {
	user, err := s.repo.FindUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	profile, err := s.findProfile(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	sub, err := s.GetSubscription(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &Account{User: user, Profile: profile, Subscription: sub}, nil
}

// RequireActiveSubscription gates protected content. Admins always pass.
func (s *Service) RequireActiveSubscription(ctx context.Context, p *Principal) error {
	if p == nil {
		return common.ErrUnauthorized
	}
	if p.IsAdmin() {
		return nil
	}
	if !p.HasProfile {
		return common.ErrProfileMissing
	}
	ok, err := s.repo.HasActiveSubscription(ctx, p.UserID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrSubscriptionRequired
	}
	return nil
}

// AuthenticateAPIKey checks a machine caller's key
func (s *Service) AuthenticateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	if !strings.HasPrefix(key, utils.APIKeyPrefix) {
		return nil, fmt.Errorf("%w: invalid api key", common.ErrUnauthorized)
	}
	k, err := s.repo.FindActiveAPIKeyByHash(ctx, utils.HashAPIKey(key, s.config.HMACSecret))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid api key", common.ErrUnauthorized)
		}
		return nil, err
	}
	return k, nil
}

// CreateAPIKey issues a new key. The plain key is returned once and never stored.
func (s *Service) CreateAPIKey(ctx context.Context, name string) (string, *models.APIKey, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	key, err := utils.GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}
	k := &models.APIKey{ID: uuid.NewString(), Name: strings.TrimSpace(name), KeyHash: utils.HashAPIKey(key, s.config.HMACSecret)}
	if err := s.repo.CreateAPIKey(ctx, k); err != nil {
		return "", nil, err
	}
	s.log.Infof("API key created: %s", k.Name)
	return key, k, nil
}

// openSession stores a session and signs its token
func (s *Service) openSession(ctx context.Context, userID string, role models.Role, ttl time.Duration) (*AuthResult, error) {
	now := s.now()
	session := &models.Session{ID: uuid.NewString(), UserID: userID, ExpiresAt: now.Add(ttl)}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	token, err := auth.GenerateToken(userID, session.ID, role, []byte(s.config.JWTSecret), ttl)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// findProfile returns nil without error when the user has no profile
func (s *Service) findProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// ProfileUpdate carries the editable profile fields
type ProfileUpdate struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	TaxID    string `json:"tax_id"`
}

// UpdateProfile edits the caller's profile. The role is never changed here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.Profile, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", common.ErrValidation)
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrProfileMissing
		}
		return nil, err
	}
	profile.FullName = strings.TrimSpace(in.FullName)
	profile.Phone = strings.TrimSpace(in.Phone)
	profile.TaxID = strings.TrimSpace(in.TaxID)
	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.log.Infof("Profile updated for user %s", userID)
	return profile, nil
}
