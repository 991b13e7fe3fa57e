package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/service"
	"github.com/Dan9191/finance-service/internal/utils"
	"github.com/gorilla/mux"
)

// AccessTokenCookie carries the session token for page requests
const AccessTokenCookie = "access_token"

type ctxKey string

const (
	principalKey ctxKey = "principal"
	apiKeyKey    ctxKey = "apiKey"
)

// Authenticator resolves a session token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
}

// SubscriptionChecker decides whether a caller may see subscriber content
type SubscriptionChecker interface {
	RequireActiveSubscription(ctx context.Context, p *service.Principal) error
}

// APIKeyChecker resolves a machine caller's key
type APIKeyChecker interface {
	AuthenticateAPIKey(ctx context.Context, key string) (*models.APIKey, error)
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated caller, or nil
func PrincipalFromContext(ctx context.Context) *service.Principal {
	p, _ := ctx.Value(principalKey).(*service.Principal)
	return p
}

// APIKeyFromContext returns the API key that authorized the request, or nil
func APIKeyFromContext(ctx context.Context) *models.APIKey {
	k, _ := ctx.Value(apiKeyKey).(*models.APIKey)
	return k
}

// TokenFromRequest reads the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Authenticate rejects requests without a valid session with 401
func Authenticate(a Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}
			p, err := a.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, common.ErrInvalidToken) {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets anonymous requests through
func OptionalAuth(a Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if p, err := a.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects non-admin callers with 403. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSubscription answers 402 to callers without an active subscription
func RequireSubscription(c SubscriptionChecker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := c.RequireActiveSubscription(r.Context(), PrincipalFromContext(r.Context()))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, common.ErrSubscriptionRequired):
				writeError(w, http.StatusPaymentRequired, "subscription required")
			case errors.Is(err, common.ErrProfileMissing):
				writeError(w, http.StatusForbidden, "profile missing")
			case errors.Is(err, common.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, "missing token")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		})
	}
}

// RequireAPIKey authorizes machine callers by `Authorization: Bearer <key>`
func RequireAPIKey(c APIKeyChecker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			k, err := c.AuthenticateAPIKey(r.Context(), strings.TrimSpace(key))
			if err != nil {
				if errors.Is(err, common.ErrUnauthorized) {
					writeError(w, http.StatusUnauthorized, "invalid api key")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyKey, k)))
		})
	}
}

// APIKeyOrSession accepts either an API key or a user session
func APIKeyOrSession(keys APIKeyChecker, a Authenticator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}
			ctx := r.Context()
			if strings.HasPrefix(token, utils.APIKeyPrefix) {
				k, err := keys.AuthenticateAPIKey(ctx, token)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid api key")
					return
				}
				ctx = context.WithValue(ctx, apiKeyKey, k)
			} else {
				p, err := a.Authenticate(ctx, token)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				ctx = WithPrincipal(ctx, p)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
