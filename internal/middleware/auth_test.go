package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
	"github.com/Dan9191/finance-service/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	principals map[string]*service.Principal
	err        error
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*service.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return nil, common.ErrInvalidToken
}

type stubSubs struct{ err error }

func (s stubSubs) RequireActiveSubscription(context.Context, *service.Principal) error { return s.err }

type stubKeys struct{}

func (stubKeys) AuthenticateAPIKey(_ context.Context, key string) (*models.APIKey, error) {
	if key == "fk_good" {
		return &models.APIKey{ID: "k1", Name: "bot"}, nil
	}
	return nil, common.ErrUnauthorized
}

var (
	user  = &service.Principal{UserID: "u1", SessionID: "s1", Role: models.RoleUser, HasProfile: true}
	admin = &service.Principal{UserID: "a1", SessionID: "s2", Role: models.RoleAdmin, HasProfile: true}
	auth  = stubAuth{principals: map[string]*service.Principal{"user-token": user, "admin-token": admin}}
)

// echo reports who the request was authorized as
func echo(w http.ResponseWriter, r *http.Request) {
	switch {
	case PrincipalFromContext(r.Context()) != nil:
		_, _ = w.Write([]byte(PrincipalFromContext(r.Context()).UserID))
	case APIKeyFromContext(r.Context()) != nil:
		_, _ = w.Write([]byte("key:" + APIKeyFromContext(r.Context()).ID))
	default:
		_, _ = w.Write([]byte("anonymous"))
	}
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(auth)(http.HandlerFunc(echo))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing token"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "admin-token"})
	assert.Equal(t, "a1", serve(h, req).Body.String())
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	h := Authenticate(stubAuth{err: errors.New("db down")})(http.HandlerFunc(echo))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	assert.Equal(t, http.StatusInternalServerError, serve(h, req).Code)
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(auth)(http.HandlerFunc(echo))

	assert.Equal(t, "anonymous", serve(h, httptest.NewRequest(http.MethodPost, "/api/checkout", nil)).Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.Header.Set("Authorization", "Bearer expired")
	assert.Equal(t, "anonymous", serve(h, req).Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	assert.Equal(t, "u1", serve(h, req).Body.String())
}

func TestRequireAdmin(t *testing.T) {
	h := Authenticate(auth)(RequireAdmin(http.HandlerFunc(echo)))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
}

func TestRequireSubscription(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"active", nil, http.StatusOK, "u1"},
		{"required", common.ErrSubscriptionRequired, http.StatusPaymentRequired, `{"error":"subscription required"}`},
		{"no profile", common.ErrProfileMissing, http.StatusForbidden, `{"error":"profile missing"}`},
		{"failure", errors.New("boom"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := Authenticate(auth)(RequireSubscription(stubSubs{err: tc.err})(http.HandlerFunc(echo)))
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			req.Header.Set("Authorization", "Bearer user-token")
			rec := serve(h, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.err == nil {
				assert.Equal(t, tc.body, rec.Body.String())
				return
			}
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	h := RequireAPIKey(stubKeys{})(http.HandlerFunc(echo))

	assert.Equal(t, http.StatusUnauthorized, serve(h, httptest.NewRequest(http.MethodPost, "/functions/v1/list-accounts", nil)).Code)

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/list-accounts", nil)
	req.Header.Set("Authorization", "Bearer fk_bad")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/functions/v1/list-accounts", nil)
	req.Header.Set("Authorization", "Bearer fk_good")
	rec := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key:k1", rec.Body.String())
}

func TestAPIKeyOrSession(t *testing.T) {
	h := APIKeyOrSession(stubKeys{}, auth)(http.HandlerFunc(echo))

	for token, want := range map[string]string{"fk_good": "key:k1", "user-token": "u1"} {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/mark-cart-converted", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve(h, req)
		require.Equal(t, http.StatusOK, rec.Code, token)
		assert.Equal(t, want, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/mark-cart-converted", nil)
	req.Header.Set("Authorization", "Bearer fk_bad")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	assert.Empty(t, TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(req))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/healthz"`)
}
