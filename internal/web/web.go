package web

import (
	"embed"
	"errors"
	"net/http"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/middleware"
	"github.com/Dan9191/finance-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed static/index.html static/offline.html
var static embed.FS

// Gatekeeper is what page gates need from the service
type Gatekeeper interface {
	middleware.Authenticator
	middleware.SubscriptionChecker
}

type gate int

const (
	open gate = iota
	guestOnly
	member
	adminOnly
)

// pages maps every SPA route to its gate
var pages = map[string]gate{
	"/":                     open,
	"/login":                guestOnly,
	"/subscription":         open,
	"/subscription/success": open,
	"/subscription/failure": open,
	"/dashboard":            member,
	"/settings":             member,
	"/admin":                adminOnly,
}

// Shell serves the single page app and redirects page requests the caller may not see
type Shell struct {
	gk    Gatekeeper
	log   *logrus.Logger
	index []byte
}

func NewShell(gk Gatekeeper, log *logrus.Logger) (*Shell, error) {
	index, err := static.ReadFile("static/index.html")
	if err != nil {
		return nil, err
	}
	return &Shell{gk: gk, log: log, index: index}, nil
}

func (s *Shell) Register(r *mux.Router) {
	for path, g := range pages {
		r.Handle(path, s.page(g)).Methods(http.MethodGet)
	}
	r.HandleFunc("/offline.html", s.offline).Methods(http.MethodGet)
}

// principal resolves the session cookie, nil when there is none or it is no longer valid
func (s *Shell) principal(r *http.Request) *service.Principal {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return nil
	}
	p, err := s.gk.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, common.ErrInvalidToken) {
			s.log.Warnf("Page session check failed: %v", err)
		}
		return nil
	}
	return p
}

func (s *Shell) page(g gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if target := s.redirectFor(r, g); target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(s.index)
	}
}

func (s *Shell) redirectFor(r *http.Request, g gate) string {
	if g == open {
		return ""
	}
	p := s.principal(r)

	switch g {
	case guestOnly:
		if p != nil {
			return "/dashboard"
		}
	case member:
		if p == nil {
			return "/login"
		}
		if err := s.gk.RequireActiveSubscription(r.Context(), p); err != nil {
			if errors.Is(err, common.ErrProfileMissing) {
				return "/login"
			}
			if !errors.Is(err, common.ErrSubscriptionRequired) {
				s.log.Warnf("Page subscription check failed for user %s: %v", p.UserID, err)
			}
			return "/subscription"
		}
	case adminOnly:
		if p == nil {
			return "/login"
		}
		if !p.IsAdmin() {
			return "/dashboard"
		}
	}
	return ""
}

func (s *Shell) offline(w http.ResponseWriter, r *http.Request) {
	body, err := static.ReadFile("static/offline.html")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}
