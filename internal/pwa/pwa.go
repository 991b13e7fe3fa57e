package pwa

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"text/template"

	"github.com/Dan9191/finance-service/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ShellRoutes are precached by the service worker so the app opens offline
var ShellRoutes = []string{
	"/",
	"/login",
	"/dashboard",
	"/settings",
	"/subscription",
	"/manifest.webmanifest",
	OfflinePage,
}

// OfflinePage is served for navigations that fail with nothing cached
const OfflinePage = "/offline.html"

// CacheName is the service worker cache for one app version
func CacheName(version string) string {
	return "finance-shell-" + version
}

//go:embed sw.js.tmpl
var swSource string

var swTemplate = template.Must(template.New("sw.js").Funcs(template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}).Parse(swSource))

// SettingsSource provides the branding the manifest is built from
type SettingsSource interface {
	GetSettings(ctx context.Context) (*models.AppSettings, error)
}

// Icon is a manifest icon entry
type Icon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

// Manifest is the web app manifest
type Manifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	StartURL        string `json:"start_url"`
	Scope           string `json:"scope"`
	Display         string `json:"display"`
	ThemeColor      string `json:"theme_color"`
	BackgroundColor string `json:"background_color"`
	Icons           []Icon `json:"icons"`
}

// BuildManifest fills the manifest from settings, using the defaults for blank fields
func BuildManifest(s *models.AppSettings) Manifest {
	d := models.DefaultAppSettings()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	m := Manifest{
		Name:            pick(s.AppName, d.AppName),
		ShortName:       pick(s.ShortName, pick(s.AppName, d.ShortName)),
		Description:     pick(s.Description, d.Description),
		StartURL:        "/dashboard",
		Scope:           "/",
		Display:         "standalone",
		ThemeColor:      pick(s.ThemeColor, d.ThemeColor),
		BackgroundColor: pick(s.BackgroundColor, d.BackgroundColor),
		Icons:           []Icon{},
	}
	if s.IconURL != "" {
		m.Icons = append(m.Icons,
			Icon{Src: s.IconURL, Sizes: "192x192", Type: "image/png"},
			Icon{Src: s.IconURL, Sizes: "512x512", Type: "image/png", Purpose: "any maskable"},
		)
	}
	return m
}

// RenderServiceWorker renders sw.js for one app version
func RenderServiceWorker(version string) ([]byte, error) {
	var buf bytes.Buffer
	err := swTemplate.Execute(&buf, struct {
		CacheName string
		Routes    []string
		Offline   string
	}{CacheName(version), ShellRoutes, OfflinePage})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Handler serves the manifest and the service worker
type Handler struct {
	settings SettingsSource
	version  string
	log      *logrus.Logger
}

func NewHandler(settings SettingsSource, version string, log *logrus.Logger) *Handler {
	return &Handler{settings: settings, version: version, log: log}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/manifest.webmanifest", h.Manifest).Methods(http.MethodGet)
	r.HandleFunc("/sw.js", h.ServiceWorker).Methods(http.MethodGet)
}

// Manifest falls back to the default branding when settings cannot be read
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetSettings(r.Context())
	if err != nil {
		h.log.Warnf("Failed to load app settings for manifest: %v", err)
		settings = models.DefaultAppSettings()
	}

	w.Header().Set("Content-Type", "application/manifest+json")
	if err := json.NewEncoder(w).Encode(BuildManifest(settings)); err != nil {
		h.log.Errorf("Failed to write manifest: %v", err)
	}
}

func (h *Handler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	body, err := RenderServiceWorker(h.version)
	if err != nil {
		h.log.Errorf("Failed to render service worker: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}
