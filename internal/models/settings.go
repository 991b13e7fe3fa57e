package models

import "time"

// AppSettings is the single row of remotely managed configuration:
// PWA branding plus the outgoing mail server.
type AppSettings struct {
	AppName         string    `json:"app_name"`
	ShortName       string    `json:"short_name"`
	Description     string    `json:"description"`
	ThemeColor      string    `json:"theme_color"`
	BackgroundColor string    `json:"background_color"`
	IconURL         string    `json:"icon_url"`
	SMTPHost        string    `json:"smtp_host"`
	SMTPPort        string    `json:"smtp_port"`
	SMTPUsername    string    `json:"smtp_username"`
	SMTPPassword    string    `json:"smtp_password,omitempty"`
	SenderEmail     string    `json:"sender_email"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultAppSettings is used until an admin saves settings
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		AppName:         "Finance",
		ShortName:       "Finance",
		Description:     "Personal finance management",
		ThemeColor:      "#0f172a",
		BackgroundColor: "#ffffff",
	}
}

// SMTPSettings is what the mail sender needs to reach a server
type SMTPSettings struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	From     string `json:"from"`
}
