package models

import (
	"encoding/json"
	"time"
)

// PreferenceKey names one persisted user preference
type PreferenceKey string

const (
	PrefTheme                  PreferenceKey = "theme"
	PrefInstallPromptDismissed PreferenceKey = "install_prompt_dismissed"
	PrefAndroidRefresh         PreferenceKey = "android_refresh"
)

// StoredPreference is a raw versioned preference row
type StoredPreference struct {
	Key       PreferenceKey   `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Preferences is the decoded view of a user's stored preferences
type Preferences struct {
	Theme                    string     `json:"theme"`
	InstallPromptDismissedAt *time.Time `json:"install_prompt_dismissed_at,omitempty"`
	RefreshedAt              *time.Time `json:"refreshed_at,omitempty"`
	NeedsRefresh             bool       `json:"needs_refresh"`
}

// PreferencesUpdate carries the fields a client wants to change
type PreferencesUpdate struct {
	Theme                  *string `json:"theme,omitempty"`
	InstallPromptDismissed *bool   `json:"install_prompt_dismissed,omitempty"`
	Refreshed              *bool   `json:"refreshed,omitempty"`
}
