package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/finance-service/internal/common"
	"github.com/Dan9191/finance-service/internal/models"
)

// preferenceVersions is the current schema version of each stored preference.
// Theme v1 stored a bool dark flag, v2 stores light, dark or system.
// A refresh marker of any other version is stale and means the client must reload.
var preferenceVersions = map[models.PreferenceKey]int{
	models.PrefTheme:                  2,
	models.PrefInstallPromptDismissed: 1,
	models.PrefAndroidRefresh:         1,
}

const defaultTheme = "system"

type timestampValue struct {
	At time.Time `json:"at"`
}

func validTheme(theme string) bool {
	return theme == "light" || theme == "dark" || theme == defaultTheme
}

// GetPreferences decodes the user's preferences, migrating or dropping outdated entries
func (s *Service) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	stored, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := &models.Preferences{Theme: defaultTheme}
	for _, p := range stored {
		current, known := preferenceVersions[p.Key]
		if !known {
			continue
		}

		switch p.Key {
		case models.PrefTheme:
			theme, migrated := decodeTheme(p)
			if theme == "" {
				continue
			}
			prefs.Theme = theme
			if migrated {
				if err := s.savePreference(ctx, userID, models.PrefTheme, theme); err != nil {
					s.log.Warnf("Failed to store migrated theme for user %s: %v", userID, err)
				}
			}

		case models.PrefInstallPromptDismissed:
			var v timestampValue
			if p.Version != current || json.Unmarshal(p.Value, &v) != nil {
				continue
			}
			at := v.At
			prefs.InstallPromptDismissedAt = &at

		case models.PrefAndroidRefresh:
			var v timestampValue
			if p.Version != current || json.Unmarshal(p.Value, &v) != nil {
				prefs.NeedsRefresh = true
				if err := s.repo.DeletePreference(ctx, userID, p.Key); err != nil {
					s.log.Warnf("Failed to drop stale refresh marker for user %s: %v", userID, err)
				}
				continue
			}
			at := v.At
			prefs.RefreshedAt = &at
		}
	}
	return prefs, nil
}

// decodeTheme reads a stored theme, reporting whether it came from an older version
func decodeTheme(p models.StoredPreference) (string, bool) {
	switch p.Version {
	case 1:
		var dark bool
		if json.Unmarshal(p.Value, &dark) != nil {
			return "", false
		}
		if dark {
			return "dark", true
		}
		return "light", true
	case preferenceVersions[models.PrefTheme]:
		var theme string
		if json.Unmarshal(p.Value, &theme) != nil || !validTheme(theme) {
			return "", false
		}
		return theme, false
	}
	return "", false
}

// UpdatePreferences applies the fields present in upd and returns the result
func (s *Service) UpdatePreferences(ctx context.Context, userID string, upd models.PreferencesUpdate) (*models.Preferences, error) {
	if upd.Theme != nil && !validTheme(*upd.Theme) {
		return nil, fmt.Errorf("%w: theme must be light, dark or system", common.ErrValidation)
	}

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if upd.Theme != nil {
			if err := s.savePreference(ctx, userID, models.PrefTheme, *upd.Theme); err != nil {
				return err
			}
		}
		if upd.InstallPromptDismissed != nil {
			if *upd.InstallPromptDismissed {
				if err := s.savePreference(ctx, userID, models.PrefInstallPromptDismissed, timestampValue{At: s.now().UTC()}); err != nil {
					return err
				}
			} else if err := s.repo.DeletePreference(ctx, userID, models.PrefInstallPromptDismissed); err != nil {
				return err
			}
		}
		if upd.Refreshed != nil && *upd.Refreshed {
			if err := s.savePreference(ctx, userID, models.PrefAndroidRefresh, timestampValue{At: s.now().UTC()}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Preferences updated for user %s", userID)
	return s.GetPreferences(ctx, userID)
}

func (s *Service) savePreference(ctx context.Context, userID string, key models.PreferenceKey, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference %s: %w", key, err)
	}
	return s.repo.SavePreference(ctx, userID, models.StoredPreference{
		Key:     key,
		Value:   raw,
		Version: preferenceVersions[key],
	})
}
