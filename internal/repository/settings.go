package repository

import (
	"context"

	"github.com/Dan9191/finance-service/internal/models"
)

// GetAppSettings returns the stored settings with the SMTP password still encrypted.
// common.ErrNotFound means nothing was saved yet.
func (r *Repository) GetAppSettings(ctx context.Context) (*models.AppSettings, error) {
	s := &models.AppSettings{}
	err := r.conn(ctx).QueryRowContext(ctx, `
		SELECT app_name, short_name, description, theme_color, background_color, icon_url,
		       smtp_host, smtp_port, smtp_username, smtp_password_enc, sender_email, updated_at
		FROM finance.app_settings WHERE id = 1`).
		Scan(&s.AppName, &s.ShortName, &s.Description, &s.ThemeColor, &s.BackgroundColor, &s.IconURL,
			&s.SMTPHost, &s.SMTPPort, &s.SMTPUsername, &s.SMTPPassword, &s.SenderEmail, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err, "get app settings")
	}
	return s, nil
}

// SaveAppSettings upserts the settings row; SMTPPassword must already be encrypted
func (r *Repository) SaveAppSettings(ctx context.Context, s *models.AppSettings) error {
	err := r.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO finance.app_settings (id, app_name, short_name, description, theme_color, background_color,
			icon_url, smtp_host, smtp_port, smtp_username, smtp_password_enc, sender_email, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET app_name = EXCLUDED.app_name, short_name = EXCLUDED.short_name, description = EXCLUDED.description,
		    theme_color = EXCLUDED.theme_color, background_color = EXCLUDED.background_color,
		    icon_url = EXCLUDED.icon_url, smtp_host = EXCLUDED.smtp_host, smtp_port = EXCLUDED.smtp_port,
		    smtp_username = EXCLUDED.smtp_username, smtp_password_enc = EXCLUDED.smtp_password_enc,
		    sender_email = EXCLUDED.sender_email, updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at`,
		s.AppName, s.ShortName, s.Description, s.ThemeColor, s.BackgroundColor, s.IconURL,
		s.SMTPHost, s.SMTPPort, s.SMTPUsername, s.SMTPPassword, s.SenderEmail).Scan(&s.UpdatedAt)
	if err != nil {
		return translate(err, "save app settings")
	}
	return nil
}

// GetPreferences returns all stored preferences of a user
func (r *Repository) GetPreferences(ctx context.Context, userID string) ([]models.StoredPreference, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT key, value, version, updated_at FROM finance.user_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return nil, translate(err, "get preferences")
	}
	defer rows.Close()

	out := []models.StoredPreference{}
	for rows.Next() {
		var p models.StoredPreference
		var raw []byte
		if err := rows.Scan(&p.Key, &raw, &p.Version, &p.UpdatedAt); err != nil {
			return nil, translate(err, "get preferences")
		}
		p.Value = raw
		out = append(out, p)
	}
	return out, translateRowsErr(rows.Err(), "get preferences")
}

// SavePreference upserts one versioned preference
func (r *Repository) SavePreference(ctx context.Context, userID string, p models.StoredPreference) error {
	_, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO finance.user_preferences (user_id, key, value, version, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, key) DO UPDATE
		SET value = EXCLUDED.value, version = EXCLUDED.version, updated_at = CURRENT_TIMESTAMP`,
		userID, p.Key, string(p.Value), p.Version)
	if err != nil {
		return translate(err, "save preference")
	}
	return nil
}

// DeletePreference removes one preference
func (r *Repository) DeletePreference(ctx context.Context, userID string, key models.PreferenceKey) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM finance.user_preferences WHERE user_id = $1 AND key = $2`, userID, key)
	if err != nil {
		return translate(err, "delete preference")
	}
	return nil
}
