package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
)

type SettingsRepository interface {
	GetByID(ctx context.Context, id string) (*model.AutomationSettings, error)
	FindFirstActive(ctx context.Context) (*model.AutomationSettings, error)
	ListActive(ctx context.Context) ([]model.AutomationSettings, error)
	FindByChatID(ctx context.Context, chatID string) (*model.AutomationSettings, error)
	SetActive(ctx context.Context, id string, active bool) error

	// MarkSolved moves last_solved_date forward to day. It never moves it back.
	MarkSolved(ctx context.Context, id string, day time.Time) (bool, error)
	// SetTargetTimeIfUnset stores target unless a target at or after notBefore is
	// already recorded. It returns the target in effect and whether this call set it.
	SetTargetTimeIfUnset(ctx context.Context, id string, target, notBefore time.Time) (time.Time, bool, error)
	// RecordUpdateID stores updateID unless it is already the last seen id.
	// A false result means the update is a redelivery.
	RecordUpdateID(ctx context.Context, id string, updateID int64) (bool, error)

	AcquireLease(ctx context.Context, id, holder string, ttl time.Duration) (*time.Time, error)
	ReleaseLease(ctx context.Context, id, holder string) error
}

const settingsColumns = `id, leetcode_session, csrf_token, gemini_api_key, telegram_token, telegram_chat_id,
	is_active, last_solved_date, target_time, last_telegram_update_id, lease_holder, lease_expires_at,
	cf_handle, cf_jsessionid, cf_csrf_token, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type pgSettingsRepository struct {
	db *sql.DB
}

func NewPgSettingsRepository(db *sql.DB) SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func scanSettings(row rowScanner) (*model.AutomationSettings, error) {
	s := &model.AutomationSettings{}
	err := row.Scan(
		&s.ID, &s.LeetCodeSession, &s.CSRFToken, &s.GeminiAPIKey, &s.TelegramToken, &s.TelegramChatID,
		&s.IsActive, &s.LastSolvedDate, &s.TargetTime, &s.LastTelegramUpdateID, &s.LeaseHolder, &s.LeaseExpiresAt,
		&s.CFHandle, &s.CFJSessionID, &s.CFCSRFToken, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgSettingsRepository) GetByID(ctx context.Context, id string) (*model.AutomationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM automation_settings WHERE id = $1`
	s, err := scanSettings(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSettingsRepository.GetByID: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepository) FindFirstActive(ctx context.Context) (*model.AutomationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM automation_settings
	          WHERE is_active ORDER BY created_at LIMIT 1`
	s, err := scanSettings(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSettingsRepository.FindFirstActive: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepository) ListActive(ctx context.Context) ([]model.AutomationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM automation_settings WHERE is_active ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgSettingsRepository.ListActive: %w", err)
	}
	defer rows.Close()

	var out []model.AutomationSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSettingsRepository.ListActive scan: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSettingsRepository.ListActive rows: %w", err)
	}
	return out, nil
}

func (r *pgSettingsRepository) FindByChatID(ctx context.Context, chatID string) (*model.AutomationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM automation_settings
	          WHERE telegram_chat_id = $1 ORDER BY created_at LIMIT 1`
	s, err := scanSettings(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSettingsRepository.FindByChatID: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE automation_settings SET is_active = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("pgSettingsRepository.SetActive: %w", err)
	}
	return requireOneRow(res)
}

func (r *pgSettingsRepository) MarkSolved(ctx context.Context, id string, day time.Time) (bool, error) {
	query := `UPDATE automation_settings
	          SET last_solved_date = $2::date, updated_at = NOW()
	          WHERE id = $1 AND (last_solved_date IS NULL OR last_solved_date < $2::date)`
	res, err := r.db.ExecContext(ctx, query, id, model.Day(day).Format(time.DateOnly))
	if err != nil {
		return false, fmt.Errorf("pgSettingsRepository.MarkSolved: %w", err)
	}
	return affected(res)
}

func (r *pgSettingsRepository) SetTargetTimeIfUnset(ctx context.Context, id string, target, notBefore time.Time) (time.Time, bool, error) {
	query := `UPDATE automation_settings
	          SET target_time = $2, updated_at = NOW()
	          WHERE id = $1 AND (target_time IS NULL OR target_time < $3)
	          RETURNING target_time`
	var stored time.Time
	err := r.db.QueryRowContext(ctx, query, id, target.UTC(), notBefore.UTC()).Scan(&stored)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, fmt.Errorf("pgSettingsRepository.SetTargetTimeIfUnset: %w", err)
	}

	// Another invocation already scheduled today; report its target.
	var existing sql.NullTime
	err = r.db.QueryRowContext(ctx, `SELECT target_time FROM automation_settings WHERE id = $1`, id).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, common.ErrNotFound
		}
		return time.Time{}, false, fmt.Errorf("pgSettingsRepository.SetTargetTimeIfUnset read: %w", err)
	}
	return existing.Time, false, nil
}

func (r *pgSettingsRepository) RecordUpdateID(ctx context.Context, id string, updateID int64) (bool, error) {
	query := `UPDATE automation_settings
	          SET last_telegram_update_id = $2, updated_at = NOW()
	          WHERE id = $1 AND last_telegram_update_id IS DISTINCT FROM $2`
	res, err := r.db.ExecContext(ctx, query, id, updateID)
	if err != nil {
		return false, fmt.Errorf("pgSettingsRepository.RecordUpdateID: %w", err)
	}
	return affected(res)
}

func (r *pgSettingsRepository) AcquireLease(ctx context.Context, id, holder string, ttl time.Duration) (*time.Time, error) {
	query := `UPDATE automation_settings
	          SET lease_holder = $2, lease_expires_at = NOW() + make_interval(secs => $3), updated_at = NOW()
	          WHERE id = $1 AND (lease_expires_at IS NULL OR lease_expires_at <= NOW() OR lease_holder = $2)
	          RETURNING lease_expires_at`
	var expires time.Time
	err := r.db.QueryRowContext(ctx, query, id, holder, ttl.Seconds()).Scan(&expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settings %s: %w", id, common.ErrLeaseHeld)
		}
		return nil, fmt.Errorf("pgSettingsRepository.AcquireLease: %w", err)
	}
	return &expires, nil
}

func (r *pgSettingsRepository) ReleaseLease(ctx context.Context, id, holder string) error {
	query := `UPDATE automation_settings
	          SET lease_holder = NULL, lease_expires_at = NULL, updated_at = NOW()
	          WHERE id = $1 AND lease_holder = $2`
	if _, err := r.db.ExecContext(ctx, query, id, holder); err != nil {
		return fmt.Errorf("pgSettingsRepository.ReleaseLease: %w", err)
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func requireOneRow(res sql.Result) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}
