package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"media-webhooks-api/internal/db"
)

// SQLRepo implements Repository over SQLite or Postgres.
type SQLRepo struct {
	DB     *sql.DB
	Driver string
}

const registrationColumns = `id, tenant_id, name, url, secret, events, active, failure_count, last_triggered_at, created_at, updated_at`

func (r *SQLRepo) q(query string) string {
	return db.Rebind(r.Driver, query)
}

func (r *SQLRepo) Create(ctx context.Context, reg Registration) (Registration, error) {
	if err := reg.Validate(); err != nil {
		return Registration{}, err
	}
	events, err := json.Marshal(reg.Events)
	if err != nil {
		return Registration{}, fmt.Errorf("encode events: %w", err)
	}

	now := time.Now().UTC()
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.FailureCount = 0
	reg.LastTriggeredAt = nil
	reg.CreatedAt = now
	reg.UpdatedAt = now

	_, err = r.DB.ExecContext(ctx, r.q(`
INSERT INTO webhooks(`+registrationColumns+`)
VALUES(?,?,?,?,?,?,?,?,?,?,?)
`), reg.ID, reg.TenantID, reg.Name, reg.URL, reg.Secret, string(events), reg.Active, 0, nil, now, now)
	if err != nil {
		return Registration{}, err
	}
	return reg, nil
}

func (r *SQLRepo) Get(ctx context.Context, tenantID, id string) (Registration, error) {
	row := r.DB.QueryRowContext(ctx, r.q(`
SELECT `+registrationColumns+`
FROM webhooks WHERE tenant_id=? AND id=?
`), tenantID, id)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug().
				Str("tenant_id", tenantID).
				Str("webhook_id", id).
				Msg("Webhook not found in database")
			return Registration{}, ErrNotFound
		}
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("webhook_id", id).
			Msg("Database error querying webhook")
		return Registration{}, err
	}
	return reg, nil
}

func (r *SQLRepo) List(ctx context.Context, tenantID string) ([]Registration, error) {
	return r.query(ctx, `
SELECT `+registrationColumns+`
FROM webhooks WHERE tenant_id=?
ORDER BY created_at
`, tenantID)
}

// FindActiveByTenantAndEvent narrows by tenant, active flag and a textual
// match on the encoded event list; the resolver re-checks membership exactly.
func (r *SQLRepo) FindActiveByTenantAndEvent(ctx context.Context, tenantID string, event EventType) ([]Registration, error) {
	pattern := `%"` + event.String() + `"%`
	return r.query(ctx, `
SELECT `+registrationColumns+`
FROM webhooks WHERE tenant_id=? AND active=? AND events LIKE ?
`, tenantID, true, pattern)
}

func (r *SQLRepo) Update(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	events, err := json.Marshal(reg.Events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, r.q(`
UPDATE webhooks SET name=?, url=?, events=?, active=?, updated_at=?
WHERE tenant_id=? AND id=?
`), reg.Name, reg.URL, string(events), reg.Active, time.Now().UTC(), reg.TenantID, reg.ID)
	return affectedOne(res, err)
}

func (r *SQLRepo) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.DB.ExecContext(ctx, r.q(`DELETE FROM webhooks WHERE tenant_id=? AND id=?`), tenantID, id)
	return affectedOne(res, err)
}

func (r *SQLRepo) RotateSecret(ctx context.Context, tenantID, id, secret string) error {
	res, err := r.DB.ExecContext(ctx, r.q(`
UPDATE webhooks SET secret=?, updated_at=? WHERE tenant_id=? AND id=?
`), secret, time.Now().UTC(), tenantID, id)
	return affectedOne(res, err)
}

// UpdateHealth resets or increments failure_count in a single statement so
// concurrent sequences for the same webhook never lose an increment.
func (r *SQLRepo) UpdateHealth(ctx context.Context, webhookID string, success bool) error {
	query := `UPDATE webhooks SET failure_count = failure_count + 1, last_triggered_at=? WHERE id=?`
	if success {
		query = `UPDATE webhooks SET failure_count = 0, last_triggered_at=? WHERE id=?`
	}
	_, err := r.DB.ExecContext(ctx, r.q(query), time.Now().UTC(), webhookID)
	return err
}

func (r *SQLRepo) InsertDeliveryRecord(ctx context.Context, rec DeliveryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var status sql.NullInt64
	if rec.StatusCode != nil {
		status = sql.NullInt64{Int64: int64(*rec.StatusCode), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, r.q(`
INSERT INTO webhook_deliveries(id, webhook_id, event, payload, status_code, response_body, duration_ms, success, attempt, error, created_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?)
`), rec.ID, rec.WebhookID, rec.Event.String(), rec.Payload, status,
		Truncate(rec.ResponseBody, MaxResponseChars), rec.DurationMs, rec.Success, rec.Attempt, rec.Error, rec.CreatedAt)
	return err
}

func (r *SQLRepo) ListDeliveries(ctx context.Context, tenantID, webhookID string, limit int) ([]DeliveryRecord, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`
SELECT d.id, d.webhook_id, d.event, d.payload, d.status_code, d.response_body, d.duration_ms, d.success, d.attempt, d.error, d.created_at
FROM webhook_deliveries d
JOIN webhooks w ON w.id = d.webhook_id
WHERE w.tenant_id=? AND d.webhook_id=?
ORDER BY d.created_at DESC, d.attempt DESC
LIMIT ?
`), tenantID, webhookID, limit)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []DeliveryRecord
	for rows.Next() {
		var (
			d      DeliveryRecord
			event  string
			status sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.WebhookID, &event, &d.Payload, &status, &d.ResponseBody,
			&d.DurationMs, &d.Success, &d.Attempt, &d.Error, &d.CreatedAt); err != nil {
			return nil, err
		}
		if d.Event, err = ParseEventType(event); err != nil {
			log.Warn().
				Err(err).
				Str("delivery_id", d.ID).
				Msg("Skipping delivery record with unknown event")
			continue
		}
		if status.Valid {
			code := int(status.Int64)
			d.StatusCode = &code
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLRepo) query(ctx context.Context, query string, args ...any) ([]Registration, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s scanner) (Registration, error) {
	var (
		reg    Registration
		events string
		last   sql.NullTime
	)
	if err := s.Scan(&reg.ID, &reg.TenantID, &reg.Name, &reg.URL, &reg.Secret, &events,
		&reg.Active, &reg.FailureCount, &last, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return Registration{}, err
	}
	if err := json.Unmarshal([]byte(events), &reg.Events); err != nil {
		return Registration{}, fmt.Errorf("decode events for webhook %s: %w", reg.ID, err)
	}
	if last.Valid {
		t := last.Time
		reg.LastTriggeredAt = &t
	}
	return reg, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
