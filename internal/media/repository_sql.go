package media

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"media-webhooks-api/internal/db"
)

// SQLRepo implements Repository over SQLite or Postgres.
type SQLRepo struct {
	DB     *sql.DB
	Driver string
}

func (r *SQLRepo) Insert(ctx context.Context, o Object) error {
	_, err := r.DB.ExecContext(ctx, db.Rebind(r.Driver, `
INSERT INTO media_objects(id, tenant_id, filename, content_type, size_bytes, state, failure_reason, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?,?)
`), o.ID, o.TenantID, o.Filename, o.ContentType, o.SizeBytes, string(o.State), o.FailureReason, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *SQLRepo) Get(ctx context.Context, tenantID, id string) (Object, error) {
	var (
		o     Object
		state string
	)
	err := r.DB.QueryRowContext(ctx, db.Rebind(r.Driver, `
SELECT id, tenant_id, filename, content_type, size_bytes, state, failure_reason, created_at, updated_at
FROM media_objects WHERE tenant_id=? AND id=?
`), tenantID, id).Scan(
		&o.ID, &o.TenantID, &o.Filename, &o.ContentType, &o.SizeBytes, &state, &o.FailureReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug().
				Str("tenant_id", tenantID).
				Str("media_id", id).
				Msg("Media object not found in database")
			return Object{}, ErrNotFound
		}
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("media_id", id).
			Msg("Database error querying media object")
		return Object{}, err
	}
	o.State = State(state)
	return o, nil
}

// UpdateState is a compare-and-set on the state column so two concurrent
// transitions from the same state cannot both succeed.
func (r *SQLRepo) UpdateState(ctx context.Context, tenantID, id string, from, to State, reason string) (Object, error) {
	res, err := r.DB.ExecContext(ctx, db.Rebind(r.Driver, `
UPDATE media_objects SET state=?, failure_reason=?, updated_at=?
WHERE tenant_id=? AND id=? AND state=?
`), string(to), reason, time.Now().UTC(), tenantID, id, string(from))
	if err != nil {
		return Object{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Object{}, err
	}
	if n == 0 {
		return Object{}, ErrInvalidTransition
	}
	return r.Get(ctx, tenantID, id)
}
