package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderovie/fascinante-listings/internal/dbx"
)

// PostgresRepository persists events and schedules. Diffs and metadata are
// stored as jsonb.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InsertEvent(ctx context.Context, ev *ActivityEvent) error {
	changes, err := json.Marshal(ev.Changes)
	if err != nil {
		return fmt.Errorf("error serializing changes: %w", err)
	}
	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("error serializing metadata: %w", err)
	}

	query := `
		INSERT INTO activity_events (id, principal_id, entity_id, account_id, action, changes, metadata, created_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
	`
	if _, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.PrincipalID, ev.EntityID, ev.AccountID, string(ev.Action),
		changes, metadata, ev.CreatedAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertSchedule(ctx context.Context, sched *NotificationSchedule) error {
	query := `
		INSERT INTO notification_schedules (id, event_id, principal_id, entity_id, fire_at, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		sched.ID, sched.EventID, sched.PrincipalID, sched.EntityID,
		sched.FireAt, sched.Message, sched.CreatedAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

const eventColumns = `id, principal_id, entity_id, account_id, action, changes, metadata, created_at, notified, notified_at`

func (r *PostgresRepository) HistoryByEntity(ctx context.Context, entityID string, limit int) ([]*ActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM activity_events
		WHERE entity_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryEvents(ctx, query, entityID, limit)
}

func (r *PostgresRepository) HistoryByPrincipal(ctx context.Context, principalID string, limit int) ([]*ActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM activity_events
		WHERE principal_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryEvents(ctx, query, principalID, limit)
}

func (r *PostgresRepository) EventsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*ActivityEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM activity_events
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	return r.queryEvents(ctx, query, cutoff, limit)
}

func (r *PostgresRepository) MarkNotified(ctx context.Context, eventID string, at time.Time) error {
	query := `
		UPDATE activity_events
		SET notified = true, notified_at = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, eventID, at)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DueSchedules(ctx context.Context, now time.Time, limit int) ([]*NotificationSchedule, error) {
	query := `
		SELECT id, event_id, principal_id, entity_id, fire_at, message, created_at, delivered_at
		FROM notification_schedules
		WHERE delivered_at IS NULL AND fire_at <= $1
		ORDER BY fire_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*NotificationSchedule
	for rows.Next() {
		s := &NotificationSchedule{}
		var delivered sql.NullTime
		if err := rows.Scan(&s.ID, &s.EventID, &s.PrincipalID, &s.EntityID,
			&s.FireAt, &s.Message, &s.CreatedAt, &delivered); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if delivered.Valid {
			s.DeliveredAt = &delivered.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*ActivityEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*ActivityEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (*ActivityEvent, error) {
	ev := &ActivityEvent{}
	var action string
	var changes, metadata []byte
	var notifiedAt sql.NullTime

	if err := rows.Scan(&ev.ID, &ev.PrincipalID, &ev.EntityID, &ev.AccountID,
		&action, &changes, &metadata, &ev.CreatedAt, &ev.Notified, &notifiedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	ev.Action = Action(action)
	if notifiedAt.Valid {
		ev.NotifiedAt = &notifiedAt.Time
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &ev.Changes); err != nil {
			return nil, fmt.Errorf("error deserializing changes: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("error deserializing metadata: %w", err)
		}
	}
	return ev, nil
}
