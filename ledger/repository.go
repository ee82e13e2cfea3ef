package ledger

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Repository defines persistence for activity events and their derived
// notification schedules. Events are insert-only; the single permitted
// update is flipping the notified flag.
type Repository interface {
	InsertEvent(ctx context.Context, ev *ActivityEvent) error
	InsertSchedule(ctx context.Context, sched *NotificationSchedule) error

	// HistoryByEntity returns the entity's events, most recent first.
	HistoryByEntity(ctx context.Context, entityID string, limit int) ([]*ActivityEvent, error)

	// HistoryByPrincipal returns the principal's events, most recent first.
	HistoryByPrincipal(ctx context.Context, principalID string, limit int) ([]*ActivityEvent, error)

	// MarkNotified flips the event's notified flag and stamps the time.
	MarkNotified(ctx context.Context, eventID string, at time.Time) error

	// DueSchedules returns undelivered schedules whose fire-at has passed.
	DueSchedules(ctx context.Context, now time.Time, limit int) ([]*NotificationSchedule, error)

	// EventsBefore returns events created before cutoff, oldest first,
	// for archival.
	EventsBefore(ctx context.Context, cutoff time.Time, limit int) ([]*ActivityEvent, error)
}
