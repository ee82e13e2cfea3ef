// Package ledger keeps the append-only audit trail of mutations performed
// through the access layer, and derives deferred end-user notification
// obligations for the critical action categories.
package ledger

import "time"

// Action is the closed set of mutation categories the ledger records.
type Action string

const (
	ActionLocationEdit      Action = "location_edit"
	ActionLocationDelete    Action = "location_delete"
	ActionAdminAdd          Action = "admin_add"
	ActionAdminRemove       Action = "admin_remove"
	ActionVerificationStart Action = "verification_start"
)

// criticalActions mirrors the provider's transparency policy: these
// categories owe the end user a deferred notification.
var criticalActions = map[Action]struct{}{
	ActionAdminAdd:          {},
	ActionAdminRemove:       {},
	ActionLocationDelete:    {},
	ActionVerificationStart: {},
}

// Critical reports whether the action requires a deferred notification.
func (a Action) Critical() bool {
	_, ok := criticalActions[a]
	return ok
}

// NotificationDeferral is how long after the mutation the notification
// fires, fixed by the provider's transparency policy.
const NotificationDeferral = 48 * time.Hour

// FieldChange is one field's before/after pair inside an event diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ActivityEvent is one completed mutation. Events are created once and
// never mutated, except to flip the notified flag.
type ActivityEvent struct {
	ID          string
	PrincipalID string
	EntityID    string
	AccountID   string
	Action      Action
	Changes     map[string]FieldChange
	Metadata    map[string]any
	CreatedAt   time.Time
	Notified    bool
	NotifiedAt  *time.Time
}

// NotificationSchedule is the deferred obligation derived from a critical
// event. Delivery itself belongs to an external collaborator.
type NotificationSchedule struct {
	ID          string
	EventID     string
	PrincipalID string
	EntityID    string
	FireAt      time.Time
	Message     string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
