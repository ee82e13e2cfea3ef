package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/google/uuid"
)

// Service appends events and derives notification schedules for critical
// actions. It never deletes or rewrites what it recorded.
type Service struct {
	repo Repository
	now  func() time.Time
	log  logging.Logger
}

func NewService(repo Repository, log logging.Logger) *Service {
	return &Service{repo: repo, now: time.Now, log: log}
}

// Record persists the event and, for critical categories, a schedule firing
// at event time plus the fixed deferral window.
func (s *Service) Record(ctx context.Context, ev *ActivityEvent) error {
	if ev.PrincipalID == "" || ev.EntityID == "" || ev.Action == "" {
		return fmt.Errorf("activity event missing principal, entity, or action")
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}

	if !ev.Action.Critical() {
		return nil
	}

	sched := &NotificationSchedule{
		ID:          uuid.NewString(),
		EventID:     ev.ID,
		PrincipalID: ev.PrincipalID,
		EntityID:    ev.EntityID,
		FireAt:      ev.CreatedAt.Add(NotificationDeferral),
		Message:     renderMessage(ev),
		CreatedAt:   s.now(),
	}
	if err := s.repo.InsertSchedule(ctx, sched); err != nil {
		return fmt.Errorf("error scheduling notification: %w", err)
	}

	s.log.Info(ctx, "notification scheduled",
		"event", ev.ID, "action", string(ev.Action), "fire_at", sched.FireAt)
	return nil
}

// HistoryByEntity lists an entity's events, most recent first.
func (s *Service) HistoryByEntity(ctx context.Context, entityID string, limit int) ([]*ActivityEvent, error) {
	return s.repo.HistoryByEntity(ctx, entityID, normalizeLimit(limit))
}

// HistoryByPrincipal lists a principal's events, most recent first.
func (s *Service) HistoryByPrincipal(ctx context.Context, principalID string, limit int) ([]*ActivityEvent, error) {
	return s.repo.HistoryByPrincipal(ctx, principalID, normalizeLimit(limit))
}

// MarkNotified flips the event's notified flag once the external delivery
// collaborator has sent the message.
func (s *Service) MarkNotified(ctx context.Context, eventID string) error {
	return s.repo.MarkNotified(ctx, eventID, s.now())
}

// DueSchedules lists undelivered schedules ready to fire.
func (s *Service) DueSchedules(ctx context.Context, limit int) ([]*NotificationSchedule, error) {
	return s.repo.DueSchedules(ctx, s.now(), normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

func renderMessage(ev *ActivityEvent) string {
	switch ev.Action {
	case ActionAdminAdd:
		return fmt.Sprintf("A new manager was added to %s.", ev.EntityID)
	case ActionAdminRemove:
		return fmt.Sprintf("A manager was removed from %s.", ev.EntityID)
	case ActionLocationDelete:
		return fmt.Sprintf("The business profile %s was deleted.", ev.EntityID)
	case ActionVerificationStart:
		return fmt.Sprintf("Verification was initiated for %s.", ev.EntityID)
	default:
		return fmt.Sprintf("Changes were made to %s.", ev.EntityID)
	}
}
