package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestInsertEvent(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	ev := &ActivityEvent{
		ID:          "evt-1",
		PrincipalID: "user-1",
		EntityID:    "locations/7",
		AccountID:   "accounts/1",
		Action:      ActionLocationEdit,
		Changes:     map[string]FieldChange{"title": {Old: "A", New: "B"}},
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO activity_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.InsertEvent(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryByEntity(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	created := time.Now().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"id", "principal_id", "entity_id", "account_id", "action", "changes", "metadata", "created_at", "notified", "notified_at"}).
		AddRow("evt-2", "user-1", "locations/7", "accounts/1", "admin_add", []byte(`{}`), []byte(`{}`), created, false, nil).
		AddRow("evt-1", "user-1", "locations/7", "accounts/1", "location_edit", []byte(`{"title":{"old":"A","new":"B"}}`), nil, created.Add(-time.Hour), true, created)

	mock.ExpectQuery("SELECT (.+) FROM activity_events").
		WithArgs("locations/7", 10).
		WillReturnRows(rows)

	repo := NewPostgresRepository(db)
	events, err := repo.HistoryByEntity(context.Background(), "locations/7", 10)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "evt-2", events[0].ID)
	assert.Equal(t, ActionAdminAdd, events[0].Action)
	assert.Equal(t, "B", events[1].Changes["title"].New)
	assert.True(t, events[1].Notified)
	require.NotNil(t, events[1].NotifiedAt)
}

func TestMarkNotified_NotFound(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE activity_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	err := repo.MarkNotified(context.Background(), "missing", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDueSchedules(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	fireAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"id", "event_id", "principal_id", "entity_id", "fire_at", "message", "created_at", "delivered_at"}).
		AddRow("sched-1", "evt-1", "user-1", "locations/7", fireAt, "A new manager was added.", fireAt.Add(-48*time.Hour), nil)

	mock.ExpectQuery("SELECT (.+) FROM notification_schedules").
		WillReturnRows(rows)

	repo := NewPostgresRepository(db)
	due, err := repo.DueSchedules(context.Background(), time.Now(), 10)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, "sched-1", due[0].ID)
	assert.Nil(t, due[0].DeliveredAt)
}
