package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

func TestRepositoryListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entryID := uuid.New()
	joined := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "patient_id", "patient_name", "requested_service", "duration_mins", "priority", "preferred_practitioner_id", "notes", "joined_at",
	}).AddRow(entryID, uuid.New(), "Dana Reyes", "Botox", 30, "high", uuid.Nil, "", joined)

	mock.ExpectQuery("SELECT id, patient_id, patient_name").
		WillReturnRows(rows)

	repo := NewRepositoryWithDB(mock)
	got, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entryID, got[0].ID)
	assert.Equal(t, scheduling.PriorityHigh, got[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAddAssignsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	entry := scheduling.WaitlistEntry{
		PatientID:        uuid.New(),
		PatientName:      "Dana Reyes",
		RequestedService: "Botox",
		DurationMins:     30,
		Priority:         scheduling.PriorityMedium,
		JoinedAt:         time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO waitlist_entries").
		WithArgs(pgxmock.AnyArg(), entry.PatientID, entry.PatientName, entry.RequestedService,
			entry.DurationMins, "medium", uuid.Nil, "", entry.JoinedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepositoryWithDB(mock)
	require.NoError(t, repo.Add(context.Background(), &entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRemoveNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE waitlist_entries SET removed").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepositoryWithDB(mock)
	err = repo.Remove(context.Background(), id)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
