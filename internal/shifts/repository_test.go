package shifts

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

func TestListForDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pid := uuid.New()
	shiftID := uuid.New()
	dayStart := scheduling.AtTime(monday, 0, 0)

	rows := pgxmock.NewRows([]string{
		"id", "practitioner_id", "start_at", "end_at", "room_id", "booking_option", "series_id", "repeat", "repeat_until",
	}).AddRow(shiftID, pid, scheduling.AtTime(monday, 9, 0), scheduling.AtTime(monday, 17, 0), uuid.Nil, "bookable", uuid.Nil, "", time.Time{})

	mock.ExpectQuery("SELECT id, practitioner_id, start_at").
		WithArgs(pid, dayStart, dayStart.AddDate(0, 0, 1)).
		WillReturnRows(rows)

	repo := NewRepositoryWithDB(mock)
	got, err := repo.ListForDate(context.Background(), pid, monday)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, shiftID, got[0].ID)
	assert.Equal(t, scheduling.Bookable, got[0].BookingOption)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTemplates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pid := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "practitioner_id", "weekdays", "start_hour", "start_minute", "end_hour", "end_minute", "room_id", "active",
	}).AddRow(uuid.New(), pid, []int32{1, 3, 5}, 9, 0, 17, 30, uuid.Nil, true)

	mock.ExpectQuery("SELECT id, practitioner_id, weekdays").
		WithArgs(pid).
		WillReturnRows(rows)

	repo := NewRepositoryWithDB(mock)
	got, err := repo.ListTemplates(context.Background(), pid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, got[0].Weekdays)
	assert.Equal(t, 17, got[0].EndHour)
	assert.Equal(t, 30, got[0].EndMinute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	err = repo.Create(context.Background(), &scheduling.Shift{
		PractitionerID: uuid.New(),
		StartAt:        scheduling.AtTime(monday, 17, 0),
		EndAt:          scheduling.AtTime(monday, 9, 0),
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceOverlapping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pid := uuid.New()
	s := &scheduling.Shift{
		PractitionerID: pid,
		StartAt:        scheduling.AtTime(monday, 10, 0),
		EndAt:          scheduling.AtTime(monday, 14, 0),
		BookingOption:  scheduling.Bookable,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shifts SET deleted").
		WithArgs(pid, s.EndAt, s.StartAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("INSERT INTO shifts").
		WithArgs(pgxmock.AnyArg(), pid, s.StartAt, s.EndAt, uuid.Nil, "bookable", uuid.Nil, "", time.Time{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewRepositoryWithDB(mock)
	require.NoError(t, repo.ReplaceOverlapping(context.Background(), s))
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingShift(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE shifts SET deleted").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepositoryWithDB(mock)
	err = repo.Delete(context.Background(), id)
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
