package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/waitlist"
)

type fakeStore struct {
	appointments map[uuid.UUID]scheduling.Appointment
	createErr    error
}

func newFakeStore(appts ...scheduling.Appointment) *fakeStore {
	s := &fakeStore{appointments: map[uuid.UUID]scheduling.Appointment{}}
	for _, a := range appts {
		s.appointments[a.ID] = a
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (scheduling.Appointment, error) {
	a, ok := s.appointments[id]
	if !ok {
		return scheduling.Appointment{}, errors.New("appointment not found")
	}
	return a, nil
}

func (s *fakeStore) ListConflictCandidates(_ context.Context, practitionerID, roomID uuid.UUID, from, to time.Time) ([]scheduling.Appointment, error) {
	var out []scheduling.Appointment
	for _, a := range s.appointments {
		if !a.Active() {
			continue
		}
		if a.PractitionerID != practitionerID && (roomID == uuid.Nil || a.RoomID != roomID) {
			continue
		}
		if a.StartAt.Before(to) && from.Before(a.EndAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, a *scheduling.Appointment) error {
	if s.createErr != nil {
		return s.createErr
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.appointments[a.ID] = *a
	return nil
}

func (s *fakeStore) Reschedule(_ context.Context, id uuid.UUID, startAt, endAt time.Time, overridden bool) error {
	a, ok := s.appointments[id]
	if !ok {
		return errors.New("appointment not found")
	}
	a.StartAt, a.EndAt, a.ConflictOverridden = startAt, endAt, overridden
	s.appointments[id] = a
	return nil
}

func (s *fakeStore) Cancel(_ context.Context, id uuid.UUID, by, reason string, at time.Time) error {
	a, ok := s.appointments[id]
	if !ok {
		return errors.New("appointment not found")
	}
	a.Status = scheduling.StatusCancelled
	a.CancelledAt, a.CancelledBy, a.CancellationReason = at, by, reason
	s.appointments[id] = a
	return nil
}

type fakeBreaks struct {
	breaks []scheduling.Break
}

func (b *fakeBreaks) ListForPractitioner(context.Context, uuid.UUID) ([]scheduling.Break, error) {
	return b.breaks, nil
}

type fakeOverride struct {
	active bool
	actor  string
}

func (o *fakeOverride) Active() bool { return o.active }
func (o *fakeOverride) Actor() string { return o.actor }

type fakeWaitlist struct {
	entries []scheduling.WaitlistEntry
}

func (w *fakeWaitlist) ListActive(context.Context) ([]scheduling.WaitlistEntry, error) {
	return w.entries, nil
}

type fakeOffers struct {
	offered []scheduling.Appointment
}

func (o *fakeOffers) OfferFreedSlot(_ context.Context, cancelled scheduling.Appointment, entries []scheduling.WaitlistEntry) (waitlist.Suggestion, error) {
	o.offered = append(o.offered, cancelled)
	s := waitlist.SuggestAutoFill(cancelled, entries)
	return s, nil
}

var tuesday = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return scheduling.AtTime(tuesday, hour, minute)
}

func existingAppointment(pid uuid.UUID, startHour, durationMins int) scheduling.Appointment {
	start := at(startHour, 0)
	return scheduling.Appointment{
		ID:             uuid.New(),
		PatientName:    "Alex Kim",
		PractitionerID: pid,
		ServiceName:    "Botox",
		DurationMins:   durationMins,
		StartAt:        start,
		EndAt:          start.Add(time.Duration(durationMins) * time.Minute),
		Status:         scheduling.StatusScheduled,
	}
}

func TestBook_NoConflict(t *testing.T) {
	pid := uuid.New()
	store := newFakeStore(existingAppointment(pid, 9, 60))
	svc := NewService(Config{Store: store})

	appt, err := svc.Book(context.Background(), BookRequest{
		PatientName:    "Dana Reyes",
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(10, 0),
		Actor:          "frontdesk",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.False(t, appt.ConflictOverridden)
	assert.Equal(t, at(10, 30), appt.EndAt)
}

func TestBook_BackToBackIsNotAConflict(t *testing.T) {
	pid := uuid.New()
	store := newFakeStore(existingAppointment(pid, 9, 60))
	svc := NewService(Config{Store: store})

	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(10, 0).Add(-30 * time.Minute), // 9:30 collides
	})
	require.Error(t, err)

	_, err = svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(10, 0), // starts exactly when the other ends
	})
	assert.NoError(t, err)
}

func TestBook_MidnightSpanningWindowConflicts(t *testing.T) {
	pid := uuid.New()
	nextMorning := scheduling.Appointment{
		ID:             uuid.New(),
		PatientName:    "Alex Kim",
		PractitionerID: pid,
		ServiceName:    "Botox",
		DurationMins:   60,
		StartAt:        scheduling.AtTime(tuesday.AddDate(0, 0, 1), 0, 0),
		EndAt:          scheduling.AtTime(tuesday.AddDate(0, 0, 1), 1, 0),
		Status:         scheduling.StatusScheduled,
	}
	store := newFakeStore(nextMorning)
	svc := NewService(Config{Store: store})

	// 23:30-00:30 crosses midnight into the next morning's appointment.
	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   60,
		StartAt:        at(23, 30),
		Actor:          "frontdesk",
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Appointments, 1)
	assert.Equal(t, nextMorning.ID, conflictErr.Appointments[0].ID)
}

func TestBook_ConflictRejectedAndAudited(t *testing.T) {
	pid := uuid.New()
	blocking := existingAppointment(pid, 9, 60)
	store := newFakeStore(blocking)
	recorder := audit.NewMemoryRecorder()
	svc := NewService(Config{Store: store, Recorder: recorder})

	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(9, 30),
		Actor:          "frontdesk",
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Appointments, 1)
	assert.Equal(t, blocking.ID, conflictErr.Appointments[0].ID)
	assert.Contains(t, conflictErr.Message, "Alex Kim")

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventBookingRejected, events[0].EventType)
	assert.Equal(t, "frontdesk", events[0].Actor)
}

func TestBook_OverrideCreatesFlaggedAppointment(t *testing.T) {
	pid := uuid.New()
	blocking := existingAppointment(pid, 9, 60)
	store := newFakeStore(blocking)
	recorder := audit.NewMemoryRecorder()
	svc := NewService(Config{
		Store:    store,
		Override: &fakeOverride{active: true, actor: "dr.lee"},
		Recorder: recorder,
	})

	appt, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(9, 30),
		Actor:          "frontdesk",
	})
	require.NoError(t, err)
	assert.True(t, appt.ConflictOverridden)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventConflictOverridden, events[0].EventType)
	assert.Equal(t, "dr.lee", events[0].Actor, "override is attributed to whoever enabled it")

	var details audit.Details
	require.NoError(t, json.Unmarshal(events[0].Details, &details))
	assert.Equal(t, []string{blocking.ID.String()}, details.ConflictingAppointmentIDs)
}

func TestBook_BreakConflict(t *testing.T) {
	pid := uuid.New()
	store := newFakeStore()
	breaks := &fakeBreaks{breaks: []scheduling.Break{{
		ID:             uuid.New(),
		PractitionerID: pid,
		Type:           "lunch",
		StartAt:        at(12, 0),
		EndAt:          at(13, 0),
	}}}
	svc := NewService(Config{Store: store, Breaks: breaks})

	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(12, 30),
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Breaks, 1)
	assert.Contains(t, conflictErr.Message, "lunch")
}

func TestBook_CancelledAppointmentDoesNotBlock(t *testing.T) {
	pid := uuid.New()
	cancelled := existingAppointment(pid, 9, 60)
	cancelled.Status = scheduling.StatusCancelled
	store := newFakeStore(cancelled)
	svc := NewService(Config{Store: store})

	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: pid,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(9, 30),
	})
	assert.NoError(t, err)
}

func TestBook_SameRoomDifferentPractitionerConflicts(t *testing.T) {
	room := uuid.New()
	other := existingAppointment(uuid.New(), 9, 60)
	other.RoomID = room
	store := newFakeStore(other)
	svc := NewService(Config{Store: store})

	_, err := svc.Book(context.Background(), BookRequest{
		PractitionerID: uuid.New(),
		RoomID:         room,
		ServiceName:    "Filler",
		DurationMins:   30,
		StartAt:        at(9, 30),
	})
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, conflictErr.Message, "same room")
}

func TestReschedule_ExcludesSelf(t *testing.T) {
	pid := uuid.New()
	appt := existingAppointment(pid, 9, 60)
	store := newFakeStore(appt)
	svc := NewService(Config{Store: store})

	// Shift by 15 minutes: still overlaps its own old window, which
	// must not count as a conflict.
	moved, err := svc.Reschedule(context.Background(), appt.ID, at(9, 15), "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, at(9, 15), moved.StartAt)
	assert.Equal(t, at(10, 15), moved.EndAt)
}

func TestReschedule_ConflictWithOtherAppointment(t *testing.T) {
	pid := uuid.New()
	appt := existingAppointment(pid, 9, 60)
	blocking := existingAppointment(pid, 11, 60)
	store := newFakeStore(appt, blocking)
	svc := NewService(Config{Store: store})

	_, err := svc.Reschedule(context.Background(), appt.ID, at(11, 30), "frontdesk")
	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestCancel_AuditsAndOffersSlot(t *testing.T) {
	pid := uuid.New()
	appt := existingAppointment(pid, 9, 60)
	store := newFakeStore(appt)
	recorder := audit.NewMemoryRecorder()
	offers := &fakeOffers{}
	wl := &fakeWaitlist{entries: []scheduling.WaitlistEntry{{
		ID:               uuid.New(),
		PatientID:        uuid.New(),
		RequestedService: "Botox",
		Priority:         scheduling.PriorityHigh,
	}}}

	now := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	svc := NewService(Config{
		Store:    store,
		Recorder: recorder,
		Waitlist: wl,
		Offers:   offers,
		Now:      func() time.Time { return now },
	})

	suggestion, err := svc.Cancel(context.Background(), appt.ID, "frontdesk", "patient request")
	require.NoError(t, err)
	require.NotNil(t, suggestion.TopMatch)

	got, err := store.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, got.Status)
	assert.Equal(t, now, got.CancelledAt)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventAppointmentCancelled, events[0].EventType)

	require.Len(t, offers.offered, 1)
	assert.Equal(t, appt.ID, offers.offered[0].ID)
}

func TestRelease_SkipsWaitlistOffer(t *testing.T) {
	pid := uuid.New()
	appt := existingAppointment(pid, 9, 60)
	store := newFakeStore(appt)
	recorder := audit.NewMemoryRecorder()
	offers := &fakeOffers{}
	wl := &fakeWaitlist{entries: []scheduling.WaitlistEntry{{
		ID:               uuid.New(),
		PatientID:        uuid.New(),
		RequestedService: "Botox",
		Priority:         scheduling.PriorityHigh,
	}}}
	svc := NewService(Config{Store: store, Recorder: recorder, Waitlist: wl, Offers: offers})

	err := svc.Release(context.Background(), appt.ID, "frontdesk", "group booking rolled back")
	require.NoError(t, err)

	got, err := store.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, got.Status)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventAppointmentCancelled, events[0].EventType)

	// The slot was never genuinely free, so nobody gets an offer.
	assert.Empty(t, offers.offered)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	pid := uuid.New()
	appt := existingAppointment(pid, 9, 60)
	appt.Status = scheduling.StatusCancelled
	store := newFakeStore(appt)
	svc := NewService(Config{Store: store})

	_, err := svc.Cancel(context.Background(), appt.ID, "frontdesk", "dup")
	assert.Error(t, err)
}

func TestBook_InvalidRequests(t *testing.T) {
	svc := NewService(Config{Store: newFakeStore()})

	_, err := svc.Book(context.Background(), BookRequest{DurationMins: 30, StartAt: at(9, 0)})
	assert.Error(t, err, "practitioner required")

	_, err = svc.Book(context.Background(), BookRequest{PractitionerID: uuid.New(), StartAt: at(9, 0)})
	assert.Error(t, err, "duration required")
}
