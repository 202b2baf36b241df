package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/scheduler/internal/booking"
	"github.com/clearbrook/scheduler/internal/scheduling"
)

func groupPayload(count int) map[string]any {
	participants := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		participants = append(participants, map[string]any{
			"patient_name":    "Guest",
			"practitioner_id": uuid.NewString(),
			"service_name":    "Facial",
			"duration_mins":   45,
			"price_cents":     20000,
		})
	}
	return map[string]any{
		"mode":         "staggered",
		"base_start":   time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC),
		"gap_mins":     5,
		"participants": participants,
	}
}

func TestGroupsQuote_AppliesDiscountTiers(t *testing.T) {
	h := NewGroupsHandler(GroupsConfig{Bookings: &fakeBookingService{}})

	rec := postJSON(t, h.Quote, "/group-bookings/quote", groupPayload(3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp groupBookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(60000), resp.Pricing.OriginalCents)
	assert.Equal(t, 10, resp.Pricing.DiscountPercent)
	assert.Equal(t, int64(54000), resp.Pricing.TotalCents)
	require.Len(t, resp.Participants, 3)

	// Staggered: each participant starts after the previous finishes
	// plus the gap.
	first := resp.Participants[0]
	second := resp.Participants[1]
	assert.Equal(t, first.EndAt.Add(5*time.Minute), second.StartAt)
}

func TestGroupsQuote_RejectsSingleParticipant(t *testing.T) {
	h := NewGroupsHandler(GroupsConfig{Bookings: &fakeBookingService{}})

	rec := postJSON(t, h.Quote, "/group-bookings/quote", groupPayload(1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupsBook_CreatesAllParticipants(t *testing.T) {
	svc := &fakeBookingService{}
	h := NewGroupsHandler(GroupsConfig{Bookings: svc})

	rec := postJSON(t, h.Book, "/group-bookings", groupPayload(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp groupBookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Participants, 2)
	assert.NotEmpty(t, resp.Participants[0].AppointmentID)
	assert.Equal(t, 5, resp.Pricing.DiscountPercent)
	assert.Len(t, svc.booked, 2)
}

func TestGroupsBook_ConflictRejectsWholeGroup(t *testing.T) {
	svc := &fakeBookingService{bookErr: &booking.ConflictError{
		Appointments: []scheduling.Appointment{{ID: uuid.New()}},
		Message:      "Time conflict with another patient",
	}}
	h := NewGroupsHandler(GroupsConfig{Bookings: svc})

	rec := postJSON(t, h.Book, "/group-bookings", groupPayload(2))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, svc.booked)
}

func TestGroupsBook_RollbackSkipsWaitlistOffers(t *testing.T) {
	svc := &fakeBookingService{
		bookErr: &booking.ConflictError{
			Appointments: []scheduling.Appointment{{ID: uuid.New()}},
			Message:      "Time conflict with another patient",
		},
		failAfter: 1,
	}
	h := NewGroupsHandler(GroupsConfig{Bookings: svc})

	rec := postJSON(t, h.Book, "/group-bookings", groupPayload(3))
	require.Equal(t, http.StatusConflict, rec.Code)

	// The first participant was booked before the second conflicted;
	// it is released without ever reaching the waitlist offer path.
	require.Len(t, svc.booked, 1)
	assert.Len(t, svc.released, 1)
	assert.Empty(t, svc.cancelled)
}
