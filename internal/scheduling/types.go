// Package scheduling defines the plain data records shared by the
// scheduling engine: practitioners, rooms, services, shifts, appointments,
// breaks, and waitlist entries. Records are read-only snapshots supplied
// by the caller; persistence is owned by the repositories that load them.
package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the contact snapshot returned by the external directory.
type Patient struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Practitioner is a bookable staff member.
type Practitioner struct {
	ID          uuid.UUID
	Name        string
	WorkingDays []time.Weekday
	// StaggerMins constrains online-booking start times to a fixed grid,
	// allowing overlapping bookings across rooms. Zero means the default
	// slot granularity applies.
	StaggerMins int
}

// Room is a treatment room.
type Room struct {
	ID       uuid.UUID
	Name     string
	Active   bool
	Capacity int
}

// Service is a bookable treatment.
type Service struct {
	ID           uuid.UUID
	Name         string
	DurationMins int
	PriceCents   int64
}

// Duration returns the treatment length.
func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMins) * time.Minute
}

// BookingOption tags how a shift window may be booked.
type BookingOption string

const (
	Bookable      BookingOption = "bookable"
	ContactToBook BookingOption = "contact-to-book"
	NotBookable   BookingOption = "not-bookable"
)

// Shift is a concrete working-hours window for a practitioner, either
// entered manually or materialized from a ShiftTemplate.
type Shift struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
	RoomID         uuid.UUID // uuid.Nil when unassigned
	BookingOption  BookingOption

	// Recurrence metadata for manually created series.
	SeriesID    uuid.UUID
	Repeat      string // "", "daily", "weekly", "biweekly"
	RepeatUntil time.Time
}

// Valid reports whether the shift spans a positive window.
func (s Shift) Valid() bool {
	return !s.StartAt.IsZero() && !s.EndAt.IsZero() && s.StartAt.Before(s.EndAt)
}

// Window returns the shift's half-open time window.
func (s Shift) Window() Interval {
	return Interval{Start: s.StartAt, End: s.EndAt}
}

// ShiftTemplate is a recurring schedule rule, not a concrete instance.
type ShiftTemplate struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Weekdays       []time.Weekday
	StartHour      int
	StartMinute    int
	EndHour        int
	EndMinute      int
	RoomID         uuid.UUID
	Active         bool
}

// AppliesTo reports whether the template covers the given weekday.
func (t ShiftTemplate) AppliesTo(day time.Weekday) bool {
	for _, d := range t.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusArrived   AppointmentStatus = "arrived"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusDeleted   AppointmentStatus = "deleted"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Appointment is a booked treatment. Cancelled and deleted appointments
// are kept as soft-deleted rows for audit history.
type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	PatientName    string
	PractitionerID uuid.UUID
	RoomID         uuid.UUID // uuid.Nil when no room is assigned
	ServiceName    string
	DurationMins   int
	StartAt        time.Time
	EndAt          time.Time
	Status         AppointmentStatus
	// ConflictOverridden marks an appointment that was booked while an
	// override session was active despite known conflicts.
	ConflictOverridden bool
	CancelledAt        time.Time
	CancelledBy        string
	CancellationReason string
}

// Active reports whether the appointment still occupies its window.
// Cancelled and deleted appointments never block new bookings.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled && a.Status != StatusDeleted
}

// Window returns the appointment's half-open time window.
func (a Appointment) Window() Interval {
	return Interval{Start: a.StartAt, End: a.EndAt}
}

// Break blocks appointment creation for a practitioner during its window.
type Break struct {
	ID                uuid.UUID
	PractitionerID    uuid.UUID
	Type              string // "lunch", "admin", "personal", ...
	StartAt           time.Time
	EndAt             time.Time
	RecurringWeekdays []time.Weekday // empty for one-off breaks
	// EmergencyBookable keeps the window open for emergency appointments.
	EmergencyBookable bool
}

// Recurring reports whether the break repeats weekly.
func (b Break) Recurring() bool {
	return len(b.RecurringWeekdays) > 0
}

// OccursOn reports whether a recurring break falls on the given weekday.
func (b Break) OccursOn(day time.Weekday) bool {
	for _, d := range b.RecurringWeekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Priority is a waitlist priority tier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight orders priority tiers; higher is more urgent.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// WaitlistEntry is a patient waiting for an opening.
type WaitlistEntry struct {
	ID               uuid.UUID
	PatientID        uuid.UUID
	PatientName      string
	RequestedService string
	DurationMins     int
	Priority         Priority
	// PreferredPractitionerID is uuid.Nil when the patient has no preference.
	PreferredPractitionerID uuid.UUID
	Notes                   string
	JoinedAt                time.Time
}

// Slot is a candidate bookable window for a service and practitioner.
type Slot struct {
	PractitionerID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
}

// Date returns the slot's calendar day at midnight in the slot's location.
func (s Slot) Date() time.Time {
	y, m, d := s.StartAt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.StartAt.Location())
}

// Block is a UI-facing coalescing of adjacent slots into one visual range.
// It carries no booking semantics of its own.
type Block struct {
	PractitionerID uuid.UUID
	StartAt        time.Time
	EndAt          time.Time
}
