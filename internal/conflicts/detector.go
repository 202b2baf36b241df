// Package conflicts detects time and resource collisions between a
// candidate booking window and existing appointments or breaks. All
// checks are pure: callers pass snapshots in and receive the colliding
// records back.
package conflicts

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

// Candidate is a proposed appointment or break window to validate.
type Candidate struct {
	// AppointmentID excludes the record itself when rescheduling.
	AppointmentID  uuid.UUID
	PractitionerID uuid.UUID
	RoomID         uuid.UUID // uuid.Nil when no room is requested
	StartAt        time.Time
	EndAt          time.Time
}

// Window returns the candidate's half-open time window.
func (c Candidate) Window() scheduling.Interval {
	return scheduling.Interval{Start: c.StartAt, End: c.EndAt}
}

// FindAppointmentConflicts returns existing appointments that collide
// with the candidate: same practitioner or same non-empty room, with
// overlapping half-open windows. Cancelled and deleted appointments
// never conflict.
func FindAppointmentConflicts(candidate Candidate, existing []scheduling.Appointment) []scheduling.Appointment {
	window := candidate.Window()
	var found []scheduling.Appointment
	for _, appt := range existing {
		if appt.ID == candidate.AppointmentID {
			continue
		}
		if !appt.Active() {
			continue
		}
		samePractitioner := appt.PractitionerID == candidate.PractitionerID
		sameRoom := candidate.RoomID != uuid.Nil && appt.RoomID == candidate.RoomID
		if !samePractitioner && !sameRoom {
			continue
		}
		if window.Overlaps(appt.Window()) {
			found = append(found, appt)
		}
	}
	return found
}

// FindBreakConflicts returns breaks for the candidate's practitioner
// whose windows collide with the candidate. Recurring breaks match when
// their weekday set includes the candidate's date; their time of day is
// projected onto that date before the overlap test.
func FindBreakConflicts(candidate Candidate, breaks []scheduling.Break) []scheduling.Break {
	window := candidate.Window()
	var found []scheduling.Break
	for _, br := range breaks {
		if br.PractitionerID != candidate.PractitionerID {
			continue
		}
		if window.Overlaps(breakWindowOn(br, candidate.StartAt)) {
			found = append(found, br)
		}
	}
	return found
}

// breakWindowOn resolves the window a break occupies relative to the
// candidate date. One-off breaks keep their concrete window; recurring
// breaks project their time of day onto the candidate's date when the
// weekday matches, and yield a zero window otherwise.
func breakWindowOn(br scheduling.Break, date time.Time) scheduling.Interval {
	if !br.Recurring() {
		return scheduling.Interval{Start: br.StartAt, End: br.EndAt}
	}
	if !br.OccursOn(date.Weekday()) {
		return scheduling.Interval{}
	}
	start := scheduling.AtTime(date, br.StartAt.Hour(), br.StartAt.Minute())
	end := scheduling.AtTime(date, br.EndAt.Hour(), br.EndAt.Minute())
	return scheduling.Interval{Start: start, End: end}
}
