// Package shifts resolves a practitioner's effective working hours for a
// date from two sources of truth: manually entered shifts and recurring
// shift templates. Valid manual shifts for a date completely replace any
// template-derived shifts for that date.
package shifts

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

// EffectiveShifts computes the working-hour windows for a practitioner on
// a calendar date. Manual shifts that are valid and bookable win outright;
// templates are only consulted when no usable manual shift exists.
// An empty result means the practitioner is not working that day.
func EffectiveShifts(practitionerID uuid.UUID, date time.Time, manual []scheduling.Shift, templates []scheduling.ShiftTemplate) []scheduling.Shift {
	var usable []scheduling.Shift
	for _, s := range manual {
		if s.PractitionerID != practitionerID {
			continue
		}
		if !scheduling.SameDay(date, s.StartAt) {
			continue
		}
		if !s.Valid() || s.BookingOption == scheduling.NotBookable {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) > 0 {
		return usable
	}

	day := date.Weekday()
	var generated []scheduling.Shift
	for _, t := range templates {
		if t.PractitionerID != practitionerID || !t.Active || !t.AppliesTo(day) {
			continue
		}
		s := Materialize(t, date)
		// Malformed templates (missing or inverted times) are skipped
		// individually so one bad rule does not suppress its siblings.
		if !s.Valid() {
			continue
		}
		generated = append(generated, s)
	}
	return generated
}

// Materialize expands a recurring template into a concrete shift on the
// given date. The shift ID is derived from the template and date so the
// same rule materializes to the same ID every time.
func Materialize(t scheduling.ShiftTemplate, date time.Time) scheduling.Shift {
	return scheduling.Shift{
		ID:             uuid.NewSHA1(t.ID, []byte(date.Format(time.DateOnly))),
		PractitionerID: t.PractitionerID,
		StartAt:        scheduling.AtTime(date, t.StartHour, t.StartMinute),
		EndAt:          scheduling.AtTime(date, t.EndHour, t.EndMinute),
		RoomID:         t.RoomID,
		BookingOption:  scheduling.Bookable,
		Repeat:         "weekly",
	}
}
