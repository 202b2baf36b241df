// Package groups computes per-participant start times and tiered
// discount pricing for multi-person bookings. The computed schedule is
// handed, appointment by appointment, to the same conflict-checked
// booking path as single bookings.
package groups

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

// Mode selects how participant start times relate to each other.
type Mode string

const (
	// Simultaneous starts every participant at the base time. Assumes
	// distinct practitioners or rooms; conflict checking still applies
	// per participant at booking time.
	Simultaneous Mode = "simultaneous"
	// Staggered starts each participant after the previous one finishes,
	// plus a configurable gap.
	Staggered Mode = "staggered"
	// Custom passes caller-supplied start times through unchanged.
	Custom Mode = "custom"
)

// Participant is one member of a group booking.
type Participant struct {
	PatientID      uuid.UUID
	PatientName    string
	Service        scheduling.Service
	PractitionerID uuid.UUID
	// CustomStart is only consulted in Custom mode.
	CustomStart time.Time
	PaymentStatus string
}

// ScheduledParticipant is a participant with a computed treatment window.
type ScheduledParticipant struct {
	Participant
	StartAt time.Time
	EndAt   time.Time
}

// ComputeSchedule assigns start times to every participant. A single
// participant always schedules at baseStart regardless of mode; group
// semantics (two or more participants) are a validation boundary the
// caller enforces before treating the result as a group.
func ComputeSchedule(participants []Participant, baseStart time.Time, mode Mode, gap time.Duration) []ScheduledParticipant {
	if len(participants) == 0 {
		return nil
	}

	out := make([]ScheduledParticipant, 0, len(participants))
	switch mode {
	case Staggered:
		start := baseStart
		for _, p := range participants {
			out = append(out, ScheduledParticipant{
				Participant: p,
				StartAt:     start,
				EndAt:       start.Add(p.Service.Duration()),
			})
			start = start.Add(p.Service.Duration() + gap)
		}
	case Custom:
		for _, p := range participants {
			start := p.CustomStart
			if start.IsZero() {
				start = baseStart
			}
			out = append(out, ScheduledParticipant{
				Participant: p,
				StartAt:     start,
				EndAt:       start.Add(p.Service.Duration()),
			})
		}
	default: // Simultaneous
		for _, p := range participants {
			out = append(out, ScheduledParticipant{
				Participant: p,
				StartAt:     baseStart,
				EndAt:       baseStart.Add(p.Service.Duration()),
			})
		}
	}
	return out
}
