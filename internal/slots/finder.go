// Package slots enumerates bookable start times for a service and
// practitioner across a date range, and compresses the results into
// contiguous blocks for calendar display.
package slots

import (
	"sort"
	"time"

	"github.com/clearbrook/scheduler/internal/conflicts"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/internal/shifts"
)

// DefaultGranularityMins is the candidate grid used when a practitioner
// has no stagger interval configured.
const DefaultGranularityMins = 15

// Finder generates available slots from shift windows, filtering out
// candidates that collide with existing appointments or breaks.
type Finder struct {
	granularity time.Duration
}

// NewFinder creates a finder with the given default grid granularity in
// minutes. Non-positive values fall back to DefaultGranularityMins.
func NewFinder(granularityMins int) *Finder {
	if granularityMins <= 0 {
		granularityMins = DefaultGranularityMins
	}
	return &Finder{granularity: time.Duration(granularityMins) * time.Minute}
}

// FindAvailableSlots returns every bookable start time for the service
// and practitioner across the given dates. The whole result set is
// materialized per invocation; an empty slice is a normal outcome.
func (f *Finder) FindAvailableSlots(
	service scheduling.Service,
	practitioner scheduling.Practitioner,
	dates []time.Time,
	appointments []scheduling.Appointment,
	breaks []scheduling.Break,
	manualShifts []scheduling.Shift,
	templates []scheduling.ShiftTemplate,
) []scheduling.Slot {
	duration := service.Duration()
	if duration <= 0 {
		return nil
	}
	step := f.StepFor(practitioner)

	var found []scheduling.Slot
	for _, date := range dates {
		windows := shifts.EffectiveShifts(practitioner.ID, date, manualShifts, templates)
		for _, w := range windows {
			for start := w.StartAt; !start.Add(duration).After(w.EndAt); start = start.Add(step) {
				candidate := conflicts.Candidate{
					PractitionerID: practitioner.ID,
					StartAt:        start,
					EndAt:          start.Add(duration),
				}
				if len(conflicts.FindAppointmentConflicts(candidate, appointments)) > 0 {
					continue
				}
				if len(conflicts.FindBreakConflicts(candidate, breaks)) > 0 {
					continue
				}
				found = append(found, scheduling.Slot{
					PractitionerID: practitioner.ID,
					StartAt:        start,
					EndAt:          start.Add(duration),
				})
			}
		}
	}
	return found
}

// StepFor returns the candidate grid for a practitioner: the configured
// stagger interval when set, otherwise the finder's default granularity.
func (f *Finder) StepFor(p scheduling.Practitioner) time.Duration {
	if p.StaggerMins > 0 {
		return time.Duration(p.StaggerMins) * time.Minute
	}
	return f.granularity
}

// MergeIntoContinuousBlocks sorts slots by start time and merges
// adjacent or overlapping windows (gap at most maxGap) per practitioner
// into continuous blocks. The operation is idempotent and carries no
// booking semantics of its own.
func MergeIntoContinuousBlocks(found []scheduling.Slot, maxGap time.Duration) []scheduling.Block {
	if len(found) == 0 {
		return nil
	}

	sorted := make([]scheduling.Slot, len(found))
	copy(sorted, found)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].StartAt.Equal(sorted[j].StartAt) {
			return sorted[i].StartAt.Before(sorted[j].StartAt)
		}
		return sorted[i].PractitionerID.String() < sorted[j].PractitionerID.String()
	})

	var blocks []scheduling.Block
	open := make(map[string]int) // practitioner -> index of open block
	for _, s := range sorted {
		key := s.PractitionerID.String()
		if idx, ok := open[key]; ok {
			last := &blocks[idx]
			if !s.StartAt.After(last.EndAt.Add(maxGap)) {
				if s.EndAt.After(last.EndAt) {
					last.EndAt = s.EndAt
				}
				continue
			}
		}
		blocks = append(blocks, scheduling.Block{
			PractitionerID: s.PractitionerID,
			StartAt:        s.StartAt,
			EndAt:          s.EndAt,
		})
		open[key] = len(blocks) - 1
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartAt.Before(blocks[j].StartAt) })
	return blocks
}
