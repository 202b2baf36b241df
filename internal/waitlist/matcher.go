// Package waitlist ranks waitlisted patients against freed appointment
// slots and drives auto-fill offers after cancellations.
package waitlist

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

// Scoring weights. Service compatibility is the minimum bar: entries
// whose requested service has no relation to the freed slot's service
// are never suggested, whatever their other criteria.
const (
	scoreExactService   = 40
	scoreSimilarService = 25
	scorePractitioner   = 20
	scoreDurationFits   = 20
	scorePriorityHigh   = 30
	scorePriorityMedium = 20
	scorePriorityLow    = 10
)

// Match is one scored waitlist candidate for a freed slot.
type Match struct {
	Entry        scheduling.WaitlistEntry
	Score        int
	MatchReasons []string
}

// Suggestion is the ranked outcome of matching a cancelled appointment
// against the waitlist. TopMatch is nil when nothing clears the
// service-compatibility bar; that is a normal outcome, not an error.
type Suggestion struct {
	TopMatch   *Match
	AllMatches []Match
}

// SuggestAutoFill scores every waitlist entry against the cancelled
// appointment's slot and returns them ranked best first.
func SuggestAutoFill(cancelled scheduling.Appointment, entries []scheduling.WaitlistEntry) Suggestion {
	slotMinutes := int(cancelled.Window().Duration().Minutes())

	var matches []Match
	for _, entry := range entries {
		m, ok := scoreEntry(entry, cancelled, slotMinutes)
		if !ok {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		// Ties break by priority tier, then by who joined first.
		wi, wj := matches[i].Entry.Priority.Weight(), matches[j].Entry.Priority.Weight()
		if wi != wj {
			return wi > wj
		}
		return matches[i].Entry.JoinedAt.Before(matches[j].Entry.JoinedAt)
	})

	s := Suggestion{AllMatches: matches}
	if len(matches) > 0 {
		s.TopMatch = &matches[0]
	}
	return s
}

func scoreEntry(entry scheduling.WaitlistEntry, cancelled scheduling.Appointment, slotMinutes int) (Match, bool) {
	m := Match{Entry: entry}

	requested := strings.ToLower(strings.TrimSpace(entry.RequestedService))
	freed := strings.ToLower(strings.TrimSpace(cancelled.ServiceName))
	switch {
	case requested == "" || freed == "":
		return m, false
	case requested == freed:
		m.Score += scoreExactService
		m.MatchReasons = append(m.MatchReasons, "Requested service matches")
	case strings.Contains(requested, freed) || strings.Contains(freed, requested):
		m.Score += scoreSimilarService
		m.MatchReasons = append(m.MatchReasons, "Similar service")
	default:
		// Below the compatibility bar.
		return m, false
	}

	if entry.PreferredPractitionerID != uuid.Nil && entry.PreferredPractitionerID == cancelled.PractitionerID {
		m.Score += scorePractitioner
		m.MatchReasons = append(m.MatchReasons, "Preferred practitioner")
	}

	if entry.DurationMins > 0 && entry.DurationMins <= slotMinutes {
		m.Score += scoreDurationFits
		m.MatchReasons = append(m.MatchReasons, "Fits the freed window")
	}

	switch entry.Priority {
	case scheduling.PriorityHigh:
		m.Score += scorePriorityHigh
		m.MatchReasons = append(m.MatchReasons, "High priority")
	case scheduling.PriorityMedium:
		m.Score += scorePriorityMedium
	case scheduling.PriorityLow:
		m.Score += scorePriorityLow
	}

	return m, true
}
