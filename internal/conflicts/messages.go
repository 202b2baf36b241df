package conflicts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

const clockFormat = "3:04 PM"

// ConflictMessage renders a human-readable summary of appointment
// conflicts for user feedback. It does not mutate state.
func ConflictMessage(found []scheduling.Appointment, roomID uuid.UUID) string {
	if len(found) == 0 {
		return ""
	}
	parts := make([]string, 0, len(found))
	for _, appt := range found {
		who := appt.PatientName
		if who == "" {
			who = "another patient"
		}
		detail := fmt.Sprintf("%s (%s) %s-%s",
			who,
			appt.ServiceName,
			appt.StartAt.Format(clockFormat),
			appt.EndAt.Format(clockFormat),
		)
		if roomID != uuid.Nil && appt.RoomID == roomID {
			detail += " in the same room"
		}
		parts = append(parts, detail)
	}
	return fmt.Sprintf("Time conflict with %s", strings.Join(parts, "; "))
}

// BreakConflictMessage renders a summary of break conflicts.
func BreakConflictMessage(found []scheduling.Break) string {
	if len(found) == 0 {
		return ""
	}
	parts := make([]string, 0, len(found))
	for _, br := range found {
		kind := br.Type
		if kind == "" {
			kind = "break"
		}
		parts = append(parts, fmt.Sprintf("%s %s-%s",
			kind,
			br.StartAt.Format(clockFormat),
			br.EndAt.Format(clockFormat),
		))
	}
	return fmt.Sprintf("Practitioner is unavailable during %s", strings.Join(parts, "; "))
}
