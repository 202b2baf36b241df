package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/internal/notify"
	"github.com/clearbrook/scheduler/internal/scheduling"
	"github.com/clearbrook/scheduler/pkg/logging"
)

// PatientDirectory resolves patient contact details. Backed by the
// practice-management system in production, a fake in tests.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (scheduling.Patient, error)
}

// OfferService emails the best-matched waitlisted patient when a
// cancellation frees a slot.
type OfferService struct {
	directory PatientDirectory
	sender    notify.EmailSender
	recorder  audit.Recorder
	logger    *logging.Logger

	// Now allows injecting a fake clock in tests.
	Now func() time.Time
}

// NewOfferService creates an offer service. Directory and sender are
// required; recorder and logger fall back to no-op defaults.
func NewOfferService(directory PatientDirectory, sender notify.EmailSender, recorder audit.Recorder, logger *logging.Logger) *OfferService {
	if directory == nil {
		panic("waitlist: patient directory required")
	}
	if sender == nil {
		panic("waitlist: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OfferService{
		directory: directory,
		sender:    sender,
		recorder:  recorder,
		logger:    logger,
		Now:       time.Now,
	}
}

// OfferFreedSlot ranks the waitlist against a cancelled appointment and
// emails the top match, if any. The suggestion is returned either way so
// callers can surface the full ranking.
func (s *OfferService) OfferFreedSlot(ctx context.Context, cancelled scheduling.Appointment, entries []scheduling.WaitlistEntry) (Suggestion, error) {
	suggestion := SuggestAutoFill(cancelled, entries)
	if suggestion.TopMatch == nil {
		s.logger.Info("no waitlist match for freed slot",
			"appointment_id", cancelled.ID,
			"service", cancelled.ServiceName,
			"candidates", len(entries))
		return suggestion, nil
	}

	top := suggestion.TopMatch
	patient, err := s.directory.GetPatient(ctx, top.Entry.PatientID)
	if err != nil {
		return suggestion, fmt.Errorf("waitlist: lookup patient %s: %w", top.Entry.PatientID, err)
	}
	if patient.Email == "" {
		s.logger.Warn("top waitlist match has no email on file",
			"entry_id", top.Entry.ID, "patient_id", patient.ID)
		return suggestion, nil
	}

	msg := offerEmail(patient, top.Entry, cancelled)
	if err := s.sender.Send(ctx, msg); err != nil {
		return suggestion, fmt.Errorf("waitlist: send offer for entry %s: %w", top.Entry.ID, err)
	}

	s.recordOffer(ctx, cancelled, top)

	s.logger.Info("waitlist offer sent",
		"entry_id", top.Entry.ID,
		"patient_id", patient.ID,
		"appointment_id", cancelled.ID,
		"score", top.Score)
	return suggestion, nil
}

func (s *OfferService) recordOffer(ctx context.Context, cancelled scheduling.Appointment, top *Match) {
	if s.recorder == nil {
		return
	}
	details, _ := json.Marshal(audit.Details{
		WaitlistEntryID: top.Entry.ID.String(),
		MatchReasons:    strings.Join(top.MatchReasons, "; "),
		Summary:         fmt.Sprintf("offered freed %s slot to %s", cancelled.ServiceName, top.Entry.PatientName),
	})
	event := audit.Event{
		EventType:     audit.EventWaitlistOfferSent,
		Actor:         "system",
		AppointmentID: cancelled.ID.String(),
		Details:       details,
		CreatedAt:     s.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		// Offers still count even when the audit write fails.
		s.logger.Error("failed to record waitlist offer", "error", err, "entry_id", top.Entry.ID)
	}
}

func offerEmail(patient scheduling.Patient, entry scheduling.WaitlistEntry, cancelled scheduling.Appointment) notify.EmailMessage {
	start := cancelled.StartAt.Format("Monday, January 2 at 3:04 PM")
	body := fmt.Sprintf(
		"Hi %s,\n\nAn appointment for %s just opened up on %s. "+
			"You're next on our waitlist for this service. Reply to this email "+
			"or call the front desk to claim the slot before it's offered to the next patient.\n\n"+
			"Clearbrook Clinic",
		patient.Name, cancelled.ServiceName, start,
	)
	return notify.EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: fmt.Sprintf("An opening for %s on %s", cancelled.ServiceName, cancelled.StartAt.Format("Jan 2")),
		Body:    body,
	}
}
