package shifts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/scheduler/internal/scheduling"
)

var (
	practitionerA = uuid.MustParse("9f1c0a96-9a4e-4f64-8c2b-111111111111")
	practitionerB = uuid.MustParse("9f1c0a96-9a4e-4f64-8c2b-222222222222")

	// monday is 2025-03-10.
	monday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func manualShift(p uuid.UUID, startHour, endHour int, opt scheduling.BookingOption) scheduling.Shift {
	return scheduling.Shift{
		ID:             uuid.New(),
		PractitionerID: p,
		StartAt:        scheduling.AtTime(monday, startHour, 0),
		EndAt:          scheduling.AtTime(monday, endHour, 0),
		BookingOption:  opt,
	}
}

func weeklyTemplate(p uuid.UUID, day time.Weekday, startHour, endHour int) scheduling.ShiftTemplate {
	return scheduling.ShiftTemplate{
		ID:             uuid.New(),
		PractitionerID: p,
		Weekdays:       []time.Weekday{day},
		StartHour:      startHour,
		EndHour:        endHour,
		Active:         true,
	}
}

func TestManualShiftsReplaceTemplates(t *testing.T) {
	manual := []scheduling.Shift{manualShift(practitionerA, 10, 14, scheduling.Bookable)}
	templates := []scheduling.ShiftTemplate{weeklyTemplate(practitionerA, time.Monday, 9, 17)}

	got := EffectiveShifts(practitionerA, monday, manual, templates)

	require.Len(t, got, 1)
	assert.Equal(t, manual[0].ID, got[0].ID)
	assert.Equal(t, scheduling.AtTime(monday, 10, 0), got[0].StartAt)
	assert.Equal(t, scheduling.AtTime(monday, 14, 0), got[0].EndAt)
}

func TestTemplatesUsedWhenNoManualShifts(t *testing.T) {
	templates := []scheduling.ShiftTemplate{
		weeklyTemplate(practitionerA, time.Monday, 9, 12),
		weeklyTemplate(practitionerA, time.Monday, 13, 17),
		weeklyTemplate(practitionerA, time.Tuesday, 9, 17), // wrong weekday
	}

	got := EffectiveShifts(practitionerA, monday, nil, templates)

	require.Len(t, got, 2)
	assert.Equal(t, scheduling.AtTime(monday, 9, 0), got[0].StartAt)
	assert.Equal(t, scheduling.AtTime(monday, 12, 0), got[0].EndAt)
	assert.Equal(t, scheduling.AtTime(monday, 13, 0), got[1].StartAt)
	assert.Equal(t, scheduling.AtTime(monday, 17, 0), got[1].EndAt)
}

func TestInvalidManualShiftsFallBackToTemplates(t *testing.T) {
	inverted := manualShift(practitionerA, 14, 10, scheduling.Bookable)
	notBookable := manualShift(practitionerA, 9, 17, scheduling.NotBookable)
	templates := []scheduling.ShiftTemplate{weeklyTemplate(practitionerA, time.Monday, 9, 17)}

	got := EffectiveShifts(practitionerA, monday, []scheduling.Shift{inverted, notBookable}, templates)

	require.Len(t, got, 1)
	assert.Equal(t, scheduling.AtTime(monday, 9, 0), got[0].StartAt)
}

func TestOtherPractitionersShiftsIgnored(t *testing.T) {
	manual := []scheduling.Shift{manualShift(practitionerB, 10, 14, scheduling.Bookable)}
	templates := []scheduling.ShiftTemplate{weeklyTemplate(practitionerB, time.Monday, 9, 17)}

	got := EffectiveShifts(practitionerA, monday, manual, templates)
	assert.Empty(t, got)
}

func TestShiftOnOtherDateIgnored(t *testing.T) {
	tuesdayShift := manualShift(practitionerA, 10, 14, scheduling.Bookable)
	tuesdayShift.StartAt = tuesdayShift.StartAt.AddDate(0, 0, 1)
	tuesdayShift.EndAt = tuesdayShift.EndAt.AddDate(0, 0, 1)

	got := EffectiveShifts(practitionerA, monday, []scheduling.Shift{tuesdayShift}, nil)
	assert.Empty(t, got)
}

func TestMalformedTemplateSkippedIndividually(t *testing.T) {
	missingTimes := weeklyTemplate(practitionerA, time.Monday, 0, 0)
	inverted := weeklyTemplate(practitionerA, time.Monday, 17, 9)
	good := weeklyTemplate(practitionerA, time.Monday, 9, 17)
	inactive := weeklyTemplate(practitionerA, time.Monday, 8, 16)
	inactive.Active = false

	got := EffectiveShifts(practitionerA, monday, nil, []scheduling.ShiftTemplate{missingTimes, inverted, good, inactive})

	require.Len(t, got, 1)
	assert.Equal(t, scheduling.AtTime(monday, 9, 0), got[0].StartAt)
	assert.Equal(t, scheduling.AtTime(monday, 17, 0), got[0].EndAt)
}

func TestMaterializeIsDeterministic(t *testing.T) {
	tpl := weeklyTemplate(practitionerA, time.Monday, 9, 17)
	first := Materialize(tpl, monday)
	second := Materialize(tpl, monday)
	assert.Equal(t, first.ID, second.ID)

	other := Materialize(tpl, monday.AddDate(0, 0, 7))
	assert.NotEqual(t, first.ID, other.ID)
}

func TestEmptySourcesMeanNotWorking(t *testing.T) {
	got := EffectiveShifts(practitionerA, monday, nil, nil)
	assert.Empty(t, got)
}
