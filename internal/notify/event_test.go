package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardianEmailFor(t *testing.T) {
	ev := Event{
		StudentID:     "s1",
		StudentName:   "Ana Santos",
		GuardianEmail: "mom@example.com",
		Section:       "Grade 4A",
		Date:          "2026-03-02",
		Period:        "morning",
		Status:        "late",
		ScanTime:      time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	email, ok := GuardianEmailFor(ev)
	require.True(t, ok)
	assert.Equal(t, "mom@example.com", email.ToAddress)
	assert.Contains(t, email.Subject, "Ana Santos")
	assert.Contains(t, email.Subject, "late")
	assert.Contains(t, email.Body, "Grade 4A")
	assert.Contains(t, email.Body, "2026-03-02")
	assert.Contains(t, email.Body, "9:30 AM")
}

func TestGuardianEmailForNoAddress(t *testing.T) {
	_, ok := GuardianEmailFor(Event{StudentName: "Ana Santos"})
	assert.False(t, ok)
}

func TestSummaryEmailFor(t *testing.T) {
	email := SummaryEmailFor("principal@school.local", "2026-03-02", []SummaryLine{
		{Section: "Grade 4A", Period: "morning", Present: 18, Late: 2, Absent: 1},
		{Section: "Grade 4B", Period: "morning", Present: 20, Absent: 3},
	})

	assert.Equal(t, "principal@school.local", email.ToAddress)
	assert.Contains(t, email.Subject, "2026-03-02")
	assert.Contains(t, email.Body, "Grade 4A")
	assert.Contains(t, email.Body, "present: 18")
	assert.Contains(t, email.Body, "absent: 3")
}
