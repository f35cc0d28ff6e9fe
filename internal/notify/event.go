package notify

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the queue message type carrying a record-change event.
const EventType = "attendance-change"

// Event is emitted when an attendance write changes a student's effective
// status. It carries everything the worker needs to message a guardian.
type Event struct {
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	GuardianEmail string    `json:"guardian_email"`
	Section       string    `json:"section"`
	Date          string    `json:"date"`
	Period        string    `json:"period"`
	Status        string    `json:"status"`
	ScanTime      time.Time `json:"scan_time"`
}

// GuardianEmailFor composes the notification for a record change. Empty if the
// student has no guardian address on file.
func GuardianEmailFor(ev Event) (Email, bool) {
	if ev.GuardianEmail == "" {
		return Email{}, false
	}
	subject := fmt.Sprintf("Attendance update: %s marked %s (%s)", ev.StudentName, ev.Status, ev.Period)
	body := fmt.Sprintf(
		"Good day,\n\n%s (%s) was marked %s for the %s period on %s at %s.\n\nThis is an automated message from the school attendance system.",
		ev.StudentName, ev.Section, ev.Status, ev.Period, ev.Date, ev.ScanTime.Format("3:04 PM"),
	)
	return Email{
		ToAddress: ev.GuardianEmail,
		ToName:    ev.StudentName + " Guardian",
		Subject:   subject,
		Body:      body,
	}, true
}

// SummaryLine is one section's tallies in the end-of-day summary email.
type SummaryLine struct {
	Section string
	Period  string
	Present int
	Late    int
	Absent  int
}

// SummaryEmailFor composes the end-of-day stats email for one recipient.
func SummaryEmailFor(recipient, date string, lines []SummaryLine) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance summary for %s\n\n", date)
	for _, ln := range lines {
		fmt.Fprintf(&b, "%-12s %-10s present: %d  late: %d  absent: %d\n",
			ln.Section, ln.Period, ln.Present, ln.Late, ln.Absent)
	}
	return Email{
		ToAddress: recipient,
		Subject:   "Daily attendance summary for " + date,
		Body:      b.String(),
	}
}
