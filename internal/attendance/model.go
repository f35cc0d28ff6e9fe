package attendance

import "time"

// Record is the authoritative attendance entry for one (student, day, period)
// key. A later write for the same key supersedes the earlier one; records are
// never deleted in normal operation.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Day        string    `json:"date"` // YYYY-MM-DD, school-local
	Period     Period    `json:"period"`
	Status     Status    `json:"status"`
	ScanTime   time.Time `json:"scan_time"`
	RecordedBy string    `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Outcome describes what a write did: a fresh record, or an override of the
// previous status for the same key.
type Outcome struct {
	Record         Record `json:"record"`
	Created        bool   `json:"created"`
	PreviousStatus Status `json:"previous_status,omitempty"`
}

// Changed reports whether the write altered the effective status. Re-scans
// carrying the same status update the scan time but change nothing a guardian
// needs to hear about.
func (o Outcome) Changed() bool {
	return o.Created || o.PreviousStatus != o.Record.Status
}
