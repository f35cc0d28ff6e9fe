package attendance

import "time"

// Period is one of the two daily attendance sessions.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

// Status is the attendance state implied by a scan or assigned manually.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool { return p == PeriodMorning || p == PeriodAfternoon }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusLate || s == StatusAbsent
}

// Schedule holds the school's cut-off hours, local time. Scans before the late
// hour imply present, before the absent hour late, and after it absent.
type Schedule struct {
	MorningLateHour     int
	MorningAbsentHour   int
	AfternoonLateHour   int
	AfternoonAbsentHour int
}

// DefaultSchedule returns the standard school policy: morning 08:00/10:00,
// afternoon 14:00/15:00.
func DefaultSchedule() Schedule {
	return Schedule{
		MorningLateHour:     8,
		MorningAbsentHour:   10,
		AfternoonLateHour:   14,
		AfternoonAbsentHour: 15,
	}
}

// Classify maps a wall-clock instant to the active period and the status a
// scan at that instant implies. Pure function of t's local clock; callers
// convert to the school's time zone first.
func (s Schedule) Classify(t time.Time) (Period, Status) {
	hour := t.Hour()
	if hour < 12 {
		switch {
		case hour < s.MorningLateHour:
			return PeriodMorning, StatusPresent
		case hour < s.MorningAbsentHour:
			return PeriodMorning, StatusLate
		default:
			return PeriodMorning, StatusAbsent
		}
	}
	switch {
	case hour < s.AfternoonLateHour:
		return PeriodAfternoon, StatusPresent
	case hour < s.AfternoonAbsentHour:
		return PeriodAfternoon, StatusLate
	default:
		return PeriodAfternoon, StatusAbsent
	}
}
