package attendance

import (
	"sort"

	"classtrack/internal/roster"
)

// Tally is the per-status head count for one section and period.
type Tally struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// SectionStats holds the tallies of one section, keyed by period.
type SectionStats struct {
	Section string           `json:"section"`
	Periods map[Period]Tally `json:"periods"`
}

// Aggregate folds the day's records into per-section, per-period tallies.
// Every rostered student counts exactly once per period: with a matching
// record its status applies, without one the student tallies as absent.
// An empty period aggregates both sessions; records outside the requested
// period are ignored. Output is sorted by section name.
func Aggregate(students []roster.Student, records []Record, period Period) []SectionStats {
	periods := []Period{PeriodMorning, PeriodAfternoon}
	if period != "" {
		periods = []Period{period}
	}

	// (studentID, period) -> status
	byKey := make(map[string]Status, len(records))
	for _, rec := range records {
		byKey[rec.StudentID+"|"+string(rec.Period)] = rec.Status
	}

	bySection := make(map[string]*SectionStats)
	for _, st := range students {
		sec, ok := bySection[st.Section]
		if !ok {
			sec = &SectionStats{Section: st.Section, Periods: make(map[Period]Tally)}
			bySection[st.Section] = sec
		}
		for _, p := range periods {
			tally := sec.Periods[p]
			status, ok := byKey[st.ID+"|"+string(p)]
			if !ok {
				status = StatusAbsent // unmarked counts as absent
			}
			switch status {
			case StatusPresent:
				tally.Present++
			case StatusLate:
				tally.Late++
			default:
				tally.Absent++
			}
			sec.Periods[p] = tally
		}
	}

	out := make([]SectionStats, 0, len(bySection))
	for _, sec := range bySection {
		out = append(out, *sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out
}
