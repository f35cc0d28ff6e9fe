package attendance

import (
	"fmt"
	"time"
)

// dateLayout is the calendar-day key used across storage and aggregation.
const dateLayout = "2006-01-02"

// Calendar decides which days count as school days: weekdays that are not on
// the static holiday list.
type Calendar struct {
	loc      *time.Location
	holidays map[string]struct{}
}

// NewCalendar builds a calendar for the given location. Holidays are
// YYYY-MM-DD strings; a malformed entry is a config error, not a skipped day.
func NewCalendar(loc *time.Location, holidays []string) (*Calendar, error) {
	if loc == nil {
		loc = time.Local
	}
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		if _, err := time.ParseInLocation(dateLayout, h, loc); err != nil {
			return nil, fmt.Errorf("calendar: bad holiday date %q: %w", h, err)
		}
		set[h] = struct{}{}
	}
	return &Calendar{loc: loc, holidays: set}, nil
}

// Location returns the school-local time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// DateKey formats t as the school-local calendar day.
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format(dateLayout)
}

// IsSchoolDay reports whether attendance applies on the day containing t.
func (c *Calendar) IsSchoolDay(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[local.Format(dateLayout)]
	return !holiday
}
