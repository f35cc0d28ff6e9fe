package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"classtrack/internal/metrics"
	"classtrack/internal/notify"
	"classtrack/internal/queue"
	"classtrack/internal/roster"
)

var (
	// ErrUnknownStudent is returned when the scanned identifier does not
	// resolve against the roster. Surfaced as "Student Not Found".
	ErrUnknownStudent = errors.New("student not found")
	// ErrNotAuthenticated is returned when no operator identity accompanies a write.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotSchoolDay is returned for scans on weekends and holidays.
	ErrNotSchoolDay = errors.New("attendance does not apply on this day")
	// ErrInvalidPeriod is returned for manual writes naming an unknown period.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidStatus is returned for manual writes naming an unknown status.
	ErrInvalidStatus = errors.New("invalid status")
)

// Service coordinates attendance classification, recording and aggregation.
type Service struct {
	roster   *roster.Service
	repo     Repository
	schedule Schedule
	cal      *Calendar
	queue    queue.Queue
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a service. The queue may be nil when notification
// delivery is disabled.
func NewService(rosterSvc *roster.Service, repo Repository, schedule Schedule, cal *Calendar, q queue.Queue, logger *zap.Logger) *Service {
	return &Service{
		roster:   rosterSvc,
		repo:     repo,
		schedule: schedule,
		cal:      cal,
		queue:    q,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock swaps the time source. Tests use it to pin the wall clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Classify returns the active period and implied status for an instant,
// evaluated on the school-local clock.
func (s *Service) Classify(t time.Time) (Period, Status) {
	return s.schedule.Classify(t.In(s.cal.Location()))
}

// RecordScan processes a QR scan: classifies the current instant and writes
// the implied record for the resolved student.
func (s *Service) RecordScan(ctx context.Context, studentID, recordedBy string) (roster.Student, Outcome, error) {
	now := s.now()
	if !s.cal.IsSchoolDay(now) {
		return roster.Student{}, Outcome{}, ErrNotSchoolDay
	}
	period, status := s.Classify(now)
	return s.Record(ctx, studentID, period, status, now, recordedBy)
}

// Record writes the authoritative record for (student, day, period). An
// existing record for the key is overridden: status and scan time are
// replaced, last write wins. On a status change a guardian notification
// event is published; publish failures never fail the write.
func (s *Service) Record(ctx context.Context, studentID string, period Period, status Status, scanTime time.Time, recordedBy string) (roster.Student, Outcome, error) {
	if recordedBy == "" {
		return roster.Student{}, Outcome{}, ErrNotAuthenticated
	}
	if !period.Valid() {
		return roster.Student{}, Outcome{}, ErrInvalidPeriod
	}
	if !status.Valid() {
		return roster.Student{}, Outcome{}, ErrInvalidStatus
	}

	student, err := s.roster.Resolve(ctx, studentID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			metrics.ScansTotal.WithLabelValues("rejected").Inc()
			return roster.Student{}, Outcome{}, ErrUnknownStudent
		}
		return roster.Student{}, Outcome{}, fmt.Errorf("resolve student: %w", err)
	}

	outcome, err := s.repo.Upsert(ctx, Record{
		StudentID:  student.ID,
		Day:        s.cal.DateKey(scanTime),
		Period:     period,
		Status:     status,
		ScanTime:   scanTime,
		RecordedBy: recordedBy,
	})
	if err != nil {
		return roster.Student{}, Outcome{}, fmt.Errorf("persist attendance: %w", err)
	}

	if outcome.Created {
		metrics.ScansTotal.WithLabelValues("created").Inc()
	} else {
		metrics.ScansTotal.WithLabelValues("overridden").Inc()
	}

	if outcome.Changed() {
		s.publishChange(ctx, student, outcome.Record)
	}
	return student, outcome, nil
}

// Logs returns the day's records, optionally one period.
func (s *Service) Logs(ctx context.Context, day string, period Period) ([]Record, error) {
	return s.repo.ListByDay(ctx, day, period)
}

// DailyStats aggregates the day's records over the roster, default-absent for
// unmarked students. An empty section spans the whole roster.
func (s *Service) DailyStats(ctx context.Context, day string, period Period, section string) ([]SectionStats, error) {
	students, err := s.roster.List(ctx, section)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	records, err := s.repo.ListByDay(ctx, day, period)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return Aggregate(students, records, period), nil
}

// Today returns the current school-local calendar day.
func (s *Service) Today() string {
	return s.cal.DateKey(s.now())
}

func (s *Service) publishChange(ctx context.Context, student roster.Student, rec Record) {
	if s.queue == nil {
		return
	}
	body, err := json.Marshal(notify.Event{
		StudentID:     student.ID,
		StudentName:   student.Name,
		GuardianEmail: student.GuardianEmail,
		Section:       student.Section,
		Date:          rec.Day,
		Period:        string(rec.Period),
		Status:        string(rec.Status),
		ScanTime:      rec.ScanTime,
	})
	if err != nil {
		s.logger.Error("marshal notification event", zap.Error(err))
		return
	}
	if err := s.queue.Publish(ctx, queue.Message{Type: notify.EventType, Body: body}); err != nil {
		s.logger.Error("queue publish failed", zap.Error(err), zap.String("student", student.ID))
	}
}
