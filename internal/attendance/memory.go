package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps attendance records in a mutex-guarded map, keyed by
// (student, day, period). Used in tests and database-less dev runs.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

func key(studentID, day string, period Period) string {
	return studentID + "|" + day + "|" + string(period)
}

func (r *MemoryRepository) Upsert(_ context.Context, rec Record) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	k := key(rec.StudentID, rec.Day, rec.Period)
	prev, exists := r.records[k]
	if !exists {
		rec.ID = uuid.NewString()
		rec.CreatedAt, rec.UpdatedAt = now, now
		r.records[k] = rec
		return Outcome{Record: rec, Created: true}, nil
	}

	rec.ID = prev.ID
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = now
	r.records[k] = rec
	return Outcome{Record: rec, PreviousStatus: prev.Status}, nil
}

func (r *MemoryRepository) Get(_ context.Context, studentID, day string, period Period) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[key(studentID, day, period)]; ok {
		return rec, nil
	}
	return Record{}, ErrRecordNotFound
}

func (r *MemoryRepository) ListByDay(_ context.Context, day string, period Period) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Record
	for _, rec := range r.records {
		if rec.Day == day && (period == "" || rec.Period == period) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScanTime.Before(out[j].ScanTime) })
	return out, nil
}
