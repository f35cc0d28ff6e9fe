package roster

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory roster, used in tests and
// when running without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	students map[string]Student // keyed by ID
}

// NewMemoryRepository creates an empty in-memory roster.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{students: make(map[string]Student)}
}

func (r *MemoryRepository) Create(_ context.Context, st Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.students {
		if existing.LRN == st.LRN {
			return Student{}, ErrLRNExists
		}
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	r.students[st.ID] = st
	return st, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if st, ok := r.students[id]; ok {
		return st, nil
	}
	return Student{}, ErrNotFound
}

func (r *MemoryRepository) GetByLRN(_ context.Context, lrn string) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if lrn != "" {
		for _, st := range r.students {
			if st.LRN == lrn {
				return st, nil
			}
		}
	}
	return Student{}, ErrNotFound
}

func (r *MemoryRepository) List(_ context.Context, section string) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Student
	for _, st := range r.students {
		if section == "" || st.Section == section {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section < out[j].Section
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepository) Sections(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var sections []string
	for _, st := range r.students {
		if st.Section != "" && !seen[st.Section] {
			seen[st.Section] = true
			sections = append(sections, st.Section)
		}
	}
	sort.Strings(sections)
	return sections, nil
}

func (r *MemoryRepository) Update(_ context.Context, st Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.students[st.ID]
	if !ok {
		return Student{}, ErrNotFound
	}
	existing.Name = st.Name
	existing.Section = st.Section
	existing.GradeLevel = st.GradeLevel
	existing.GuardianEmail = st.GuardianEmail
	existing.UpdatedAt = time.Now().UTC()
	r.students[st.ID] = existing
	return existing, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[id]; !ok {
		return ErrNotFound
	}
	delete(r.students, id)
	return nil
}
