package roster

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidStudent is returned when a new student is missing required fields.
var ErrInvalidStudent = errors.New("lrn and name are required")

// Service coordinates roster reads and writes.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enroll normalizes and persists a new student.
func (s *Service) Enroll(ctx context.Context, raw RawStudent) (Student, error) {
	st := raw.Normalize()
	if st.LRN == "" || st.Name == "" {
		return Student{}, ErrInvalidStudent
	}
	return s.repo.Create(ctx, st)
}

// Resolve maps an identifier scanned from a QR payload to a roster entry.
// Codes generated by current app versions carry the LRN; older ones may carry
// the surrogate ID, so both are tried.
func (s *Service) Resolve(ctx context.Context, id string) (Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Student{}, ErrNotFound
	}
	if st, err := s.repo.GetByLRN(ctx, id); err == nil {
		return st, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Student{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns a student by surrogate key.
func (s *Service) Get(ctx context.Context, id string) (Student, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns students, optionally restricted to a section.
func (s *Service) List(ctx context.Context, section string) ([]Student, error) {
	return s.repo.List(ctx, strings.TrimSpace(section))
}

// Sections returns the distinct sections on the roster.
func (s *Service) Sections(ctx context.Context) ([]string, error) {
	return s.repo.Sections(ctx)
}

// Update rewrites a student's mutable fields.
func (s *Service) Update(ctx context.Context, st Student) (Student, error) {
	if st.Name == "" {
		return Student{}, ErrInvalidStudent
	}
	return s.repo.Update(ctx, st)
}

// Remove deletes a student from the roster.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
