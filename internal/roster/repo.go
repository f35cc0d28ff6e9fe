package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no student matches the given identifier.
	ErrNotFound = errors.New("student not found")
	// ErrLRNExists is returned when creating a student with an LRN already on the roster.
	ErrLRNExists = errors.New("a student with this LRN already exists")
)

// Repository is the roster persistence contract.
type Repository interface {
	Create(ctx context.Context, st Student) (Student, error)
	GetByID(ctx context.Context, id string) (Student, error)
	GetByLRN(ctx context.Context, lrn string) (Student, error)
	List(ctx context.Context, section string) ([]Student, error)
	Sections(ctx context.Context) ([]string, error)
	Update(ctx context.Context, st Student) (Student, error)
	Delete(ctx context.Context, id string) error
}

// MySQLRepository persists students in MySQL.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository creates a roster repo.
func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

const studentCols = `id, lrn, name, section, grade_level, guardian_email, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.LRN, &st.Name, &st.Section, &st.GradeLevel, &st.GuardianEmail, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// Create inserts a new student.
func (r *MySQLRepository) Create(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (`+studentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.LRN, st.Name, st.Section, st.GradeLevel, st.GuardianEmail, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 { // duplicate key
			return Student{}, ErrLRNExists
		}
		return Student{}, fmt.Errorf("create student: %w", err)
	}
	return st, nil
}

// GetByID returns a student by surrogate key.
func (r *MySQLRepository) GetByID(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

// GetByLRN returns a student by learner reference number.
func (r *MySQLRepository) GetByLRN(ctx context.Context, lrn string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE lrn = ?`, lrn)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

// List returns students, optionally filtered by section, ordered by name.
func (r *MySQLRepository) List(ctx context.Context, section string) ([]Student, error) {
	query := `SELECT ` + studentCols + ` FROM students`
	args := []any{}
	if section != "" {
		query += ` WHERE section = ?`
		args = append(args, section)
	}
	query += ` ORDER BY section, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Sections returns the distinct sections present on the roster.
func (r *MySQLRepository) Sections(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT section FROM students WHERE section <> '' ORDER BY section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// Update rewrites the mutable student fields.
func (r *MySQLRepository) Update(ctx context.Context, st Student) (Student, error) {
	// Existence check up front: RowsAffected is 0 for no-op updates in MySQL,
	// so it cannot distinguish "missing" from "unchanged".
	if _, err := r.GetByID(ctx, st.ID); err != nil {
		return Student{}, err
	}

	st.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = ?, section = ?, grade_level = ?, guardian_email = ?, updated_at = ?
		WHERE id = ?
	`, st.Name, st.Section, st.GradeLevel, st.GuardianEmail, st.UpdatedAt, st.ID)
	if err != nil {
		return Student{}, fmt.Errorf("update student: %w", err)
	}
	return r.GetByID(ctx, st.ID)
}

// Delete removes a student from the roster.
func (r *MySQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
