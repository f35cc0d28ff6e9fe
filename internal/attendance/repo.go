package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when no record exists for a key.
var ErrRecordNotFound = errors.New("attendance record not found")

// Repository is the attendance persistence contract. Upsert must be atomic
// per key: the write that persists last determines the authoritative status.
type Repository interface {
	Upsert(ctx context.Context, rec Record) (Outcome, error)
	Get(ctx context.Context, studentID, day string, period Period) (Record, error)
	ListByDay(ctx context.Context, day string, period Period) ([]Record, error)
}

// MySQLRepository persists attendance records in MySQL.
type MySQLRepository struct {
	db *sql.DB
}

// NewMySQLRepository creates a repo.
func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

const recordCols = `id, student_id, day, period, status, scan_time, recorded_by, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.Day, &rec.Period, &rec.Status,
		&rec.ScanTime, &rec.RecordedBy, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// Upsert writes the authoritative record for (student, day, period). The
// insert is attempted first, without a preceding locked read: a SELECT ... FOR
// UPDATE on a missing row takes a gap lock, and two first-writes for the same
// key would then deadlock on their inserts. With the optimistic insert the
// first writer creates the row and any racer hits the unique key, falling
// through to the override path where a row lock serializes writes in persist
// order (last write wins).
func (r *MySQLRepository) Upsert(ctx context.Context, rec Record) (Outcome, error) {
	now := time.Now().UTC()
	ins := rec
	ins.ID = uuid.NewString()
	ins.CreatedAt, ins.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (`+recordCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ins.ID, ins.StudentID, ins.Day, ins.Period, ins.Status, ins.ScanTime, ins.RecordedBy, ins.CreatedAt, ins.UpdatedAt)
	if err == nil {
		return Outcome{Record: ins, Created: true}, nil
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) || myErr.Number != 1062 { // 1062: duplicate key
		return Outcome{}, fmt.Errorf("insert attendance: %w", err)
	}
	// The row exists, override it.
	return r.override(ctx, rec)
}

// override replaces the existing record for rec's key. The FOR UPDATE read
// locks the row (it exists by now), so concurrent overrides apply strictly in
// commit order.
func (r *MySQLRepository) override(ctx context.Context, rec Record) (Outcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("override attendance: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance
		WHERE student_id = ? AND day = ? AND period = ?
		FOR UPDATE
	`, rec.StudentID, rec.Day, rec.Period)
	prev, err := scanRecord(row)
	if err != nil {
		return Outcome{}, fmt.Errorf("override attendance: %w", err)
	}

	rec.ID = prev.ID
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE attendance
		SET status = ?, scan_time = ?, recorded_by = ?, updated_at = ?
		WHERE id = ?
	`, rec.Status, rec.ScanTime, rec.RecordedBy, rec.UpdatedAt, rec.ID); err != nil {
		return Outcome{}, fmt.Errorf("override attendance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Outcome{}, fmt.Errorf("override attendance: %w", err)
	}
	return Outcome{Record: rec, PreviousStatus: prev.Status}, nil
}

// Get returns the authoritative record for a key.
func (r *MySQLRepository) Get(ctx context.Context, studentID, day string, period Period) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance
		WHERE student_id = ? AND day = ? AND period = ?
	`, studentID, day, period)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

// ListByDay returns all records for a calendar day, optionally one period.
func (r *MySQLRepository) ListByDay(ctx context.Context, day string, period Period) ([]Record, error) {
	query := `SELECT ` + recordCols + ` FROM attendance WHERE day = ?`
	args := []any{day}
	if period != "" {
		query += ` AND period = ?`
		args = append(args, period)
	}
	query += ` ORDER BY scan_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
