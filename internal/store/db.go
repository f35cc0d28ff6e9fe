package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DB wraps sql.DB for MySQL.
type DB struct {
	Client *sql.DB
}

// NewDB creates a MySQL connection with sane defaults. The DSN must carry
// parseTime=true so DATETIME columns scan into time.Time.
func NewDB(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{Client: db}, nil
}

// Migrate creates the schema when missing. Attendance carries a unique key on
// (student_id, day, period): the upsert path depends on it for last-write-wins.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id             CHAR(36) PRIMARY KEY,
			lrn            VARCHAR(32) NOT NULL,
			name           VARCHAR(255) NOT NULL,
			section        VARCHAR(64) NOT NULL DEFAULT '',
			grade_level    VARCHAR(32) NOT NULL DEFAULT '',
			guardian_email VARCHAR(255) NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL,
			UNIQUE KEY uq_students_lrn (lrn)
		)`,
		`CREATE TABLE IF NOT EXISTS teachers (
			id            CHAR(36) PRIMARY KEY,
			name          VARCHAR(255) NOT NULL,
			email         VARCHAR(255) NOT NULL,
			password_hash VARBINARY(72) NOT NULL,
			created_at    DATETIME NOT NULL,
			UNIQUE KEY uq_teachers_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id          CHAR(36) PRIMARY KEY,
			student_id  CHAR(36) NOT NULL,
			day         CHAR(10) NOT NULL,
			period      VARCHAR(16) NOT NULL,
			status      VARCHAR(16) NOT NULL,
			scan_time   DATETIME NOT NULL,
			recorded_by CHAR(36) NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL,
			UNIQUE KEY uq_attendance_key (student_id, day, period),
			KEY idx_attendance_day (day)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
