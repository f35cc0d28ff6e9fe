package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTeacherNotFound is returned when no account matches the email.
	ErrTeacherNotFound = errors.New("teacher not found")
	// ErrBadCredentials is returned for a wrong password or unknown email.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Teacher is an operator account. Teachers log in on the mobile app, generate
// QR codes and record attendance; their ID lands on every record they write.
type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SetPassword hashes and stores pwd.
func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

// CheckPassword compares pwd against the stored hash.
func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

// TeacherRepository is the account persistence contract.
type TeacherRepository interface {
	Create(ctx context.Context, t Teacher) (Teacher, error)
	GetByEmail(ctx context.Context, email string) (Teacher, error)
	GetByID(ctx context.Context, id string) (Teacher, error)
}

// MySQLTeacherRepository persists teacher accounts in MySQL.
type MySQLTeacherRepository struct {
	db *sql.DB
}

// NewMySQLTeacherRepository creates a repo.
func NewMySQLTeacherRepository(db *sql.DB) *MySQLTeacherRepository {
	return &MySQLTeacherRepository{db: db}
}

func (r *MySQLTeacherRepository) Create(ctx context.Context, t Teacher) (Teacher, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Email, t.PasswordHash, t.CreatedAt)
	if err != nil {
		return Teacher{}, fmt.Errorf("create teacher: %w", err)
	}
	return t, nil
}

func (r *MySQLTeacherRepository) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at FROM teachers WHERE email = ?
	`, email)
	var t Teacher
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrTeacherNotFound
	}
	return t, err
}

func (r *MySQLTeacherRepository) GetByID(ctx context.Context, id string) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at FROM teachers WHERE id = ?
	`, id)
	var t Teacher
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrTeacherNotFound
	}
	return t, err
}

// MemoryTeacherRepository is the in-memory account store for tests/dev.
type MemoryTeacherRepository struct {
	mu       sync.RWMutex
	teachers map[string]Teacher
}

// NewMemoryTeacherRepository creates an empty store.
func NewMemoryTeacherRepository() *MemoryTeacherRepository {
	return &MemoryTeacherRepository{teachers: make(map[string]Teacher)}
}

func (r *MemoryTeacherRepository) Create(_ context.Context, t Teacher) (Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	r.teachers[t.ID] = t
	return t, nil
}

func (r *MemoryTeacherRepository) GetByEmail(_ context.Context, email string) (Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.teachers {
		if t.Email == email {
			return t, nil
		}
	}
	return Teacher{}, ErrTeacherNotFound
}

func (r *MemoryTeacherRepository) GetByID(_ context.Context, id string) (Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.teachers[id]; ok {
		return t, nil
	}
	return Teacher{}, ErrTeacherNotFound
}

// Service handles login and token issuance.
type Service struct {
	repo       TeacherRepository
	issuer     string
	signingKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates an auth service.
func NewService(repo TeacherRepository, issuer, signingKey string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		issuer:     issuer,
		signingKey: signingKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login verifies credentials and issues a token pair. Unknown emails and bad
// passwords both come back as ErrBadCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Teacher, TokenPair, error) {
	t, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrTeacherNotFound) {
			return Teacher{}, TokenPair{}, ErrBadCredentials
		}
		return Teacher{}, TokenPair{}, err
	}
	if err := t.CheckPassword(password); err != nil {
		return Teacher{}, TokenPair{}, ErrBadCredentials
	}

	tokens, err := Issue(t.ID, t.Name, "teacher", s.issuer, s.signingKey, s.accessTTL, s.refreshTTL)
	if err != nil {
		return Teacher{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return t, tokens, nil
}

// Register creates a teacher account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (Teacher, error) {
	t := Teacher{Name: name, Email: email}
	if err := t.SetPassword(password); err != nil {
		return Teacher{}, err
	}
	return s.repo.Create(ctx, t)
}
