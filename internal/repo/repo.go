package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"hackhub/internal/model"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrEventFull       = errors.New("event is full")
	ErrDuplicateMember = errors.New("member already on another team")
	ErrEmailTaken      = errors.New("email already registered")
	ErrStaleEvent      = errors.New("event changed concurrently")
	ErrUnavailable     = errors.New("storage unavailable")
)

const uniqueViolation = "23505"

type Repository interface {
	CreateManager(ctx context.Context, m *model.Manager) (int64, error)
	GetManagerByID(ctx context.Context, id int64) (*model.Manager, error)
	GetManagerByEmail(ctx context.Context, email string) (*model.Manager, error)
	CreateStudent(ctx context.Context, s *model.Student) (int64, error)
	GetStudentByID(ctx context.Context, id int64) (*model.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*model.Student, error)
	GetStudentRegistrations(ctx context.Context, studentID int64) ([]model.StudentRegistration, error)

	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetEventByShareToken(ctx context.Context, token string) (*model.Event, error)
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// UpdateEvent writes every configurable column. It fails with ErrStaleEvent when
	// the stored registered-team count no longer matches e.RegisteredTeams.
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error

	// CreateTeamTx inserts the team and increments the event counter only while it is
	// below max_teams. It returns ErrEventFull when the guard rejects the increment and
	// ErrDuplicateMember when a member is already on a non-rejected team of the event.
	CreateTeamTx(ctx context.Context, t *model.Team) (int64, error)
	// UpdateTeamTx replaces name, transaction reference and members, and rewrites the
	// student links. Payment fields are left alone.
	UpdateTeamTx(ctx context.Context, t *model.Team) (*model.Team, error)
	GetTeamByID(ctx context.Context, id int64) (*model.Team, error)
	ListTeamsByEvent(ctx context.Context, eventID int64) ([]model.Team, error)
	DeleteTeamTx(ctx context.Context, teamID int64) error
	// UpdatePaymentStatusTx applies the decision, appends an audit row and returns the previous status.
	UpdatePaymentStatusTx(ctx context.Context, teamID int64, upd model.PaymentUpdate) (model.PaymentStatus, error)
	ListPaymentAudit(ctx context.Context, teamID int64) ([]model.PaymentAudit, error)
}

// Postgres is the Repository backed by the wbf master/slave pool.
type Postgres struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &Postgres{db: db, log: log}, nil
}

func (r *Postgres) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *Postgres) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *Postgres) runMigrations(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Str("dir", dir).Str("pattern", pattern).Int("files", len(files)).Msg("migrations applied")
	return nil
}

// classify folds driver level failures into the package sentinels.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, "email") {
		return fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
