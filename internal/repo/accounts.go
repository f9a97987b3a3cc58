package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"hackhub/internal/model"
)

func (r *Postgres) CreateManager(ctx context.Context, m *model.Manager) (int64, error) {
	query := `
		INSERT INTO managers (name, email, password_hash, organization, department, role, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.Master.QueryRowContext(ctx, query,
		m.Name, strings.ToLower(m.Email), m.PasswordHash, m.Organization, m.Department, m.Role, m.Phone,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return 0, classify(err, "insert manager")
	}
	return m.ID, nil
}

const managerColumns = `id, name, email, password_hash, organization, department, role, phone, created_at, updated_at`

func (r *Postgres) getManager(ctx context.Context, where string, arg any) (*model.Manager, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+managerColumns+` FROM managers WHERE `+where, arg)

	var m model.Manager
	if err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Organization,
		&m.Department, &m.Role, &m.Phone, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, classify(err, "select manager")
	}
	return &m, nil
}

func (r *Postgres) GetManagerByID(ctx context.Context, id int64) (*model.Manager, error) {
	return r.getManager(ctx, "id = $1", id)
}

func (r *Postgres) GetManagerByEmail(ctx context.Context, email string) (*model.Manager, error) {
	return r.getManager(ctx, "email = $1", strings.ToLower(email))
}

func (r *Postgres) CreateStudent(ctx context.Context, s *model.Student) (int64, error) {
	query := `
		INSERT INTO students (name, email, password_hash, college, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.Master.QueryRowContext(ctx, query,
		s.Name, strings.ToLower(s.Email), s.PasswordHash, s.College,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return 0, classify(err, "insert student")
	}
	return s.ID, nil
}

func (r *Postgres) getStudent(ctx context.Context, where string, arg any) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, college, created_at, updated_at
		FROM students WHERE `+where, arg)

	var s model.Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.College, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, classify(err, "select student")
	}
	return &s, nil
}

func (r *Postgres) GetStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	return r.getStudent(ctx, "id = $1", id)
}

func (r *Postgres) GetStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	return r.getStudent(ctx, "email = $1", strings.ToLower(email))
}

func (r *Postgres) GetStudentRegistrations(ctx context.Context, studentID int64) ([]model.StudentRegistration, error) {
	query := `
		SELECT student_id, event_id, team_id, team_name, role, registered_at
		FROM student_registrations
		WHERE student_id = $1
		ORDER BY registered_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, classify(err, "select student registrations")
	}
	defer rows.Close()

	var regs []model.StudentRegistration
	for rows.Next() {
		var sr model.StudentRegistration
		if err := rows.Scan(&sr.StudentID, &sr.EventID, &sr.TeamID, &sr.TeamName, &sr.Role, &sr.RegisteredAt); err != nil {
			return nil, classify(err, "scan student registration")
		}
		regs = append(regs, sr)
	}
	return regs, classify(rows.Err(), "iterate student registrations")
}
