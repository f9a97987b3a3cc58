package service

import (
	"context"
	"errors"
	"strings"

	"hackhub/internal/auth"
	"hackhub/internal/model"
	"hackhub/internal/repo"
)

const minPasswordLen = 6

type ManagerSignup struct {
	Name         string
	Email        string
	Password     string
	Organization string
	Department   string
	Role         model.ManagerRole
	Phone        string
}

type StudentSignup struct {
	Name     string
	Email    string
	Password string
	College  string
}

func (s *service) RegisterManager(ctx context.Context, in ManagerSignup) (*model.Manager, string, error) {
	if len(in.Password) < minPasswordLen {
		return nil, "", fieldError("password", "must be at least 6 characters")
	}
	if in.Role == "" {
		in.Role = model.RoleOther
	}
	switch in.Role {
	case model.RoleProfessor, model.RoleHOD, model.RoleCoordinator, model.RoleOther:
	default:
		return nil, "", fieldError("role", "must be one of professor, hod, coordinator, other")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", internal(err)
	}
	m := &model.Manager{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Organization: strings.TrimSpace(in.Organization),
		Department:   strings.TrimSpace(in.Department),
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
	}

	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, err := s.repo.CreateManager(ctx, m); err != nil {
		return nil, "", fromRepo(err)
	}
	token, err := s.tokens.Issue(auth.RoleManager, m.ID)
	if err != nil {
		return nil, "", internal(err)
	}
	s.log.Info().Int64("manager_id", m.ID).Msg("manager registered")
	return m, token, nil
}

func (s *service) LoginManager(ctx context.Context, email, password string) (*model.Manager, string, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	m, err := s.repo.GetManagerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fromRepo(err)
	}
	if err := s.hasher.Compare(m.PasswordHash, password); err != nil {
		s.log.Info().Int64("manager_id", m.ID).Msg("manager login refused")
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(auth.RoleManager, m.ID)
	if err != nil {
		return nil, "", internal(err)
	}
	return m, token, nil
}

func (s *service) Manager(ctx context.Context, managerID int64) (*model.Manager, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	m, err := s.repo.GetManagerByID(ctx, managerID)
	if err != nil {
		return nil, fromRepo(err)
	}
	return m, nil
}

func (s *service) RegisterStudent(ctx context.Context, in StudentSignup) (*model.Student, string, error) {
	if len(in.Password) < minPasswordLen {
		return nil, "", fieldError("password", "must be at least 6 characters")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", internal(err)
	}
	st := &model.Student{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		College:      strings.TrimSpace(in.College),
	}

	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, err := s.repo.CreateStudent(ctx, st); err != nil {
		return nil, "", fromRepo(err)
	}
	token, err := s.tokens.Issue(auth.RoleStudent, st.ID)
	if err != nil {
		return nil, "", internal(err)
	}
	s.log.Info().Int64("student_id", st.ID).Msg("student registered")
	return st, token, nil
}

func (s *service) LoginStudent(ctx context.Context, email, password string) (*model.Student, string, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	st, err := s.repo.GetStudentByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fromRepo(err)
	}
	if err := s.hasher.Compare(st.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(auth.RoleStudent, st.ID)
	if err != nil {
		return nil, "", internal(err)
	}
	return st, token, nil
}

func (s *service) StudentProfile(ctx context.Context, studentID int64) (*model.Student, []model.StudentRegistration, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	st, err := s.repo.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, nil, fromRepo(err)
	}
	regs, err := s.repo.GetStudentRegistrations(ctx, studentID)
	if err != nil {
		return nil, nil, fromRepo(err)
	}
	if regs == nil {
		regs = []model.StudentRegistration{}
	}
	return st, regs, nil
}

// Authenticate resolves a bearer token to an account id of the given role.
func (s *service) Authenticate(token string, role auth.Role) (int64, error) {
	id, err := s.tokens.Parse(token, role)
	if err != nil {
		return 0, &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: ErrUnauthorized.Message, Err: err}
	}
	return id, nil
}
