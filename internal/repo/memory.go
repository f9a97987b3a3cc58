package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hackhub/internal/model"
)

// Memory is an in-process Repository. One mutex serialises every write, which
// gives CreateTeamTx the same compare-and-increment guarantee as the row lock.
type Memory struct {
	mu sync.RWMutex

	nextID   int64
	now      func() time.Time
	managers map[int64]model.Manager
	students map[int64]model.Student
	events   map[int64]model.Event
	teams    map[int64]model.Team
	links    []model.StudentRegistration
	audit    []model.PaymentAudit
}

func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		managers: make(map[int64]model.Manager),
		students: make(map[int64]model.Student),
		events:   make(map[int64]model.Event),
		teams:    make(map[int64]model.Team),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func cloneEvent(e model.Event) model.Event {
	e.Rules = append([]string(nil), e.Rules...)
	e.Departments = append([]string(nil), e.Departments...)
	return e
}

func cloneTeam(t model.Team) model.Team {
	t.Members = append([]model.Member(nil), t.Members...)
	if t.VerifiedBy != nil {
		v := *t.VerifiedBy
		t.VerifiedBy = &v
	}
	if t.VerifiedAt != nil {
		v := *t.VerifiedAt
		t.VerifiedAt = &v
	}
	return t
}

func (m *Memory) CreateManager(ctx context.Context, mgr *model.Manager) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mgr.Email = strings.ToLower(mgr.Email)
	for _, existing := range m.managers {
		if existing.Email == mgr.Email {
			return 0, ErrEmailTaken
		}
	}
	mgr.ID = m.id()
	mgr.CreatedAt = m.now()
	mgr.UpdatedAt = mgr.CreatedAt
	m.managers[mgr.ID] = *mgr
	return mgr.ID, nil
}

func (m *Memory) GetManagerByID(ctx context.Context, id int64) (*model.Manager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mgr, ok := m.managers[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &mgr, nil
}

func (m *Memory) GetManagerByEmail(ctx context.Context, email string) (*model.Manager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(email)
	for _, mgr := range m.managers {
		if mgr.Email == email {
			return &mgr, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *Memory) CreateStudent(ctx context.Context, s *model.Student) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.Email = strings.ToLower(s.Email)
	for _, existing := range m.students {
		if existing.Email == s.Email {
			return 0, ErrEmailTaken
		}
	}
	s.ID = m.id()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.students[s.ID] = *s
	return s.ID, nil
}

func (m *Memory) GetStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &s, nil
}

func (m *Memory) GetStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(email)
	for _, s := range m.students {
		if s.Email == email {
			return &s, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *Memory) GetStudentRegistrations(ctx context.Context, studentID int64) ([]model.StudentRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.StudentRegistration
	for _, l := range m.links {
		if l.StudentID == studentID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (m *Memory) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.id()
	e.RegisteredTeams = 0
	e.CreatedAt = m.now()
	e.UpdatedAt = e.CreatedAt
	m.events[e.ID] = cloneEvent(*e)
	return e.ID, nil
}

func (m *Memory) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	e = cloneEvent(e)
	return &e, nil
}

func (m *Memory) GetEventByShareToken(ctx context.Context, token string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if token != "" && e.ShareToken == token {
			e = cloneEvent(e)
			return &e, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *Memory) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Event
	for _, e := range m.events {
		if filter.ManagerID != 0 && e.ManagerID != filter.ManagerID {
			continue
		}
		if filter.PublishedOnly && !e.IsPublished {
			continue
		}
		if filter.Department != "" && !e.AcceptsDepartment(filter.Department) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateEvent(ctx context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.events[e.ID]
	if !ok {
		return ErrEventNotFound
	}
	if stored.RegisteredTeams != e.RegisteredTeams {
		return ErrStaleEvent
	}
	updated := cloneEvent(*e)
	updated.ManagerID = stored.ManagerID
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = m.now()
	m.events[e.ID] = updated
	e.UpdatedAt = updated.UpdatedAt
	return nil
}

func (m *Memory) DeleteEvent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, id)
	for tid, t := range m.teams {
		if t.EventID == id {
			m.dropTeamLocked(tid)
		}
	}
	return nil
}

func (m *Memory) CreateTeamTx(ctx context.Context, t *model.Team) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify(err, "create team")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[t.EventID]
	if !ok {
		return 0, ErrEventNotFound
	}
	if e.RegisteredTeams >= e.MaxTeams {
		return 0, ErrEventFull
	}
	if err := m.duplicateLocked(t); err != nil {
		return 0, err
	}

	t.ID = m.id()
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.teams[t.ID] = cloneTeam(*t)

	e.RegisteredTeams++
	e.UpdatedAt = t.CreatedAt
	m.events[e.ID] = e

	m.linkStudentsLocked(t, t.CreatedAt)
	return t.ID, nil
}

// duplicateLocked reports a member of t already on another non-rejected team of the event.
func (m *Memory) duplicateLocked(t *model.Team) error {
	for _, other := range m.teams {
		if other.EventID != t.EventID || other.ID == t.ID || other.PaymentStatus == model.PaymentRejected {
			continue
		}
		for _, om := range other.Members {
			for _, mem := range t.Members {
				if strings.EqualFold(om.Email, mem.Email) {
					return fmt.Errorf("%s: %w", mem.Email, ErrDuplicateMember)
				}
			}
		}
	}
	return nil
}

func (m *Memory) linkStudentsLocked(t *model.Team, at time.Time) {
	for _, mem := range t.Members {
		for _, s := range m.students {
			if s.Email != strings.ToLower(mem.Email) {
				continue
			}
			role := "member"
			if mem.IsLeader {
				role = "leader"
			}
			m.links = append(m.links, model.StudentRegistration{
				StudentID:    s.ID,
				EventID:      t.EventID,
				TeamID:       t.ID,
				TeamName:     t.Name,
				Role:         role,
				RegisteredAt: at,
			})
		}
	}
}

func (m *Memory) UpdateTeamTx(ctx context.Context, t *model.Team) (*model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err, "update team")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.teams[t.ID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	upd := cloneTeam(stored)
	upd.Name = t.Name
	upd.TransactionReference = t.TransactionReference
	upd.Members = append([]model.Member(nil), t.Members...)
	if err := m.duplicateLocked(&upd); err != nil {
		return nil, err
	}
	upd.UpdatedAt = m.now()
	m.teams[upd.ID] = upd

	registeredAt := upd.CreatedAt
	links := m.links[:0]
	for _, l := range m.links {
		if l.TeamID != upd.ID {
			links = append(links, l)
			continue
		}
		registeredAt = l.RegisteredAt
	}
	m.links = links
	m.linkStudentsLocked(&upd, registeredAt)

	out := cloneTeam(upd)
	return &out, nil
}

func (m *Memory) GetTeamByID(ctx context.Context, id int64) (*model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	t = cloneTeam(t)
	return &t, nil
}

func (m *Memory) ListTeamsByEvent(ctx context.Context, eventID int64) ([]model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Team
	for _, t := range m.teams {
		if t.EventID == eventID {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteTeamTx(ctx context.Context, teamID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	m.dropTeamLocked(teamID)
	if e, ok := m.events[t.EventID]; ok && e.RegisteredTeams > 0 {
		e.RegisteredTeams--
		e.UpdatedAt = m.now()
		m.events[e.ID] = e
	}
	return nil
}

func (m *Memory) dropTeamLocked(teamID int64) {
	delete(m.teams, teamID)
	links := m.links[:0]
	for _, l := range m.links {
		if l.TeamID != teamID {
			links = append(links, l)
		}
	}
	m.links = links
}

func (m *Memory) UpdatePaymentStatusTx(ctx context.Context, teamID int64, upd model.PaymentUpdate) (model.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.teams[teamID]
	if !ok {
		return "", ErrTeamNotFound
	}
	previous := t.PaymentStatus

	verifiedBy, verifiedAt := upd.VerifiedBy, upd.VerifiedAt
	t.PaymentStatus = upd.Status
	t.VerifiedBy = &verifiedBy
	t.VerifiedAt = &verifiedAt
	t.VerificationNotes = upd.Notes
	t.UpdatedAt = m.now()
	m.teams[teamID] = t

	m.audit = append(m.audit, model.PaymentAudit{
		ID:             m.id(),
		TeamID:         teamID,
		PreviousStatus: previous,
		NewStatus:      upd.Status,
		VerifiedBy:     upd.VerifiedBy,
		Notes:          upd.Notes,
		CreatedAt:      upd.VerifiedAt,
	})
	return previous, nil
}

func (m *Memory) ListPaymentAudit(ctx context.Context, teamID int64) ([]model.PaymentAudit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.PaymentAudit
	for _, a := range m.audit {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	return out, nil
}
