package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hackhub/internal/auth"
	"hackhub/internal/model"
	"hackhub/internal/notify"
	"hackhub/internal/repo"
)

type Service interface {
	RegisterManager(ctx context.Context, in ManagerSignup) (*model.Manager, string, error)
	LoginManager(ctx context.Context, email, password string) (*model.Manager, string, error)
	Manager(ctx context.Context, managerID int64) (*model.Manager, error)
	RegisterStudent(ctx context.Context, in StudentSignup) (*model.Student, string, error)
	LoginStudent(ctx context.Context, email, password string) (*model.Student, string, error)
	StudentProfile(ctx context.Context, studentID int64) (*model.Student, []model.StudentRegistration, error)
	Authenticate(token string, role auth.Role) (int64, error)

	CreateEvent(ctx context.Context, managerID int64, e *model.Event) (*EventView, error)
	UpdateEvent(ctx context.Context, managerID, eventID int64, e *model.Event) (*EventView, error)
	DeleteEvent(ctx context.Context, managerID, eventID int64) error
	GetEvent(ctx context.Context, viewerID, eventID int64) (*EventView, error)
	ListEvents(ctx context.Context, filter ListFilter) ([]EventView, error)
	ListManagerEvents(ctx context.Context, managerID int64) ([]EventView, error)
	PublicEvent(ctx context.Context, identifier string) (*EventView, error)
	ListPublicEvents(ctx context.Context) ([]EventView, error)
	EventStats(ctx context.Context, managerID, eventID int64) (*EventStats, error)
	SetPublished(ctx context.Context, managerID, eventID int64, published bool) (*EventView, error)
	RegenerateShareLink(ctx context.Context, managerID, eventID int64) (*EventView, error)

	RegisterTeam(ctx context.Context, eventID int64, in RegistrationInput) (*model.Team, error)
	RegisterTeamPublic(ctx context.Context, identifier string, in RegistrationInput) (*model.Team, error)
	ListTeams(ctx context.Context, managerID, eventID int64) ([]model.Team, error)
	UpdateTeam(ctx context.Context, managerID, teamID int64, in RegistrationInput) (*model.Team, error)
	DeleteTeam(ctx context.Context, managerID, teamID int64) error

	VerifyPayment(ctx context.Context, managerID, teamID int64, decision model.PaymentStatus, notes string) (*model.Team, error)
	PaymentHistory(ctx context.Context, managerID, teamID int64) ([]model.PaymentAudit, error)

	ExportTeamsCSV(ctx context.Context, managerID, eventID int64) (*Document, error)
	ExportTeamsPDF(ctx context.Context, managerID, eventID int64) (*Document, error)
	Certificates(ctx context.Context, managerID, eventID, teamID int64) (*Document, error)
}

type service struct {
	repo     repo.Repository
	notifier notify.Notifier
	tokens   *auth.Tokens
	hasher   *auth.Hasher
	log      *zerolog.Logger
	now      func() time.Time
	timeout  time.Duration
}

type Option func(*service)

// WithClock replaces time.Now for lifecycle and deadline decisions.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithStorageTimeout bounds every storage round trip made by one call.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(r repo.Repository, n notify.Notifier, tokens *auth.Tokens, hasher *auth.Hasher, logger *zerolog.Logger, opts ...Option) Service {
	if n == nil {
		n = notify.Discard{}
	}
	s := &service{
		repo:     r,
		notifier: n,
		tokens:   tokens,
		hasher:   hasher,
		log:      logger,
		now:      time.Now,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ownedEvent loads the event and checks that managerID created it.
func (s *service) ownedEvent(ctx context.Context, managerID, eventID int64) (*model.Event, error) {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if e.ManagerID != managerID {
		s.log.Warn().Int64("manager_id", managerID).Int64("event_id", eventID).Msg("manager is not the event owner")
		return nil, ErrForbidden
	}
	return e, nil
}

// ownedTeam loads the team and its event, checking event ownership.
func (s *service) ownedTeam(ctx context.Context, managerID, teamID int64) (*model.Team, *model.Event, error) {
	t, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, nil, fromRepo(err)
	}
	e, err := s.ownedEvent(ctx, managerID, t.EventID)
	if err != nil {
		return nil, nil, err
	}
	return t, e, nil
}

// contact fills the organiser fields of msg. Lookup failures only cost the contact block.
func (s *service) contact(ctx context.Context, msg *notify.Message, managerID int64) {
	m, err := s.repo.GetManagerByID(ctx, managerID)
	if err != nil {
		s.log.Warn().Err(err).Int64("manager_id", managerID).Msg("manager contact unavailable for notification")
		return
	}
	msg.ManagerName = m.Name
	msg.ManagerEmail = m.Email
	msg.ManagerPhone = m.Phone
}

func teamMessage(kind notify.Kind, e *model.Event, t *model.Team) notify.Message {
	msg := notify.Message{
		Kind:                 kind,
		EventID:              e.ID,
		EventTitle:           e.Title,
		EventStart:           e.StartDate,
		Venue:                e.Venue.Name,
		TeamID:               t.ID,
		TeamName:             t.Name,
		TransactionReference: t.TransactionReference,
		Amount:               e.EntryFee,
		Notes:                t.VerificationNotes,
	}
	if leader, ok := t.Leader(); ok {
		msg.To = leader.Email
		msg.RecipientName = leader.Name
	}
	for _, m := range t.Members {
		msg.Members = append(msg.Members, notify.Member{Name: m.Name, Email: m.Email, IsLeader: m.IsLeader})
	}
	return msg
}
