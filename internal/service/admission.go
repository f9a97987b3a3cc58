package service

import (
	"context"
	"strings"
	"time"

	"hackhub/internal/model"
	"hackhub/internal/notify"
)

type RegistrationInput struct {
	TeamName             string
	Members              []model.Member
	TransactionReference string
}

// checkAdmission runs the admission rules against already loaded state.
// The first failing rule wins and the order is part of the contract:
// deadline, capacity, team size, leader, duplicate member, payment reference.
func checkAdmission(e *model.Event, existing []model.Team, in RegistrationInput, now time.Time) error {
	if now.After(e.RegistrationDeadline) {
		return admission(ErrDeadlinePassed, "registration closed on %s", e.RegistrationDeadline.Format(time.RFC1123))
	}

	if e.RegisteredTeams >= e.MaxTeams {
		return admission(ErrCapacityExceeded, "all %d team slots are taken", e.MaxTeams)
	}

	if err := checkRoster(e, existing, in, 0); err != nil {
		return err
	}

	if e.RequiresPayment() && strings.TrimSpace(in.TransactionReference) == "" {
		return admission(ErrPaymentReferenceRequired, "entry fee is %d, a transaction reference is required", e.EntryFee)
	}
	return nil
}

// checkRoster runs the team size, leader and duplicate member rules. Members of
// the team with id exclude are not treated as taken.
func checkRoster(e *model.Event, existing []model.Team, in RegistrationInput, exclude int64) error {
	if n := len(in.Members); n < e.MinTeamSize || n > e.MaxTeamSize {
		return admission(ErrInvalidTeamSize, "team must have between %d and %d members, got %d", e.MinTeamSize, e.MaxTeamSize, n)
	}

	leaders := 0
	for _, m := range in.Members {
		if m.IsLeader {
			leaders++
		}
	}
	if leaders != 1 {
		return admission(ErrNoLeaderDesignated, "exactly one member must be the team leader, got %d", leaders)
	}

	taken := make(map[string]string)
	for _, t := range existing {
		if t.ID == exclude || t.PaymentStatus == model.PaymentRejected {
			continue
		}
		for _, m := range t.Members {
			taken[normalizeEmail(m.Email)] = t.Name
		}
	}
	seen := make(map[string]struct{}, len(in.Members))
	for _, m := range in.Members {
		email := normalizeEmail(m.Email)
		if team, ok := taken[email]; ok {
			return admission(ErrDuplicateMember, "%s is already registered with team %q", m.Email, team)
		}
		if _, ok := seen[email]; ok {
			return admission(ErrDuplicateMember, "%s appears more than once in this team", m.Email)
		}
		seen[email] = struct{}{}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterTeam admits a team to a published event by id.
func (s *service) RegisterTeam(ctx context.Context, eventID int64, in RegistrationInput) (*model.Team, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !e.IsPublished {
		return nil, ErrEventNotFound
	}
	return s.admit(ctx, e, in)
}

// RegisterTeamPublic admits a team to a published event found by id or share token.
func (s *service) RegisterTeamPublic(ctx context.Context, identifier string, in RegistrationInput) (*model.Team, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.resolvePublic(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.admit(ctx, e, in)
}

func (s *service) admit(ctx context.Context, e *model.Event, in RegistrationInput) (*model.Team, error) {
	existing, err := s.repo.ListTeamsByEvent(ctx, e.ID)
	if err != nil {
		return nil, fromRepo(err)
	}

	if err := checkAdmission(e, existing, in, s.now()); err != nil {
		s.log.Info().Err(err).Int64("event_id", e.ID).Str("team", in.TeamName).Msg("registration refused")
		return nil, err
	}

	team := &model.Team{
		EventID:       e.ID,
		Name:          strings.TrimSpace(in.TeamName),
		Members:       cleanMembers(in.Members),
		PaymentStatus: model.PaymentNotRequired,
	}
	if e.RequiresPayment() {
		team.PaymentStatus = model.PaymentPending
		team.TransactionReference = strings.TrimSpace(in.TransactionReference)
	}

	if _, err := s.repo.CreateTeamTx(ctx, team); err != nil {
		// ErrEventFull here means a concurrent registration took the last slot.
		s.log.Warn().Err(err).Int64("event_id", e.ID).Str("team", team.Name).Msg("failed to commit registration")
		return nil, fromRepo(err)
	}
	s.log.Info().
		Int64("event_id", e.ID).
		Int64("team_id", team.ID).
		Int("members", len(team.Members)).
		Str("payment_status", string(team.PaymentStatus)).
		Msg("team registered")

	kind := notify.KindRegistrationConfirmed
	if team.PaymentStatus == model.PaymentPending {
		kind = notify.KindRegistrationPending
	}
	msg := teamMessage(kind, e, team)
	s.contact(ctx, &msg, e.ManagerID)
	s.notifier.Enqueue(msg)

	return team, nil
}

func cleanMembers(in []model.Member) []model.Member {
	out := make([]model.Member, len(in))
	for i, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		m.Email = normalizeEmail(m.Email)
		out[i] = m
	}
	return out
}

func (s *service) ListTeams(ctx context.Context, managerID, eventID int64) ([]model.Team, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, err := s.ownedEvent(ctx, managerID, eventID); err != nil {
		return nil, err
	}
	teams, err := s.repo.ListTeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if teams == nil {
		teams = []model.Team{}
	}
	return teams, nil
}

// DeleteTeam removes a team before the event starts and frees its slot.
func (s *service) DeleteTeam(ctx context.Context, managerID, teamID int64) error {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	t, e, err := s.ownedTeam(ctx, managerID, teamID)
	if err != nil {
		return err
	}
	if s.hasStarted(e) {
		return ErrEventAlreadyStarted
	}
	if err := s.repo.DeleteTeamTx(ctx, teamID); err != nil {
		return fromRepo(err)
	}
	s.log.Info().Int64("event_id", e.ID).Int64("team_id", t.ID).Msg("team deleted")
	return nil
}

// UpdateTeam replaces the name, members and transaction reference of a team
// before its event starts. Deadline and capacity are not checked again; an
// empty reference keeps the stored one.
func (s *service) UpdateTeam(ctx context.Context, managerID, teamID int64, in RegistrationInput) (*model.Team, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	t, e, err := s.ownedTeam(ctx, managerID, teamID)
	if err != nil {
		return nil, err
	}
	if s.hasStarted(e) {
		return nil, ErrEventAlreadyStarted
	}
	if strings.TrimSpace(in.TeamName) == "" {
		return nil, fieldError("team_name", "is required")
	}

	existing, err := s.repo.ListTeamsByEvent(ctx, e.ID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if err := checkRoster(e, existing, in, t.ID); err != nil {
		s.log.Info().Err(err).Int64("event_id", e.ID).Int64("team_id", t.ID).Msg("team update refused")
		return nil, err
	}

	t.Name = strings.TrimSpace(in.TeamName)
	t.Members = cleanMembers(in.Members)
	if ref := strings.TrimSpace(in.TransactionReference); ref != "" {
		t.TransactionReference = ref
	}
	updated, err := s.repo.UpdateTeamTx(ctx, t)
	if err != nil {
		return nil, fromRepo(err)
	}
	s.log.Info().Int64("event_id", e.ID).Int64("team_id", t.ID).Int("members", len(updated.Members)).Msg("team updated")
	return updated, nil
}
