package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hackhub/internal/model"
	"hackhub/internal/repo"
)

// EventView is an event plus the state derived from it at read time.
type EventView struct {
	model.Event
	Status             model.EventStatus
	AvailableSlots     int
	IsRegistrationOpen bool
}

type ListFilter struct {
	Department string
	Status     model.EventStatus
}

type EventStats struct {
	TotalTeams         int
	SpotsLeft          int
	RegistrationStatus string
	EventStatus        model.EventStatus
	Payments           map[model.PaymentStatus]int
}

func (s *service) view(e *model.Event) *EventView {
	now := s.now()
	return &EventView{
		Event:              *e,
		Status:             e.Status(now),
		AvailableSlots:     e.AvailableSlots(),
		IsRegistrationOpen: e.IsRegistrationOpen(now),
	}
}

func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEvent(e *model.Event) {
	e.Title = strings.TrimSpace(e.Title)
	if len(e.Departments) == 0 {
		e.Departments = []string{"All"}
	}
	if e.Rules == nil {
		e.Rules = []string{}
	}
}

func (s *service) CreateEvent(ctx context.Context, managerID int64, e *model.Event) (*EventView, error) {
	normalizeEvent(e)
	e.ManagerID = managerID
	e.RegisteredTeams = 0
	if errs := model.ValidateEvent(e); len(errs) > 0 {
		return nil, validation(errs)
	}
	e.ShareToken = newShareToken()

	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	id, err := s.repo.CreateEvent(ctx, e)
	if err != nil {
		s.log.Error().Err(err).Int64("manager_id", managerID).Msg("failed to create event")
		return nil, fromRepo(err)
	}
	s.log.Info().Int64("event_id", id).Int64("manager_id", managerID).Bool("published", e.IsPublished).Msg("event created")
	return s.view(e), nil
}

// UpdateEvent replaces the configurable fields of an event. Ownership,
// publication, share token and the team counter are not editable here.
func (s *service) UpdateEvent(ctx context.Context, managerID, eventID int64, in *model.Event) (*EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	current, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}

	normalizeEvent(in)
	updated := *in
	updated.ID = current.ID
	updated.ManagerID = current.ManagerID
	updated.IsPublished = current.IsPublished
	updated.ShareToken = current.ShareToken
	updated.RegisteredTeams = current.RegisteredTeams
	updated.CreatedAt = current.CreatedAt

	if model.CoreFieldsLocked(current, s.now()) {
		if changed := model.CoreFieldsChanged(current, &updated); len(changed) > 0 {
			fields := make([]model.FieldError, 0, len(changed))
			for _, f := range changed {
				fields = append(fields, model.FieldError{Field: f, Message: "cannot change after registration has begun or the event has started"})
			}
			return nil, &Error{Kind: ErrCoreFieldsLocked.Kind, Code: ErrCoreFieldsLocked.Code, Message: ErrCoreFieldsLocked.Message, Fields: fields}
		}
	}
	if errs := model.ValidateEvent(&updated); len(errs) > 0 {
		return nil, validation(errs)
	}

	if err := s.repo.UpdateEvent(ctx, &updated); err != nil {
		s.log.Warn().Err(err).Int64("event_id", eventID).Msg("failed to update event")
		return nil, fromRepo(err)
	}
	s.log.Info().Int64("event_id", eventID).Msg("event updated")
	return s.view(&updated), nil
}

func (s *service) DeleteEvent(ctx context.Context, managerID, eventID int64) error {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return err
	}
	if s.hasStarted(e) {
		return ErrEventAlreadyStarted
	}
	if err := s.repo.DeleteEvent(ctx, eventID); err != nil {
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to delete event")
		return fromRepo(err)
	}
	s.log.Info().Int64("event_id", eventID).Int("teams", e.RegisteredTeams).Msg("event deleted")
	return nil
}

// GetEvent returns a published event to anyone and a draft only to its owner.
func (s *service) GetEvent(ctx context.Context, viewerID, eventID int64) (*EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !e.IsPublished && e.ManagerID != viewerID {
		return nil, ErrEventNotFound
	}
	return s.view(e), nil
}

func (s *service) ListEvents(ctx context.Context, filter ListFilter) ([]EventView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fieldError("status", "must be one of draft, published, registration_closed, ongoing, completed")
	}

	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	events, err := s.repo.ListEvents(ctx, model.EventFilter{Department: filter.Department, PublishedOnly: true})
	if err != nil {
		return nil, fromRepo(err)
	}
	out := make([]EventView, 0, len(events))
	for i := range events {
		v := s.view(&events[i])
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *service) ListManagerEvents(ctx context.Context, managerID int64) ([]EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	events, err := s.repo.ListEvents(ctx, model.EventFilter{ManagerID: managerID})
	if err != nil {
		return nil, fromRepo(err)
	}
	out := make([]EventView, 0, len(events))
	for i := range events {
		out = append(out, *s.view(&events[i]))
	}
	return out, nil
}

// resolvePublic finds a published event by numeric id or share token.
func (s *service) resolvePublic(ctx context.Context, identifier string) (*model.Event, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrEventNotFound
	}

	e, err := s.lookupPublic(ctx, identifier)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !e.IsPublished {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (s *service) lookupPublic(ctx context.Context, identifier string) (*model.Event, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil && id > 0 {
		e, err := s.repo.GetEventByID(ctx, id)
		if !errors.Is(err, repo.ErrEventNotFound) {
			return e, err
		}
	}
	return s.repo.GetEventByShareToken(ctx, identifier)
}

func (s *service) PublicEvent(ctx context.Context, identifier string) (*EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.resolvePublic(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.view(e), nil
}

// ListPublicEvents returns published events still taking registrations by date, soonest first.
func (s *service) ListPublicEvents(ctx context.Context) ([]EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	events, err := s.repo.ListEvents(ctx, model.EventFilter{PublishedOnly: true})
	if err != nil {
		return nil, fromRepo(err)
	}
	now := s.now()
	out := make([]EventView, 0, len(events))
	for i := range events {
		if !events[i].RegistrationDeadline.After(now) {
			continue
		}
		out = append(out, *s.view(&events[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *service) EventStats(ctx context.Context, managerID, eventID int64) (*EventStats, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}
	teams, err := s.repo.ListTeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, fromRepo(err)
	}

	v := s.view(e)
	stats := &EventStats{
		TotalTeams:         e.RegisteredTeams,
		SpotsLeft:          v.AvailableSlots,
		RegistrationStatus: "Closed",
		EventStatus:        v.Status,
		Payments: map[model.PaymentStatus]int{
			model.PaymentNotRequired: 0,
			model.PaymentPending:     0,
			model.PaymentVerified:    0,
			model.PaymentRejected:    0,
		},
	}
	if v.IsRegistrationOpen {
		stats.RegistrationStatus = "Open"
	}
	for _, t := range teams {
		stats.Payments[t.PaymentStatus]++
	}
	return stats, nil
}

func (s *service) SetPublished(ctx context.Context, managerID, eventID int64, published bool) (*EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}
	if e.IsPublished == published {
		return s.view(e), nil
	}
	if !published && e.RegisteredTeams > 0 {
		return nil, conflict(CodeEventHasTeams, "an event with registered teams cannot be unpublished")
	}
	if published {
		if errs := model.ValidateEvent(e); len(errs) > 0 {
			return nil, validation(errs)
		}
	}

	e.IsPublished = published
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return nil, fromRepo(err)
	}
	s.log.Info().Int64("event_id", eventID).Bool("published", published).Msg("event publication changed")
	return s.view(e), nil
}

func (s *service) RegenerateShareLink(ctx context.Context, managerID, eventID int64) (*EventView, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}
	e.ShareToken = newShareToken()
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return nil, fromRepo(err)
	}
	s.log.Info().Int64("event_id", eventID).Msg("share link regenerated")
	return s.view(e), nil
}

// hasStarted reports whether destructive changes are no longer allowed.
func (s *service) hasStarted(e *model.Event) bool {
	return s.now().After(e.StartDate)
}
