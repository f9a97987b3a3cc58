package service

import (
	"bytes"
	"context"

	"hackhub/internal/export"
	"hackhub/internal/model"
)

// Document is a generated file ready to be served.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (s *service) eventTeams(ctx context.Context, managerID, eventID int64) (*model.Event, []model.Team, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	e, err := s.ownedEvent(ctx, managerID, eventID)
	if err != nil {
		return nil, nil, err
	}
	teams, err := s.repo.ListTeamsByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, fromRepo(err)
	}
	return e, teams, nil
}

func (s *service) ExportTeamsCSV(ctx context.Context, managerID, eventID int64) (*Document, error) {
	e, teams, err := s.eventTeams(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.TeamsCSV(&buf, teams); err != nil {
		return nil, internal(err)
	}
	return &Document{
		Filename:    export.Filename(e.Title, "-teams.csv"),
		ContentType: "text/csv; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func (s *service) ExportTeamsPDF(ctx context.Context, managerID, eventID int64) (*Document, error) {
	e, teams, err := s.eventTeams(ctx, managerID, eventID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.TeamsPDF(&buf, e, teams, s.now()); err != nil {
		return nil, internal(err)
	}
	return &Document{
		Filename:    export.Filename(e.Title, "-teams.pdf"),
		ContentType: "application/pdf",
		Body:        buf.Bytes(),
	}, nil
}

func (s *service) Certificates(ctx context.Context, managerID, eventID, teamID int64) (*Document, error) {
	ctx, cancel := s.storageCtx(ctx)
	defer cancel()

	t, e, err := s.ownedTeam(ctx, managerID, teamID)
	if err != nil {
		return nil, err
	}
	if t.EventID != eventID {
		return nil, ErrTeamNotFound
	}
	if t.PaymentStatus == model.PaymentRejected {
		return nil, ErrPaymentRejected
	}

	issuer := "Organiser"
	if m, err := s.repo.GetManagerByID(ctx, managerID); err == nil && m.Name != "" {
		issuer = m.Name
	}

	var buf bytes.Buffer
	if err := export.Certificates(&buf, e, t, issuer); err != nil {
		return nil, internal(err)
	}
	return &Document{
		Filename:    export.Filename(e.Title+"-"+t.Name, "-certificates.pdf"),
		ContentType: "application/pdf",
		Body:        buf.Bytes(),
	}, nil
}
