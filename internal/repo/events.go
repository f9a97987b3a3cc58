package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"hackhub/internal/model"
)

const eventColumns = `
	id, manager_id, title, description, start_date, end_date, registration_deadline,
	venue_name, venue_address, venue_city, rules, entry_fee, max_teams, min_team_size,
	max_team_size, departments, payment_collection_id, payment_payee_name,
	payment_instructions, is_published, share_token, registered_teams, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.ManagerID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.RegistrationDeadline,
		&e.Venue.Name, &e.Venue.Address, &e.Venue.City, pq.Array(&e.Rules), &e.EntryFee, &e.MaxTeams,
		&e.MinTeamSize, &e.MaxTeamSize, pq.Array(&e.Departments), &e.Payment.CollectionID,
		&e.Payment.PayeeName, &e.Payment.Instructions, &e.IsPublished, &e.ShareToken,
		&e.RegisteredTeams, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Postgres) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (
			manager_id, title, description, start_date, end_date, registration_deadline,
			venue_name, venue_address, venue_city, rules, entry_fee, max_teams, min_team_size,
			max_team_size, departments, payment_collection_id, payment_payee_name,
			payment_instructions, is_published, share_token, registered_teams, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 0, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.Master.QueryRowContext(ctx, query,
		e.ManagerID, e.Title, e.Description, e.StartDate, e.EndDate, e.RegistrationDeadline,
		e.Venue.Name, e.Venue.Address, e.Venue.City, pq.Array(e.Rules), e.EntryFee, e.MaxTeams,
		e.MinTeamSize, e.MaxTeamSize, pq.Array(e.Departments), e.Payment.CollectionID,
		e.Payment.PayeeName, e.Payment.Instructions, e.IsPublished, e.ShareToken,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return 0, classify(err, "insert event")
	}
	e.RegisteredTeams = 0
	return e.ID, nil
}

func (r *Postgres) getEvent(ctx context.Context, where string, arg any) (*model.Event, error) {
	// Reads go to the master so a registration is visible to the next request.
	row := r.db.Master.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE `+where, arg)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, classify(err, "select event")
	}
	return e, nil
}

func (r *Postgres) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	return r.getEvent(ctx, "id = $1", id)
}

func (r *Postgres) GetEventByShareToken(ctx context.Context, token string) (*model.Event, error) {
	return r.getEvent(ctx, "share_token = $1", token)
}

func (r *Postgres) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ManagerID != 0 {
		args = append(args, filter.ManagerID)
		conds = append(conds, fmt.Sprintf("manager_id = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conds = append(conds, fmt.Sprintf("($%d = ANY(departments) OR 'All' = ANY(departments))", len(args)))
	}
	if filter.PublishedOnly {
		conds = append(conds, "is_published")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "select events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, classify(err, "scan event")
		}
		events = append(events, *e)
	}
	return events, classify(rows.Err(), "iterate events")
}

func (r *Postgres) UpdateEvent(ctx context.Context, e *model.Event) error {
	query := `
		UPDATE events SET
			title = $2, description = $3, start_date = $4, end_date = $5, registration_deadline = $6,
			venue_name = $7, venue_address = $8, venue_city = $9, rules = $10, entry_fee = $11,
			max_teams = $12, min_team_size = $13, max_team_size = $14, departments = $15,
			payment_collection_id = $16, payment_payee_name = $17, payment_instructions = $18,
			is_published = $19, share_token = $20, updated_at = NOW()
		WHERE id = $1 AND registered_teams = $21
		RETURNING updated_at
	`
	err := r.db.Master.QueryRowContext(ctx, query,
		e.ID, e.Title, e.Description, e.StartDate, e.EndDate, e.RegistrationDeadline,
		e.Venue.Name, e.Venue.Address, e.Venue.City, pq.Array(e.Rules), e.EntryFee,
		e.MaxTeams, e.MinTeamSize, e.MaxTeamSize, pq.Array(e.Departments),
		e.Payment.CollectionID, e.Payment.PayeeName, e.Payment.Instructions,
		e.IsPublished, e.ShareToken, e.RegisteredTeams,
	).Scan(&e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := r.GetEventByID(ctx, e.ID); gerr != nil {
			return gerr
		}
		return ErrStaleEvent
	}
	return classify(err, "update event")
}

func (r *Postgres) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.Master.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return classify(err, "delete event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}
