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

const teamColumns = `
	id, event_id, name, payment_status, transaction_reference, verified_by,
	verified_at, verification_notes, created_at, updated_at`

func scanTeam(row rowScanner) (*model.Team, error) {
	var (
		t          model.Team
		verifiedBy sql.NullInt64
		verifiedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.EventID, &t.Name, &t.PaymentStatus, &t.TransactionReference,
		&verifiedBy, &verifiedAt, &t.VerificationNotes, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if verifiedBy.Valid {
		t.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		t.VerifiedAt = &verifiedAt.Time
	}
	return &t, nil
}

// CreateTeamTx is the admission commit: the event row stays locked from the
// capacity read until the counter increment is committed.
func (r *Postgres) CreateTeamTx(ctx context.Context, t *model.Team) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "start transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	var maxTeams, registered int
	err = tx.QueryRowContext(ctx, `
		SELECT max_teams, registered_teams
		FROM events
		WHERE id = $1
		FOR UPDATE
	`, t.EventID).Scan(&maxTeams, &registered)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, classify(err, "lock event")
	}
	if registered >= maxTeams {
		rollback(tx)
		return 0, ErrEventFull
	}
	// The service checked members before this lock was taken.
	if err := duplicateMember(ctx, tx, t.EventID, 0, t.Members); err != nil {
		rollback(tx)
		return 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO teams (event_id, name, payment_status, transaction_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, t.EventID, t.Name, t.PaymentStatus, t.TransactionReference).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		rollback(tx)
		return 0, classify(err, "insert team")
	}

	if err := insertMembers(ctx, tx, t); err != nil {
		rollback(tx)
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE events
		SET registered_teams = registered_teams + 1, updated_at = NOW()
		WHERE id = $1 AND registered_teams < max_teams
	`, t.EventID)
	if err != nil {
		rollback(tx)
		return 0, classify(err, "increment registered teams")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		rollback(tx)
		return 0, ErrEventFull
	}

	if err := linkStudents(ctx, tx, t); err != nil {
		rollback(tx)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "commit team")
	}
	return t.ID, nil
}

// duplicateMember fails with ErrDuplicateMember when one of members already
// belongs to a non-rejected team of the event other than exclude.
func duplicateMember(ctx context.Context, tx *sql.Tx, eventID, exclude int64, members []model.Member) error {
	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, strings.ToLower(m.Email))
	}
	var email string
	err := tx.QueryRowContext(ctx, `
		SELECT tm.email
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.event_id = $1 AND t.id <> $2 AND t.payment_status <> 'rejected'
			AND lower(tm.email) = ANY($3)
		LIMIT 1
	`, eventID, exclude, pq.Array(emails)).Scan(&email)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", email, ErrDuplicateMember)
	case errors.Is(err, sql.ErrNoRows):
		return nil
	}
	return classify(err, "check duplicate members")
}

func insertMembers(ctx context.Context, tx *sql.Tx, t *model.Team) error {
	for i, m := range t.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team_members (team_id, position, name, email, register_number, phone, is_leader)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.ID, i, m.Name, m.Email, m.RegisterNumber, m.Phone, m.IsLeader); err != nil {
			return classify(err, "insert team member")
		}
	}
	return nil
}

func linkStudents(ctx context.Context, tx *sql.Tx, t *model.Team) error {
	for _, m := range t.Members {
		role := "member"
		if m.IsLeader {
			role = "leader"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO student_registrations (student_id, event_id, team_id, team_name, role, registered_at)
			SELECT s.id, $1, $2, $3, $4, NOW()
			FROM students s
			WHERE s.email = lower($5)
			ON CONFLICT (student_id, team_id) DO NOTHING
		`, t.EventID, t.ID, t.Name, role, m.Email); err != nil {
			return classify(err, "link student registration")
		}
	}
	return nil
}

// UpdateTeamTx locks the event row like CreateTeamTx so the duplicate check
// cannot race a registration.
func (r *Postgres) UpdateTeamTx(ctx context.Context, t *model.Team) (*model.Team, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "start transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	var eventID int64
	err = tx.QueryRowContext(ctx, `
		SELECT e.id
		FROM events e
		JOIN teams t ON t.event_id = e.id
		WHERE t.id = $1
		FOR UPDATE OF e
	`, t.ID).Scan(&eventID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, classify(err, "lock event")
	}
	if err := duplicateMember(ctx, tx, eventID, t.ID, t.Members); err != nil {
		rollback(tx)
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE teams
		SET name = $2, transaction_reference = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+teamColumns, t.ID, t.Name, t.TransactionReference)
	updated, err := scanTeam(row)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, classify(err, "update team")
	}
	updated.Members = t.Members

	if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, t.ID); err != nil {
		rollback(tx)
		return nil, classify(err, "clear team members")
	}
	if err := insertMembers(ctx, tx, updated); err != nil {
		rollback(tx)
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_registrations WHERE team_id = $1`, t.ID); err != nil {
		rollback(tx)
		return nil, classify(err, "clear student registrations")
	}
	if err := linkStudents(ctx, tx, updated); err != nil {
		rollback(tx)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "commit team update")
	}
	return updated, nil
}

func (r *Postgres) GetTeamByID(ctx context.Context, id int64) (*model.Team, error) {
	row := r.db.Master.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	t, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, classify(err, "select team")
	}

	members, err := r.membersFor(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Members = members[t.ID]
	return t, nil
}

func (r *Postgres) ListTeamsByEvent(ctx context.Context, eventID int64) ([]model.Team, error) {
	rows, err := r.db.Master.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE event_id = $1 ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, classify(err, "select teams")
	}
	defer rows.Close()

	var (
		teams []model.Team
		ids   []int64
	)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, classify(err, "scan team")
		}
		teams = append(teams, *t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate teams")
	}
	if len(ids) == 0 {
		return teams, nil
	}

	members, err := r.membersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		teams[i].Members = members[teams[i].ID]
	}
	return teams, nil
}

func (r *Postgres) membersFor(ctx context.Context, teamIDs []int64) (map[int64][]model.Member, error) {
	rows, err := r.db.Master.QueryContext(ctx, `
		SELECT team_id, name, email, register_number, phone, is_leader
		FROM team_members
		WHERE team_id = ANY($1)
		ORDER BY team_id, position
	`, pq.Array(teamIDs))
	if err != nil {
		return nil, classify(err, "select team members")
	}
	defer rows.Close()

	out := make(map[int64][]model.Member, len(teamIDs))
	for rows.Next() {
		var (
			teamID int64
			m      model.Member
		)
		if err := rows.Scan(&teamID, &m.Name, &m.Email, &m.RegisterNumber, &m.Phone, &m.IsLeader); err != nil {
			return nil, classify(err, "scan team member")
		}
		out[teamID] = append(out[teamID], m)
	}
	return out, classify(rows.Err(), "iterate team members")
}

func (r *Postgres) DeleteTeamTx(ctx context.Context, teamID int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "start transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	var eventID int64
	err = tx.QueryRowContext(ctx, `DELETE FROM teams WHERE id = $1 RETURNING event_id`, teamID).Scan(&eventID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return classify(err, "delete team")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET registered_teams = GREATEST(registered_teams - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, eventID); err != nil {
		rollback(tx)
		return classify(err, "decrement registered teams")
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit team deletion")
	}
	return nil
}

func (r *Postgres) UpdatePaymentStatusTx(ctx context.Context, teamID int64, upd model.PaymentUpdate) (model.PaymentStatus, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return "", classify(err, "start transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			rollback(tx)
			panic(p)
		}
	}()

	var previous model.PaymentStatus
	err = tx.QueryRowContext(ctx, `SELECT payment_status FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&previous)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTeamNotFound
		}
		return "", classify(err, "lock team")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE teams
		SET payment_status = $2, verified_by = $3, verified_at = $4, verification_notes = $5, updated_at = NOW()
		WHERE id = $1
	`, teamID, upd.Status, upd.VerifiedBy, upd.VerifiedAt, upd.Notes); err != nil {
		rollback(tx)
		return "", classify(err, "update payment status")
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payment_audit (team_id, previous_status, new_status, verified_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, teamID, previous, upd.Status, upd.VerifiedBy, upd.Notes, upd.VerifiedAt); err != nil {
		rollback(tx)
		return "", classify(err, "insert payment audit")
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit payment update: %w", classify(err, "commit"))
	}
	return previous, nil
}

func (r *Postgres) ListPaymentAudit(ctx context.Context, teamID int64) ([]model.PaymentAudit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, previous_status, new_status, verified_by, notes, created_at
		FROM payment_audit
		WHERE team_id = $1
		ORDER BY created_at ASC, id ASC
	`, teamID)
	if err != nil {
		return nil, classify(err, "select payment audit")
	}
	defer rows.Close()

	var audit []model.PaymentAudit
	for rows.Next() {
		var a model.PaymentAudit
		if err := rows.Scan(&a.ID, &a.TeamID, &a.PreviousStatus, &a.NewStatus, &a.VerifiedBy, &a.Notes, &a.CreatedAt); err != nil {
			return nil, classify(err, "scan payment audit")
		}
		audit = append(audit, a)
	}
	return audit, classify(rows.Err(), "iterate payment audit")
}
