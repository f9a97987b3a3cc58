package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"hackhub/internal/model"
)

const (
	lockEventSQL     = `SELECT max_teams, registered_teams FROM events WHERE id = \$1 FOR UPDATE`
	duplicateSQL     = `FROM team_members tm JOIN teams t ON t.id = tm.team_id`
	insertTeamSQL    = `INSERT INTO teams \(event_id, name, payment_status, transaction_reference`
	insertMemberSQL  = `INSERT INTO team_members`
	guardedIncrement = `UPDATE events SET registered_teams = registered_teams \+ 1, updated_at = NOW\(\) WHERE id = \$1 AND registered_teams < max_teams`
	linkStudentSQL   = `INSERT INTO student_registrations`
)

func newMockRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	log := zerolog.Nop()
	return &Postgres{db: &dbpg.DB{Master: db}, log: &log}, mock
}

func mockTeam() *model.Team {
	return &model.Team{
		EventID:       7,
		Name:          "Rockets",
		PaymentStatus: model.PaymentNotRequired,
		Members: []model.Member{
			{Name: "Lead", Email: "lead@x.io", IsLeader: true},
			{Name: "Ravi", Email: "ravi@x.io", RegisterNumber: "21CS07"},
		},
	}
}

// expectAdmitted queues the statements CreateTeamTx runs up to the guarded increment.
func expectAdmitted(mock sqlmock.Sqlmock, created time.Time) {
	mock.ExpectBegin()
	mock.ExpectQuery(lockEventSQL).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"max_teams", "registered_teams"}).AddRow(5, 4))
	mock.ExpectQuery(duplicateSQL).WithArgs(int64(7), int64(0), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectQuery(insertTeamSQL).WithArgs(int64(7), "Rockets", model.PaymentNotRequired, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, created, created))
	mock.ExpectExec(insertMemberSQL).WithArgs(int64(11), 0, "Lead", "lead@x.io", "", "", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertMemberSQL).WithArgs(int64(11), 1, "Ravi", "ravi@x.io", "21CS07", "", false).
		WillReturnResult(sqlmock.NewResult(2, 1))
}

func TestPostgres_CreateTeamTx(t *testing.T) {
	r, mock := newMockRepo(t)
	created := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	expectAdmitted(mock, created)
	mock.ExpectExec(guardedIncrement).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(linkStudentSQL).WithArgs(int64(7), int64(11), "Rockets", "leader", "lead@x.io").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(linkStudentSQL).WithArgs(int64(7), int64(11), "Rockets", "member", "ravi@x.io").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	team := mockTeam()
	id, err := r.CreateTeamTx(context.Background(), team)
	if err != nil {
		t.Fatalf("CreateTeamTx: %v", err)
	}
	if id != 11 || team.ID != 11 || !team.CreatedAt.Equal(created) {
		t.Errorf("id = %d, team = %+v", id, team)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_CreateTeamTx_Refused(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "guarded increment touches no row",
			expect: func(mock sqlmock.Sqlmock) {
				expectAdmitted(mock, time.Now())
				mock.ExpectExec(guardedIncrement).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: ErrEventFull,
		},
		{
			name: "full when locked",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lockEventSQL).WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"max_teams", "registered_teams"}).AddRow(5, 5))
				mock.ExpectRollback()
			},
			wantErr: ErrEventFull,
		},
		{
			name: "member already on a team",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lockEventSQL).WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"max_teams", "registered_teams"}).AddRow(5, 1))
				mock.ExpectQuery(duplicateSQL).WithArgs(int64(7), int64(0), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ravi@x.io"))
				mock.ExpectRollback()
			},
			wantErr: ErrDuplicateMember,
		},
		{
			name: "unknown event",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lockEventSQL).WithArgs(int64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"max_teams", "registered_teams"}))
				mock.ExpectRollback()
			},
			wantErr: ErrEventNotFound,
		},
		{
			name: "lost connection",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lockEventSQL).WithArgs(int64(7)).WillReturnError(context.DeadlineExceeded)
				mock.ExpectRollback()
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newMockRepo(t)
			tt.expect(mock)

			if _, err := r.CreateTeamTx(context.Background(), mockTeam()); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestPostgres_DeleteTeamTx(t *testing.T) {
	deleteSQL := `DELETE FROM teams WHERE id = \$1 RETURNING event_id`
	decrementSQL := `SET registered_teams = GREATEST\(registered_teams - 1, 0\)`

	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "frees the slot",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(deleteSQL).WithArgs(int64(11)).
					WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(7))
				mock.ExpectExec(decrementSQL).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unknown team",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(deleteSQL).WithArgs(int64(11)).WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
				mock.ExpectRollback()
			},
			wantErr: ErrTeamNotFound,
		},
		{
			name: "decrement fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(deleteSQL).WithArgs(int64(11)).
					WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(7))
				mock.ExpectExec(decrementSQL).WithArgs(int64(7)).WillReturnError(context.Canceled)
				mock.ExpectRollback()
			},
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newMockRepo(t)
			tt.expect(mock)

			if err := r.DeleteTeamTx(context.Background(), 11); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestPostgres_UpdatePaymentStatusTx(t *testing.T) {
	lockSQL := `SELECT payment_status FROM teams WHERE id = \$1 FOR UPDATE`
	updateSQL := `UPDATE teams SET payment_status = \$2, verified_by = \$3, verified_at = \$4, verification_notes = \$5`
	auditSQL := `INSERT INTO payment_audit`
	at := time.Date(2026, 6, 2, 9, 30, 0, 0, time.UTC)
	upd := model.PaymentUpdate{Status: model.PaymentVerified, VerifiedBy: 3, VerifiedAt: at, Notes: "UTR matched"}

	t.Run("audited", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow("pending"))
		mock.ExpectExec(updateSQL).WithArgs(int64(11), model.PaymentVerified, int64(3), at, "UTR matched").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(auditSQL).WithArgs(int64(11), model.PaymentPending, model.PaymentVerified, int64(3), "UTR matched", at).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		prev, err := r.UpdatePaymentStatusTx(context.Background(), 11, upd)
		if err != nil {
			t.Fatalf("UpdatePaymentStatusTx: %v", err)
		}
		if prev != model.PaymentPending {
			t.Errorf("previous = %q, want pending", prev)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("audit insert fails", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow("pending"))
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(auditSQL).WillReturnError(errors.New("violates foreign key constraint"))
		mock.ExpectRollback()

		if _, err := r.UpdatePaymentStatusTx(context.Background(), 11, upd); err == nil {
			t.Fatal("expected an error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("unknown team", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(11)).WillReturnRows(sqlmock.NewRows([]string{"payment_status"}))
		mock.ExpectRollback()

		if _, err := r.UpdatePaymentStatusTx(context.Background(), 11, upd); !errors.Is(err, ErrTeamNotFound) {
			t.Fatalf("err = %v, want ErrTeamNotFound", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestPostgres_UpdateTeamTx(t *testing.T) {
	lockSQL := `SELECT e.id FROM events e JOIN teams t ON t.event_id = e.id WHERE t.id = \$1 FOR UPDATE OF e`
	updateSQL := regexp.QuoteMeta(`UPDATE teams SET name = $2, transaction_reference = $3`)
	created := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	teamCols := []string{
		"id", "event_id", "name", "payment_status", "transaction_reference", "verified_by",
		"verified_at", "verification_notes", "created_at", "updated_at",
	}

	team := mockTeam()
	team.ID = 11
	team.Name = "Rockets 2"
	team.Members = team.Members[:1]

	t.Run("rewrites members and links", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(11)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectQuery(duplicateSQL).WithArgs(int64(7), int64(11), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"email"}))
		mock.ExpectQuery(updateSQL).WithArgs(int64(11), "Rockets 2", "").
			WillReturnRows(sqlmock.NewRows(teamCols).
				AddRow(11, 7, "Rockets 2", "not_required", "", nil, nil, "", created, created.Add(time.Hour)))
		mock.ExpectExec(`DELETE FROM team_members WHERE team_id = \$1`).WithArgs(int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(insertMemberSQL).WithArgs(int64(11), 0, "Lead", "lead@x.io", "", "", true).
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectExec(`DELETE FROM student_registrations WHERE team_id = \$1`).WithArgs(int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(linkStudentSQL).WithArgs(int64(7), int64(11), "Rockets 2", "leader", "lead@x.io").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := r.UpdateTeamTx(context.Background(), team)
		if err != nil {
			t.Fatalf("UpdateTeamTx: %v", err)
		}
		if got.Name != "Rockets 2" || len(got.Members) != 1 || got.PaymentStatus != model.PaymentNotRequired {
			t.Errorf("unexpected team %+v", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("member already on another team", func(t *testing.T) {
		r, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(11)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectQuery(duplicateSQL).WithArgs(int64(7), int64(11), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("lead@x.io"))
		mock.ExpectRollback()

		if _, err := r.UpdateTeamTx(context.Background(), team); !errors.Is(err, ErrDuplicateMember) {
			t.Fatalf("err = %v, want ErrDuplicateMember", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}
