package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hackhub/internal/model"
	"hackhub/internal/notify"
)

func TestRegister_CapacityUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	const capacity = 5
	ev := f.event(t, mgr, func(e *model.Event) { e.MaxTeams = capacity })

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		refused  int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.RegisterTeam(context.Background(), ev.ID, team(fmt.Sprintf("c%d-", i), 2))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrCapacityExceeded):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != capacity || refused != 30-capacity {
		t.Fatalf("admitted = %d, refused = %d, want %d and %d", admitted, refused, capacity, 30-capacity)
	}
	teams, _ := f.repo.ListTeamsByEvent(context.Background(), ev.ID)
	if len(teams) != capacity {
		t.Errorf("stored teams = %d, want %d", len(teams), capacity)
	}

	_, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("late", 2))
	wantCode(t, err, CodeCapacityExceeded)
}

func TestRegister_DeadlinePassed(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)

	f.clock.Set(T.Add(13 * time.Hour))
	_, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("a", 2))
	wantCode(t, err, CodeDeadlinePassed)

	f.clock.Set(ev.RegistrationDeadline)
	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("b", 2)); err != nil {
		t.Errorf("registration exactly at the deadline: %v", err)
	}
}

func TestRegister_TeamSizeBoundaries(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)

	tests := []struct {
		size    int
		wantErr bool
	}{
		{size: 1, wantErr: true},
		{size: 2},
		{size: 4},
		{size: 5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d members", tt.size), func(t *testing.T) {
			_, err := f.svc.RegisterTeam(context.Background(), ev.ID, team(fmt.Sprintf("s%d-", tt.size), tt.size))
			if tt.wantErr {
				wantCode(t, err, CodeInvalidTeamSize)
				return
			}
			if err != nil {
				t.Fatalf("RegisterTeam: %v", err)
			}
		})
	}
}

func TestRegister_Leader(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)

	none := team("none", 2)
	none.Members[0].IsLeader = false
	_, err := f.svc.RegisterTeam(context.Background(), ev.ID, none)
	wantCode(t, err, CodeNoLeader)

	two := team("two", 3)
	two.Members[1].IsLeader = true
	_, err = f.svc.RegisterTeam(context.Background(), ev.ID, two)
	wantCode(t, err, CodeNoLeader)

	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("one", 2)); err != nil {
		t.Errorf("single leader: %v", err)
	}
}

func TestRegister_DuplicateMember(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, func(e *model.Event) {
		e.EntryFee = 100
		e.Payment.CollectionID = "codesprint@upi"
	})
	other := f.event(t, mgr, nil)

	first := team("dup", 2)
	first.TransactionReference = "UPI-1"
	created, err := f.svc.RegisterTeam(context.Background(), ev.ID, first)
	if err != nil {
		t.Fatalf("first team: %v", err)
	}

	second := team("fresh", 2)
	second.Members[1].Email = "DUP1@uni.edu"
	second.TransactionReference = "UPI-2"
	_, err = f.svc.RegisterTeam(context.Background(), ev.ID, second)
	wantCode(t, err, CodeDuplicateMember)

	within := team("twice", 2)
	within.Members[1].Email = within.Members[0].Email
	within.TransactionReference = "UPI-3"
	_, err = f.svc.RegisterTeam(context.Background(), ev.ID, within)
	wantCode(t, err, CodeDuplicateMember)

	if _, err := f.svc.RegisterTeam(context.Background(), other.ID, team("dup", 2)); err != nil {
		t.Errorf("same members on a different event: %v", err)
	}

	if _, err := f.svc.VerifyPayment(context.Background(), mgr, created.ID, model.PaymentRejected, "no such transfer"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, second); err != nil {
		t.Errorf("member of a rejected team should be free to register again: %v", err)
	}
}

func TestRegister_PaymentGating(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	paid := f.event(t, mgr, func(e *model.Event) {
		e.EntryFee = 100
		e.Payment.CollectionID = "codesprint@upi"
	})
	free := f.event(t, mgr, nil)

	_, err := f.svc.RegisterTeam(context.Background(), paid.ID, team("a", 2))
	wantCode(t, err, CodePaymentRefRequired)

	in := team("b", 2)
	in.TransactionReference = "  UPI-777  "
	got, err := f.svc.RegisterTeam(context.Background(), paid.ID, in)
	if err != nil {
		t.Fatalf("paid registration: %v", err)
	}
	if got.PaymentStatus != model.PaymentPending || got.TransactionReference != "UPI-777" {
		t.Errorf("team = %+v, want pending with trimmed reference", got)
	}

	in = team("c", 2)
	in.TransactionReference = "UPI-888"
	got, err = f.svc.RegisterTeam(context.Background(), free.ID, in)
	if err != nil {
		t.Fatalf("free registration: %v", err)
	}
	if got.PaymentStatus != model.PaymentNotRequired {
		t.Errorf("payment status = %s, want not_required", got.PaymentStatus)
	}
}

func TestCheckAdmission_Order(t *testing.T) {
	e := baseEvent()
	e.MaxTeams = 1
	e.RegisteredTeams = 1
	e.EntryFee = 50

	bad := RegistrationInput{Members: []model.Member{{Email: "x@uni.edu"}}}
	tests := []struct {
		name string
		now  time.Time
		edit func(*model.Event)
		want string
	}{
		{name: "deadline before capacity", now: T.Add(13 * time.Hour), want: CodeDeadlinePassed},
		{name: "capacity before size", now: T, want: CodeCapacityExceeded},
		{name: "size before leader", now: T, edit: func(e *model.Event) { e.RegisteredTeams = 0 }, want: CodeInvalidTeamSize},
		{name: "leader before payment", now: T, edit: func(e *model.Event) { e.RegisteredTeams = 0; e.MinTeamSize = 1 }, want: CodeNoLeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := *e
			if tt.edit != nil {
				tt.edit(&ev)
			}
			wantCode(t, checkAdmission(&ev, nil, bad, tt.now), tt.want)
		})
	}
}

func TestRegisterTeamPublic(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	pub := f.event(t, mgr, nil)
	draft := f.event(t, mgr, func(e *model.Event) { e.IsPublished = false })

	if _, err := f.svc.RegisterTeamPublic(context.Background(), pub.ShareToken, team("tok", 2)); err != nil {
		t.Fatalf("by share token: %v", err)
	}
	if _, err := f.svc.RegisterTeamPublic(context.Background(), fmt.Sprint(pub.ID), team("id", 2)); err != nil {
		t.Fatalf("by id: %v", err)
	}
	_, err := f.svc.RegisterTeamPublic(context.Background(), draft.ShareToken, team("draft", 2))
	wantCode(t, err, CodeEventNotFound)
	_, err = f.svc.RegisterTeamPublic(context.Background(), "no-such-token", team("none", 2))
	wantCode(t, err, CodeEventNotFound)
}

func TestRegister_NotifiesLeaderWithContact(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)

	in := team("n", 3)
	in.Members[0].IsLeader = false
	in.Members[2].IsLeader = true
	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, in); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}

	sent := f.notes.sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	msg := sent[0]
	if msg.Kind != notify.KindRegistrationConfirmed || msg.To != "n2@uni.edu" {
		t.Errorf("message = %+v, want confirmed to the flagged leader", msg)
	}
	if msg.ManagerEmail != "owner@uni.edu" || msg.ManagerPhone == "" || len(msg.Members) != 3 {
		t.Errorf("message missing contact or members: %+v", msg)
	}
}

func TestDeleteTeam(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	intruder := f.manager(t, "intruder@uni.edu")
	ev := f.event(t, mgr, func(e *model.Event) { e.MaxTeams = 1 })

	created, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("a", 2))
	if err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	wantCode(t, f.svc.DeleteTeam(context.Background(), intruder, created.ID), CodeForbidden)

	if err := f.svc.DeleteTeam(context.Background(), mgr, created.ID); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("b", 2)); err != nil {
		t.Fatalf("slot not freed: %v", err)
	}

	f.clock.Set(T.Add(25 * time.Hour))
	teams, _ := f.svc.ListTeams(context.Background(), mgr, ev.ID)
	wantCode(t, f.svc.DeleteTeam(context.Background(), mgr, teams[0].ID), CodeEventAlreadyStarted)
	wantCode(t, f.svc.DeleteTeam(context.Background(), mgr, 9999), CodeTeamNotFound)
}

func TestRegisterTeam_DraftEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	draft := f.event(t, mgr, func(e *model.Event) { e.IsPublished = false })

	_, err := f.svc.RegisterTeam(ctx, draft.ID, team("d", 2))
	wantCode(t, err, CodeEventNotFound)

	got, _ := f.repo.GetEventByID(ctx, draft.ID)
	if got.RegisteredTeams != 0 {
		t.Fatalf("RegisteredTeams = %d, want 0", got.RegisteredTeams)
	}
	edit := draft.Event
	edit.MaxTeamSize = 6
	if _, err := f.svc.UpdateEvent(ctx, mgr, draft.ID, &edit); err != nil {
		t.Errorf("draft core edit after refused registration: %v", err)
	}
}

func TestUpdateTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	intruder := f.manager(t, "intruder@uni.edu")
	ev := f.event(t, mgr, nil)

	a, err := f.svc.RegisterTeam(ctx, ev.ID, team("a", 2))
	if err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	b, err := f.svc.RegisterTeam(ctx, ev.ID, team("b", 2))
	if err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}

	noLeader := members("a", 2)
	noLeader[0].IsLeader = false
	stolen := append(members("a", 1), b.Members[1])

	tests := []struct {
		name    string
		manager int64
		teamID  int64
		in      RegistrationInput
		want    string
	}{
		{name: "not the owner", manager: intruder, teamID: a.ID, in: team("a", 2), want: CodeForbidden},
		{name: "unknown team", manager: mgr, teamID: 9999, in: team("a", 2), want: CodeTeamNotFound},
		{name: "blank name", manager: mgr, teamID: a.ID, in: RegistrationInput{TeamName: " ", Members: members("a", 2)}, want: CodeValidation},
		{name: "too small", manager: mgr, teamID: a.ID, in: team("a", 1), want: CodeInvalidTeamSize},
		{name: "no leader", manager: mgr, teamID: a.ID, in: RegistrationInput{TeamName: "A", Members: noLeader}, want: CodeNoLeader},
		{name: "member of another team", manager: mgr, teamID: a.ID, in: RegistrationInput{TeamName: "A", Members: stolen}, want: CodeDuplicateMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateTeam(ctx, tt.manager, tt.teamID, tt.in)
			wantCode(t, err, tt.want)
		})
	}

	// Registration has closed but the event has not started.
	f.clock.Set(T.Add(13 * time.Hour))
	in := RegistrationInput{TeamName: "  Team A Prime ", Members: members("a", 3)}
	in.Members[2].Email = "  A2-New@Uni.edu "
	got, err := f.svc.UpdateTeam(ctx, mgr, a.ID, in)
	if err != nil {
		t.Fatalf("UpdateTeam: %v", err)
	}
	if got.Name != "Team A Prime" || len(got.Members) != 3 || got.Members[2].Email != "a2-new@uni.edu" {
		t.Errorf("updated team = %+v", got)
	}
	stored, _ := f.repo.GetEventByID(ctx, ev.ID)
	if stored.RegisteredTeams != 2 {
		t.Errorf("RegisteredTeams = %d, want 2", stored.RegisteredTeams)
	}

	f.clock.Set(T.Add(25 * time.Hour))
	_, err = f.svc.UpdateTeam(ctx, mgr, a.ID, team("a", 2))
	wantCode(t, err, CodeEventAlreadyStarted)
}
