package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"hackhub/internal/model"
)

func TestEventLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)

	tests := []struct {
		at   time.Duration
		want model.EventStatus
		open bool
	}{
		{at: 0, want: model.StatusPublished, open: true},
		{at: 13 * time.Hour, want: model.StatusRegistrationClosed},
		{at: 48 * time.Hour, want: model.StatusOngoing},
		{at: 96 * time.Hour, want: model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			f.clock.Set(T.Add(tt.at))
			got, err := f.svc.GetEvent(context.Background(), 0, ev.ID)
			if err != nil {
				t.Fatalf("GetEvent: %v", err)
			}
			if got.Status != tt.want || got.IsRegistrationOpen != tt.open {
				t.Errorf("status = %s open = %v, want %s open = %v", got.Status, got.IsRegistrationOpen, tt.want, tt.open)
			}
		})
	}
}

func TestGetEvent_IdempotentRead(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")
	ev := f.event(t, mgr, nil)
	if _, err := f.svc.RegisterTeam(context.Background(), ev.ID, team("a", 2)); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}

	first, err := f.svc.GetEvent(context.Background(), 0, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	second, _ := f.svc.GetEvent(context.Background(), 0, ev.ID)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reads differ:\n%+v\n%+v", first, second)
	}
	if first.AvailableSlots != 9 {
		t.Errorf("available slots = %d, want 9", first.AvailableSlots)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)
	mgr := f.manager(t, "owner@uni.edu")

	e := baseEvent()
	e.EntryFee = 100
	e.MinTeamSize = 5
	_, err := f.svc.CreateEvent(context.Background(), mgr, e)
	wantKind(t, err, KindValidation)

	var svcErr *Error
	if !errors.As(err, &svcErr) || len(svcErr.Fields) != 2 {
		t.Fatalf("fields = %+v, want collection id and team size", svcErr)
	}

	ok := f.event(t, mgr, func(e *model.Event) { e.Departments = nil })
	if len(ok.ShareToken) != 32 {
		t.Errorf("share token %q is not a hyphenless uuid", ok.ShareToken)
	}
	if !reflect.DeepEqual(ok.Departments, []string{"All"}) {
		t.Errorf("departments = %v, want [All]", ok.Departments)
	}
}

func TestUpdateEvent_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	intruder := f.manager(t, "intruder@uni.edu")

	draft := f.event(t, mgr, func(e *model.Event) { e.IsPublished = false })
	edit := draft.Event
	edit.StartDate = edit.StartDate.Add(time.Hour)
	if _, err := f.svc.UpdateEvent(ctx, mgr, draft.ID, &edit); err != nil {
		t.Fatalf("draft core edit: %v", err)
	}

	ev := f.event(t, mgr, func(e *model.Event) { e.MaxTeams = 3 })
	_, err := f.svc.UpdateEvent(ctx, intruder, ev.ID, &ev.Event)
	wantCode(t, err, CodeForbidden)

	if _, err := f.svc.RegisterTeam(ctx, ev.ID, team("a", 2)); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	if _, err := f.svc.RegisterTeam(ctx, ev.ID, team("b", 2)); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}

	edit = ev.Event
	edit.MaxTeamSize = 6
	_, err = f.svc.UpdateEvent(ctx, mgr, ev.ID, &edit)
	wantCode(t, err, CodeCoreFieldsLocked)

	edit = ev.Event
	edit.MaxTeams = 1
	_, err = f.svc.UpdateEvent(ctx, mgr, ev.ID, &edit)
	wantKind(t, err, KindValidation)

	edit = ev.Event
	edit.Title = "Code Sprint Finals"
	edit.MaxTeams = 5
	got, err := f.svc.UpdateEvent(ctx, mgr, ev.ID, &edit)
	if err != nil {
		t.Fatalf("non-core edit: %v", err)
	}
	if got.Title != "Code Sprint Finals" || got.RegisteredTeams != 2 || got.AvailableSlots != 3 || got.ShareToken != ev.ShareToken {
		t.Errorf("updated = %+v", got)
	}
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	intruder := f.manager(t, "intruder@uni.edu")
	ev := f.event(t, mgr, nil)
	created, _ := f.svc.RegisterTeam(ctx, ev.ID, team("a", 2))

	wantCode(t, f.svc.DeleteEvent(ctx, intruder, ev.ID), CodeForbidden)
	if err := f.svc.DeleteEvent(ctx, mgr, ev.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := f.repo.GetTeamByID(ctx, created.ID); err == nil {
		t.Error("team survived its event")
	}

	started := f.event(t, mgr, nil)
	f.clock.Set(T.Add(25 * time.Hour))
	wantCode(t, f.svc.DeleteEvent(ctx, mgr, started.ID), CodeEventAlreadyStarted)
}

func TestPublicationAndShareLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	draft := f.event(t, mgr, func(e *model.Event) { e.IsPublished = false })

	_, err := f.svc.GetEvent(ctx, 0, draft.ID)
	wantCode(t, err, CodeEventNotFound)
	if _, err := f.svc.GetEvent(ctx, mgr, draft.ID); err != nil {
		t.Errorf("owner cannot see own draft: %v", err)
	}
	_, err = f.svc.PublicEvent(ctx, draft.ShareToken)
	wantCode(t, err, CodeEventNotFound)

	pub, err := f.svc.SetPublished(ctx, mgr, draft.ID, true)
	if err != nil || pub.Status != model.StatusPublished {
		t.Fatalf("publish: %v %+v", err, pub)
	}
	if _, err := f.svc.PublicEvent(ctx, draft.ShareToken); err != nil {
		t.Errorf("published event not public: %v", err)
	}

	if _, err := f.svc.RegisterTeam(ctx, draft.ID, team("a", 2)); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	_, err = f.svc.SetPublished(ctx, mgr, draft.ID, false)
	wantCode(t, err, CodeEventHasTeams)

	rotated, err := f.svc.RegenerateShareLink(ctx, mgr, draft.ID)
	if err != nil {
		t.Fatalf("RegenerateShareLink: %v", err)
	}
	if rotated.ShareToken == draft.ShareToken {
		t.Error("share token unchanged")
	}
	_, err = f.svc.PublicEvent(ctx, draft.ShareToken)
	wantCode(t, err, CodeEventNotFound)
	if _, err := f.svc.PublicEvent(ctx, rotated.ShareToken); err != nil {
		t.Errorf("new token does not resolve: %v", err)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.manager(t, "owner@uni.edu")
	other := f.manager(t, "other@uni.edu")

	later := f.event(t, mgr, func(e *model.Event) {
		e.Title = "Later"
		e.StartDate = T.Add(10 * 24 * time.Hour)
		e.EndDate = T.Add(11 * 24 * time.Hour)
		e.RegistrationDeadline = T.Add(9 * 24 * time.Hour)
		e.Departments = []string{"ECE"}
	})
	sooner := f.event(t, mgr, func(e *model.Event) { e.Title = "Sooner"; e.Departments = []string{"CSE"} })
	f.event(t, mgr, func(e *model.Event) { e.Title = "Draft"; e.IsPublished = false })
	f.event(t, other, func(e *model.Event) {
		e.Title = "Closed"
		e.RegistrationDeadline = T.Add(-time.Hour)
	})

	public, err := f.svc.ListPublicEvents(ctx)
	if err != nil {
		t.Fatalf("ListPublicEvents: %v", err)
	}
	if len(public) != 2 || public[0].ID != sooner.ID || public[1].ID != later.ID {
		t.Errorf("public = %v, want Sooner then Later", titles(public))
	}

	cse, _ := f.svc.ListEvents(ctx, ListFilter{Department: "CSE"})
	if len(cse) != 2 {
		t.Errorf("CSE listing = %v, want Sooner and Closed (All)", titles(cse))
	}
	closed, _ := f.svc.ListEvents(ctx, ListFilter{Status: model.StatusRegistrationClosed})
	if len(closed) != 1 || closed[0].Title != "Closed" {
		t.Errorf("closed listing = %v", titles(closed))
	}
	_, err = f.svc.ListEvents(ctx, ListFilter{Status: "bogus"})
	wantKind(t, err, KindValidation)

	mine, _ := f.svc.ListManagerEvents(ctx, mgr)
	if len(mine) != 3 {
		t.Errorf("manager events = %v, want 3 including the draft", titles(mine))
	}
}

func TestEventStats(t *testing.T) {
	f, mgr, ev, created := paidFixture(t)
	ctx := context.Background()
	in := team("q", 2)
	in.TransactionReference = "UPI-43"
	if _, err := f.svc.RegisterTeam(ctx, ev.ID, in); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	if _, err := f.svc.VerifyPayment(ctx, mgr, created.ID, model.PaymentVerified, ""); err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}

	stats, err := f.svc.EventStats(ctx, mgr, ev.ID)
	if err != nil {
		t.Fatalf("EventStats: %v", err)
	}
	if stats.TotalTeams != 2 || stats.SpotsLeft != 8 || stats.RegistrationStatus != "Open" || stats.EventStatus != model.StatusPublished {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Payments[model.PaymentVerified] != 1 || stats.Payments[model.PaymentPending] != 1 {
		t.Errorf("payments = %v", stats.Payments)
	}
}

func titles(views []EventView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Title)
	}
	return out
}
