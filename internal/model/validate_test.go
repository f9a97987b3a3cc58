package model

import (
	"testing"
	"time"
)

func validEvent() *Event {
	start := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	return &Event{
		Title:                "Hack Night",
		StartDate:            start,
		EndDate:              start.Add(36 * time.Hour),
		RegistrationDeadline: start.Add(-48 * time.Hour),
		MaxTeams:             20,
		MinTeamSize:          2,
		MaxTeamSize:          4,
	}
}

func hasField(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *Event)
		field  string
	}{
		{name: "valid", mutate: func(e *Event) {}},
		{name: "missing title", mutate: func(e *Event) { e.Title = "  " }, field: "title"},
		{name: "end before start", mutate: func(e *Event) { e.EndDate = e.StartDate.Add(-time.Hour) }, field: "end_date"},
		{name: "deadline after end", mutate: func(e *Event) { e.RegistrationDeadline = e.EndDate.Add(time.Hour) }, field: "registration_deadline"},
		{name: "deadline after start", mutate: func(e *Event) { e.RegistrationDeadline = e.StartDate.Add(time.Hour) }, field: "registration_deadline"},
		{name: "deadline at start", mutate: func(e *Event) { e.RegistrationDeadline = e.StartDate }},
		{name: "zero capacity", mutate: func(e *Event) { e.MaxTeams = 0 }, field: "max_teams"},
		{name: "min size zero", mutate: func(e *Event) { e.MinTeamSize = 0 }, field: "min_team_size"},
		{name: "max below min", mutate: func(e *Event) { e.MaxTeamSize = 1 }, field: "max_team_size"},
		{name: "negative fee", mutate: func(e *Event) { e.EntryFee = -5 }, field: "entry_fee"},
		{name: "fee without upi", mutate: func(e *Event) { e.EntryFee = 100 }, field: "payment_details.collection_id"},
		{name: "capacity below registered", mutate: func(e *Event) { e.RegisteredTeams = 25 }, field: "max_teams"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			errs := ValidateEvent(e)
			if tt.field == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if !hasField(errs, tt.field) {
				t.Errorf("expected error on %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateEvent_FeeWithCollectionID(t *testing.T) {
	e := validEvent()
	e.EntryFee = 100
	e.Payment.CollectionID = "club@upi"
	if errs := ValidateEvent(e); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestCoreFieldsChanged(t *testing.T) {
	before := validEvent()
	after := *before
	after.Title = "Renamed"
	after.MaxTeamSize = 5
	after.EndDate = after.EndDate.Add(time.Hour)

	got := CoreFieldsChanged(before, &after)
	want := map[string]bool{"end_date": true, "max_team_size": true}
	if len(got) != len(want) {
		t.Fatalf("CoreFieldsChanged = %v, want keys %v", got, want)
	}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected changed field %q", f)
		}
	}
}

func TestCoreFieldsLocked(t *testing.T) {
	e := validEvent()
	beforeStart := e.StartDate.Add(-time.Hour)
	afterStart := e.StartDate.Add(time.Hour)

	tests := []struct {
		name       string
		published  bool
		registered int
		now        time.Time
		want       bool
	}{
		{name: "draft before start", published: false, now: beforeStart, want: false},
		{name: "draft after start", published: false, now: afterStart, want: false},
		{name: "published no teams before start", published: true, now: beforeStart, want: false},
		{name: "published with teams", published: true, registered: 1, now: beforeStart, want: true},
		{name: "published after start", published: true, now: afterStart, want: true},
		{name: "draft with teams", published: false, registered: 2, now: beforeStart, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := *e
			ev.IsPublished = tt.published
			ev.RegisteredTeams = tt.registered
			if got := CoreFieldsLocked(&ev, tt.now); got != tt.want {
				t.Errorf("CoreFieldsLocked = %v, want %v", got, tt.want)
			}
		})
	}
}
