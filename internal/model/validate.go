package model

import (
	"fmt"
	"strings"
	"time"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) Error() string {
	return f.Field + ": " + f.Message
}

// ValidateEvent checks the cross-field rules that struct tags cannot express.
func ValidateEvent(e *Event) []FieldError {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(e.Title) == "" {
		add("title", "is required")
	}
	if e.StartDate.IsZero() {
		add("start_date", "is required")
	}
	if e.EndDate.IsZero() {
		add("end_date", "is required")
	}
	if e.RegistrationDeadline.IsZero() {
		add("registration_deadline", "is required")
	}
	if !e.StartDate.IsZero() && !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		add("end_date", "must not be before start_date")
	}
	if !e.RegistrationDeadline.IsZero() && !e.EndDate.IsZero() && e.RegistrationDeadline.After(e.EndDate) {
		add("registration_deadline", "must not be after end_date")
	} else if !e.RegistrationDeadline.IsZero() && !e.StartDate.IsZero() && e.RegistrationDeadline.After(e.StartDate) {
		add("registration_deadline", "must not be after start_date")
	}
	if e.MaxTeams <= 0 {
		add("max_teams", "must be greater than 0")
	}
	if e.MinTeamSize < 1 {
		add("min_team_size", "must be at least 1")
	}
	if e.MaxTeamSize < e.MinTeamSize {
		add("max_team_size", "must be greater than or equal to min_team_size (%d)", e.MinTeamSize)
	}
	if e.EntryFee < 0 {
		add("entry_fee", "must not be negative")
	}
	if e.EntryFee > 0 && strings.TrimSpace(e.Payment.CollectionID) == "" {
		add("payment_details.collection_id", "is required when entry_fee is greater than 0")
	}
	if e.RegisteredTeams > e.MaxTeams {
		add("max_teams", "must not be below the %d teams already registered", e.RegisteredTeams)
	}
	return errs
}

// CoreFieldsChanged lists the fields whose change would retroactively alter the admission rules.
func CoreFieldsChanged(before, after *Event) []string {
	var changed []string
	if !before.StartDate.Equal(after.StartDate) {
		changed = append(changed, "start_date")
	}
	if !before.EndDate.Equal(after.EndDate) {
		changed = append(changed, "end_date")
	}
	if before.MinTeamSize != after.MinTeamSize {
		changed = append(changed, "min_team_size")
	}
	if before.MaxTeamSize != after.MaxTeamSize {
		changed = append(changed, "max_team_size")
	}
	if before.EntryFee != after.EntryFee {
		changed = append(changed, "entry_fee")
	}
	return changed
}

// CoreFieldsLocked reports whether core fields of e may no longer change.
func CoreFieldsLocked(e *Event, now time.Time) bool {
	if !e.IsPublished && e.RegisteredTeams == 0 {
		return false
	}
	return e.HasStarted(now) || e.RegisteredTeams > 0
}
