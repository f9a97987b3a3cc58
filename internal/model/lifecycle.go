package model

import "time"

type EventStatus string

const (
	StatusDraft              EventStatus = "draft"
	StatusPublished          EventStatus = "published"
	StatusRegistrationClosed EventStatus = "registration_closed"
	StatusOngoing            EventStatus = "ongoing"
	StatusCompleted          EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusRegistrationClosed, StatusOngoing, StatusCompleted:
		return true
	}
	return false
}

// Status derives the lifecycle state from the stored dates and counter.
// It is never persisted; call it on every read.
//
// The registration_closed override only applies before the start date: once an
// event is ongoing or completed the date-based state wins.
func (e *Event) Status(now time.Time) EventStatus {
	if !e.IsPublished {
		return StatusDraft
	}
	switch {
	case now.After(e.EndDate):
		return StatusCompleted
	case !now.Before(e.StartDate):
		return StatusOngoing
	}
	if e.registrationClosed(now) {
		return StatusRegistrationClosed
	}
	return StatusPublished
}

func (e *Event) registrationClosed(now time.Time) bool {
	return now.After(e.RegistrationDeadline) || e.RegisteredTeams >= e.MaxTeams
}

// IsRegistrationOpen reports whether a new team could be admitted right now.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	return e.Status(now) == StatusPublished
}

func (e *Event) AvailableSlots() int {
	if left := e.MaxTeams - e.RegisteredTeams; left > 0 {
		return left
	}
	return 0
}

func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartDate)
}

func (e *Event) RequiresPayment() bool {
	return e.EntryFee > 0
}

// AcceptsDepartment reports whether dept is eligible. "All" opens the event to everyone.
func (e *Event) AcceptsDepartment(dept string) bool {
	for _, d := range e.Departments {
		if d == "All" || d == dept {
			return true
		}
	}
	return false
}
