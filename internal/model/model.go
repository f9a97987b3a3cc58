package model

import "time"

type Venue struct {
	Name    string `db:"venue_name" json:"name"`
	Address string `db:"venue_address" json:"address"`
	City    string `db:"venue_city" json:"city"`
}

// PaymentDetails tells teams where to send the entry fee. CollectionID is a UPI id.
type PaymentDetails struct {
	CollectionID string `db:"payment_collection_id" json:"collection_id,omitempty"`
	PayeeName    string `db:"payment_payee_name" json:"payee_name,omitempty"`
	Instructions string `db:"payment_instructions" json:"instructions,omitempty"`
}

type Event struct {
	ID                   int64          `db:"id" json:"id"`
	ManagerID            int64          `db:"manager_id" json:"manager_id"`
	Title                string         `db:"title" json:"title"`
	Description          string         `db:"description" json:"description"`
	StartDate            time.Time      `db:"start_date" json:"start_date"`
	EndDate              time.Time      `db:"end_date" json:"end_date"`
	RegistrationDeadline time.Time      `db:"registration_deadline" json:"registration_deadline"`
	Venue                Venue          `json:"venue"`
	Rules                []string       `db:"rules" json:"rules"`
	EntryFee             int64          `db:"entry_fee" json:"entry_fee"`
	MaxTeams             int            `db:"max_teams" json:"max_teams"`
	MinTeamSize          int            `db:"min_team_size" json:"min_team_size"`
	MaxTeamSize          int            `db:"max_team_size" json:"max_team_size"`
	Departments          []string       `db:"departments" json:"departments"`
	Payment              PaymentDetails `json:"payment_details"`
	IsPublished          bool           `db:"is_published" json:"is_published"`
	ShareToken           string         `db:"share_token" json:"share_token,omitempty"`
	RegisteredTeams      int            `db:"registered_teams" json:"registered_teams"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// EventFilter narrows ListEvents. Zero values mean "any".
type EventFilter struct {
	ManagerID     int64
	Department    string
	PublishedOnly bool
}

type Member struct {
	Name           string `db:"name" json:"name"`
	Email          string `db:"email" json:"email"`
	RegisterNumber string `db:"register_number" json:"register_number"`
	Phone          string `db:"phone" json:"phone"`
	IsLeader       bool   `db:"is_leader" json:"is_leader"`
}

type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentVerified    PaymentStatus = "verified"
	PaymentRejected    PaymentStatus = "rejected"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentNotRequired, PaymentPending, PaymentVerified, PaymentRejected:
		return true
	}
	return false
}

type Team struct {
	ID                   int64         `db:"id" json:"id"`
	EventID              int64         `db:"event_id" json:"event_id"`
	Name                 string        `db:"name" json:"name"`
	Members              []Member      `json:"members"`
	PaymentStatus        PaymentStatus `db:"payment_status" json:"payment_status"`
	TransactionReference string        `db:"transaction_reference" json:"transaction_reference,omitempty"`
	VerifiedBy           *int64        `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt           *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	VerificationNotes    string        `db:"verification_notes" json:"verification_notes,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// Leader returns the flagged leader, falling back to the first member.
func (t *Team) Leader() (Member, bool) {
	for _, m := range t.Members {
		if m.IsLeader {
			return m, true
		}
	}
	if len(t.Members) > 0 {
		return t.Members[0], true
	}
	return Member{}, false
}

// PaymentUpdate is one verification decision applied to a team.
type PaymentUpdate struct {
	Status     PaymentStatus
	VerifiedBy int64
	VerifiedAt time.Time
	Notes      string
}

// PaymentAudit is an append-only record of a payment status change.
type PaymentAudit struct {
	ID             int64         `db:"id" json:"id"`
	TeamID         int64         `db:"team_id" json:"team_id"`
	PreviousStatus PaymentStatus `db:"previous_status" json:"previous_status"`
	NewStatus      PaymentStatus `db:"new_status" json:"new_status"`
	VerifiedBy     int64         `db:"verified_by" json:"verified_by"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

type ManagerRole string

const (
	RoleProfessor   ManagerRole = "professor"
	RoleHOD         ManagerRole = "hod"
	RoleCoordinator ManagerRole = "coordinator"
	RoleOther       ManagerRole = "other"
)

type Manager struct {
	ID           int64       `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Organization string      `db:"organization" json:"organization"`
	Department   string      `db:"department" json:"department"`
	Role         ManagerRole `db:"role" json:"role"`
	Phone        string      `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

type Student struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	College      string    `db:"college" json:"college"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentRegistration is the dashboard copy of a team membership. The team row is authoritative.
type StudentRegistration struct {
	StudentID    int64     `db:"student_id" json:"student_id"`
	EventID      int64     `db:"event_id" json:"event_id"`
	TeamID       int64     `db:"team_id" json:"team_id"`
	TeamName     string    `db:"team_name" json:"team_name"`
	Role         string    `db:"role" json:"role"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}
