package dto

import (
	"time"

	"hackhub/internal/model"
	"hackhub/internal/service"
)

type VenueRequest struct {
	Name    string `json:"name" validate:"max=200"`
	Address string `json:"address" validate:"max=500"`
	City    string `json:"city" validate:"max=100"`
}

type PaymentDetailsRequest struct {
	CollectionID string `json:"collection_id" validate:"omitempty,upi"`
	PayeeName    string `json:"payee_name" validate:"max=200"`
	Instructions string `json:"instructions" validate:"max=2000"`
}

// EventRequest is the body of POST /events and PUT /events/:id.
type EventRequest struct {
	Title                string                `json:"title" validate:"required,max=200"`
	Description          string                `json:"description" validate:"max=5000"`
	StartDate            time.Time             `json:"start_date" validate:"required"`
	EndDate              time.Time             `json:"end_date" validate:"required"`
	RegistrationDeadline time.Time             `json:"registration_deadline" validate:"required"`
	Venue                VenueRequest          `json:"venue"`
	Rules                []string              `json:"rules" validate:"max=50,dive,max=500"`
	EntryFee             int64                 `json:"entry_fee" validate:"gte=0"`
	MaxTeams             int                   `json:"max_teams" validate:"required,gt=0"`
	MinTeamSize          int                   `json:"min_team_size" validate:"required,gte=1"`
	MaxTeamSize          int                   `json:"max_team_size" validate:"required,gte=1"`
	Departments          []string              `json:"departments" validate:"dive,required,max=100"`
	PaymentDetails       PaymentDetailsRequest `json:"payment_details"`
	IsPublished          bool                  `json:"is_published"`
}

func (r EventRequest) ToModel() *model.Event {
	return &model.Event{
		Title:                r.Title,
		Description:          r.Description,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		RegistrationDeadline: r.RegistrationDeadline,
		Venue:                model.Venue{Name: r.Venue.Name, Address: r.Venue.Address, City: r.Venue.City},
		Rules:                r.Rules,
		EntryFee:             r.EntryFee,
		MaxTeams:             r.MaxTeams,
		MinTeamSize:          r.MinTeamSize,
		MaxTeamSize:          r.MaxTeamSize,
		Departments:          r.Departments,
		Payment: model.PaymentDetails{
			CollectionID: r.PaymentDetails.CollectionID,
			PayeeName:    r.PaymentDetails.PayeeName,
			Instructions: r.PaymentDetails.Instructions,
		},
		IsPublished: r.IsPublished,
	}
}

type MemberRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"required,email"`
	RegisterNumber string `json:"register_number" validate:"max=50"`
	Phone          string `json:"phone" validate:"omitempty,phone"`
	IsLeader       bool   `json:"is_leader"`
}

// RegisterTeamRequest only checks shape. Team size and leader rules belong to admission.
type RegisterTeamRequest struct {
	TeamName             string          `json:"team_name" validate:"required,max=200"`
	Members              []MemberRequest `json:"members" validate:"dive"`
	TransactionReference string          `json:"transaction_reference" validate:"max=100"`
}

func (r RegisterTeamRequest) ToInput() service.RegistrationInput {
	members := make([]model.Member, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, model.Member{
			Name:           m.Name,
			Email:          m.Email,
			RegisterNumber: m.RegisterNumber,
			Phone:          m.Phone,
			IsLeader:       m.IsLeader,
		})
	}
	return service.RegistrationInput{
		TeamName:             r.TeamName,
		Members:              members,
		TransactionReference: r.TransactionReference,
	}
}

type PaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// UpdateTeamRequest replaces a team wholesale. An empty transaction_reference keeps the stored one.
type UpdateTeamRequest = RegisterTeamRequest

type ManagerRegisterRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
	Organization string `json:"organization" validate:"required,max=200"`
	Department   string `json:"department" validate:"required,max=100"`
	Role         string `json:"role" validate:"omitempty,oneof=professor hod coordinator other"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
}

func (r ManagerRegisterRequest) ToSignup() service.ManagerSignup {
	return service.ManagerSignup{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		Organization: r.Organization,
		Department:   r.Department,
		Role:         model.ManagerRole(r.Role),
		Phone:        r.Phone,
	}
}

type StudentRegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	College  string `json:"college" validate:"required,max=200"`
}

func (r StudentRegisterRequest) ToSignup() service.StudentSignup {
	return service.StudentSignup{Name: r.Name, Email: r.Email, Password: r.Password, College: r.College}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
