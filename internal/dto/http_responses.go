package dto

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"hackhub/internal/model"
	"hackhub/internal/service"
	"hackhub/pkg/validator"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code   string       `json:"code"`
	Desc   string       `json:"desc"`
	Fields []FieldError `json:"fields,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type EventResponse struct {
	model.Event
	Status             model.EventStatus `json:"status"`
	AvailableSlots     int               `json:"available_slots"`
	IsRegistrationOpen bool              `json:"is_registration_open"`
}

func NewEventResponse(v *service.EventView) EventResponse {
	return EventResponse{
		Event:              v.Event,
		Status:             v.Status,
		AvailableSlots:     v.AvailableSlots,
		IsRegistrationOpen: v.IsRegistrationOpen,
	}
}

func NewEventResponses(views []service.EventView) []EventResponse {
	out := make([]EventResponse, 0, len(views))
	for i := range views {
		out = append(out, NewEventResponse(&views[i]))
	}
	return out
}

// NewPublicEventResponse hides the owner and the share token from anonymous callers.
func NewPublicEventResponse(v *service.EventView) EventResponse {
	r := NewEventResponse(v)
	r.ManagerID = 0
	r.ShareToken = ""
	return r
}

func NewPublicEventResponses(views []service.EventView) []EventResponse {
	out := make([]EventResponse, 0, len(views))
	for i := range views {
		out = append(out, NewPublicEventResponse(&views[i]))
	}
	return out
}

type StatsResponse struct {
	TotalTeams         int                         `json:"total_teams"`
	SpotsLeft          int                         `json:"spots_left"`
	RegistrationStatus string                      `json:"registration_status"`
	EventStatus        model.EventStatus           `json:"event_status"`
	Payments           map[model.PaymentStatus]int `json:"payments"`
}

func NewStatsResponse(s *service.EventStats) StatsResponse {
	return StatsResponse{
		TotalTeams:         s.TotalTeams,
		SpotsLeft:          s.SpotsLeft,
		RegistrationStatus: s.RegistrationStatus,
		EventStatus:        s.EventStatus,
		Payments:           s.Payments,
	}
}

type ShareLinkResponse struct {
	EventID    int64  `json:"event_id"`
	ShareToken string `json:"share_token"`
	Path       string `json:"path"`
}

type ManagerAuthResponse struct {
	Manager *model.Manager `json:"manager"`
	Token   string         `json:"token"`
}

type StudentAuthResponse struct {
	Student *model.Student `json:"student"`
	Token   string         `json:"token"`
}

type StudentProfileResponse struct {
	Student       *model.Student              `json:"student"`
	Registrations []model.StudentRegistration `json:"registrations"`
}

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func FieldIncorrectError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldIncorrect, "Field '"+fieldName+"' is incorrect")
}

func InvalidJSONError(c *ginext.Context) {
	BadResponseError(c, FieldBadFormat, "Invalid JSON format")
}

// ValidationError writes the field list produced by pkg/validator.
func ValidationError(c *ginext.Context, err error) {
	var verrs validator.Errors
	if !errors.As(err, &verrs) {
		BadResponseError(c, FieldIncorrect, err.Error())
		return
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field, Message: fe.Message})
	}
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Error:  &Error{Code: service.CodeValidation, Desc: "request failed validation", Fields: fields},
	})
}

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindAdmission:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindConflict:
		return http.StatusConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ServiceError writes err in the error envelope. Internal failures are logged
// and their detail is only exposed when debug is set.
func ServiceError(c *ginext.Context, log *zerolog.Logger, err error, debug bool) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = &service.Error{Kind: service.KindInternal, Code: service.CodeInternal, Err: err}
	}

	status := statusFor(svcErr.Kind)
	switch {
	case status == http.StatusServiceUnavailable:
		log.Warn().Err(err).Str("path", c.FullPath()).Msg("storage unavailable")
	case status >= http.StatusInternalServerError:
		log.Error().Err(err).Str("path", c.FullPath()).Str("code", svcErr.Code).Msg("request failed")
	}

	body := &Error{Code: svcErr.Code, Desc: svcErr.Message}
	if svcErr.Kind == service.KindInternal {
		body.Code = ServiceUnavailable
		body.Desc = InternalError
		if debug && svcErr.Err != nil {
			body.Detail = svcErr.Err.Error()
		}
	}
	for _, fe := range svcErr.Fields {
		body.Fields = append(body.Fields, FieldError{Field: fe.Field, Message: fe.Message})
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "5")
	}
	c.JSON(status, Response{Status: "error", Error: body})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
