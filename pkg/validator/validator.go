package validator

import (
	"context"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var (
	global     *validator.Validate
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
	upiRegex   = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z][a-zA-Z0-9]{1,64}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrInvalidEmail       = "Invalid email address"
	ErrUnknownValidation  = "Unknown validation error"
)

// FieldError describes one failed rule. Field is the JSON path of the offending value.
type FieldError struct {
	Field   string
	Message string
}

// Errors is returned by Validate when at least one rule fails.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Message+": "+fe.Field)
	}
	return strings.Join(parts, "; ")
}

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonTagName)
	_ = v.RegisterValidation("phone", validatePhone)
	_ = v.RegisterValidation("upi", validateUPI)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func validateUPI(fl validator.FieldLevel) bool {
	return upiRegex.MatchString(fl.Field().String())
}

// Validate runs the struct rules and reports every failing field.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	out := make(Errors, 0, len(vErrors))
	for _, ve := range vErrors {
		out = append(out, FieldError{Field: fieldPath(ve.Namespace()), Message: message(ve.Tag())})
	}
	return out
}

// fieldPath drops the top-level struct name: "RegisterTeamRequest.members[0].email" -> "members[0].email".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(tag string) string {
	switch tag {
	case "required":
		return ErrFieldRequired
	case "email":
		return ErrInvalidEmail
	case "max":
		return ErrFieldExceedsMaxLen
	case "min":
		return ErrFieldBelowMinLen
	case "lt", "lte":
		return ErrFieldExceedsMaxVal
	case "gt", "gte":
		return ErrFieldBelowMinVal
	case "oneof", "phone", "upi":
		return ErrInvalidFormat
	default:
		return ErrUnknownValidation
	}
}
