package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds JSON request bodies
const MaxBodyBytes = 1 << 20

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report JSON field names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// ErrMalformedBody wraps JSON decoding failures
var ErrMalformedBody = errors.New("malformed request body")

// DecodeAndValidate decodes a JSON request body, rejecting unknown fields and
// trailing data, then validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", ErrMalformedBody)
	}
	return ValidateRequest(v)
}

// RespondWithDecodeError answers a DecodeAndValidate failure with a 400
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		RespondWithValidationErrors(w, FormatValidationErrors(err))
		return
	}
	RespondWithError(w, http.StatusBadRequest, err.Error())
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			out = append(out, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return out
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value must be at least " + e.Param()
	case "max":
		return "Value must be at most " + e.Param()
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "oneof":
		return "Value must be one of: " + e.Param()
	case "uuid":
		return "Invalid identifier"
	default:
		return "Invalid value"
	}
}
