package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/marv/gateway/internal/domain/calendar"
	"github.com/marv/gateway/internal/interfaces/http/dto"
)

const (
	// RequestIDKey is the header carrying the request ID
	RequestIDKey = "X-Request-ID"
	// requestIDContextKey is where RequestID stores the ID in the gin context
	requestIDContextKey = "request_id"
)

// SetupValidator configures the validator with custom tags:
//
//	serial_digits  a digit string, Persian and Arabic-Indic digits allowed
//	ymd            a valid Gregorian YYYY-MM-DD date
//	jalaali_ymd    a valid Jalaali YYYY-MM-DD date
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations adds the gateway's tags and JSON field naming to v
func RegisterValidations(v *validator.Validate) {
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("serial_digits", validateSerialDigits)
	_ = v.RegisterValidation("ymd", validateGregorianDate)
	_ = v.RegisterValidation("jalaali_ymd", validateJalaaliDate)
}

func validateSerialDigits(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(calendar.ToLatinDigits(fl.Field().String()))
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateGregorianDate(fl validator.FieldLevel) bool {
	d, err := calendar.ParseDate(fl.Field().String())
	return err == nil && calendar.IsValidGregorianDate(d.Year, d.Month, d.Day)
}

func validateJalaaliDate(fl validator.FieldLevel) bool {
	d, err := calendar.ParseDate(fl.Field().String())
	return err == nil && calendar.IsValidJalaaliDate(d.Year, d.Month, d.Day)
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestIDFromContext(c)))
}

// GetRequestID returns the request ID set by RequestID, falling back to the header
func GetRequestID(c *gin.Context) string {
	return getRequestIDFromContext(c)
}

func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(requestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "serial_digits":
		return "Must contain only digits"
	case "ymd":
		return "Must be a valid YYYY-MM-DD date"
	case "jalaali_ymd":
		return "Must be a valid Persian YYYY-MM-DD date"
	default:
		return "Invalid value"
	}
}
