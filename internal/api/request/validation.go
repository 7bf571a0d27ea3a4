package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verdane/fleetops/internal/scheduler"
	"github.com/verdane/fleetops/internal/timezone"
)

var validate = validator.New()

var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,62}$`)

func init() {
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return nameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return scheduler.ValidateExpr(fl.Field().String()) == nil
	})
	validate.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		_, err := timezone.Load(fl.Field().String())
		return err == nil
	})
}

// Decode unmarshals the request body into v and validates it. The returned
// error text is safe to hand back to the API caller.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return Validate(v)
}

// Validate runs struct validation, folding field errors into one readable
// message per offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation error: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("validation error: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "cron":
		return fmt.Sprintf("%s is not a valid cron expression", fe.Field())
	case "timezone":
		return fmt.Sprintf("%s is not a recognized IANA timezone", fe.Field())
	case "slug":
		return fmt.Sprintf("%s must start with a letter and contain only lowercase letters, digits, '-' or '_'", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "max", "gte", "lte", "gt", "lt":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}
