package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	registerOnce    sync.Once
)

const passwordSpecials = "@$!%*?&"

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldMessages maps "<field>.<tag>" to the message shown to clients
var fieldMessages = map[string]string{
	"username.required":       "Username is required",
	"username.username":       "Username must be between 3 and 30 characters and can only contain letters, numbers, and underscores",
	"email.required":          "Please provide a valid email address",
	"email.email":             "Please provide a valid email address",
	"password.required":       "Password is required",
	"password.strongpassword": "Password must be at least 8 characters and contain at least one uppercase letter, one lowercase letter, one number, and one special character",
	"title.required":          "Task title is required",
	"title.max":               "Title cannot exceed 200 characters",
	"description.max":         "Description cannot exceed 1000 characters",
	"dueDate.required":        "Due date is required",
	"dueDate.notpast":         "Due date cannot be in the past",
	"priority.oneof":          "Priority must be one of: low, medium, high, urgent",
	"status.oneof":            "Status must be one of: pending, in-progress, completed, cancelled",
	"role.oneof":              "Role must be one of: admin, manager, user",
	"tags.max":                "A task can have at most 20 tags",
	"tags[].max":              "Each tag cannot exceed 50 characters",
	"text.required":           "Text is required",
	"text.max":                "Text cannot exceed 10000 characters",
	"name.required":           "Team name is required",
	"name.min":                "Team name must be between 2 and 100 characters",
	"name.max":                "Team name must be between 2 and 100 characters",
	"userId.required":         "userId is required",
}

// RegisterValidators installs the custom binding rules on gin's validator.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notpast", notPast)
		_ = v.RegisterValidation("username", validUsername)
		_ = v.RegisterValidation("strongpassword", strongPassword)
	})
}

func notPast(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.Before(time.Now())
}

func validUsername(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	return len(name) >= constants.MinUsernameLength &&
		len(name) <= constants.MaxUsernameLength &&
		usernamePattern.MatchString(name)
}

func strongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < constants.MinPasswordLength {
		return false
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// bindingError turns a ShouldBindJSON failure into a validation error
// listing every rejected field
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.Validation("Invalid request body", nil)
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apierrors.Validation("", details)
}

// fieldMessage looks up the client message; slice elements such as tags[3]
// share the "tags[]" entry
func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if name, _, ok := strings.Cut(field, "["); ok {
		field = name + "[]"
	}
	if msg, ok := fieldMessages[field+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}
