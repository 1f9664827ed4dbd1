package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/sherpa-assist/sherpa-backend/internal/dates"
	"github.com/sherpa-assist/sherpa-backend/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but panic loudly if they do
	if err := Validate.RegisterValidation("item_type", validateItemType); err != nil {
		panic(fmt.Sprintf("failed to register item_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_size", validateTaskSize); err != nil {
		panic(fmt.Sprintf("failed to register task_size validator: %v", err))
	}
	if err := Validate.RegisterValidation("category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register category validator: %v", err))
	}
	if err := Validate.RegisterValidation("sentiment", validateSentiment); err != nil {
		panic(fmt.Sprintf("failed to register sentiment validator: %v", err))
	}
	if err := Validate.RegisterValidation("focus_state", validateFocusState); err != nil {
		panic(fmt.Sprintf("failed to register focus_state validator: %v", err))
	}
}

// FieldViolation describes one failed validation rule
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError reports every violated field of a candidate item so the
// caller can correct its input in one pass.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether the named field is among the violations
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// itemDraft mirrors models.ItemPayload with validation tags. The enum tags
// are the custom validators registered in init.
type itemDraft struct {
	Text      string `validate:"required"`
	Type      string `validate:"required,item_type"`
	TaskSize  string `validate:"required,task_size"`
	Category  string `validate:"required,category"`
	Priority  int    `validate:"required,gte=1,lte=5"`
	Sentiment string `validate:"required,sentiment"`
}

// fieldNames maps struct field names back to their wire names
var fieldNames = map[string]string{
	"Text":      "text",
	"Type":      "type",
	"TaskSize":  "task_size",
	"Category":  "category",
	"Priority":  "priority",
	"Sentiment": "sentiment",
}

// ValidateItem turns a loosely typed payload from a text-generation call
// into a validated draft. It is a pure transform: persistence belongs to
// the synchronizer. On failure the returned ValidationError lists every
// violated field, including an unresolvable due date.
func ValidateItem(p models.ItemPayload, now time.Time) (*models.FocusDraft, error) {
	draft := itemDraft{
		Text:      SanitizeText(p.Text),
		Type:      p.Type,
		TaskSize:  p.TaskSize,
		Category:  p.Category,
		Priority:  p.Priority,
		Sentiment: p.Sentiment,
	}

	violations := make([]FieldViolation, 0)
	if err := Validate.Struct(draft); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, fmt.Errorf("failed to validate item: %w", err)
		}
		for _, fe := range fieldErrs {
			name := fieldNames[fe.StructField()]
			if name == "" {
				name = strings.ToLower(fe.StructField())
			}
			violations = append(violations, FieldViolation{
				Field:   name,
				Message: messageFor(fe),
			})
		}
	}

	dueDate, err := dates.Resolve(p.DueDate, now)
	if err != nil {
		violations = append(violations, FieldViolation{
			Field:   "due_date",
			Message: err.Error(),
		})
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	return &models.FocusDraft{
		Text:      draft.Text,
		Type:      models.ItemType(draft.Type),
		TaskSize:  models.TaskSize(draft.TaskSize),
		Category:  models.Category(draft.Category),
		Priority:  draft.Priority,
		Sentiment: models.Sentiment(draft.Sentiment),
		DueDate:   dueDate,
	}, nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "item_type", "task_size", "category", "sentiment", "focus_state":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), fe.Tag())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func validateItemType(fl validator.FieldLevel) bool {
	value := models.ItemType(fl.Field().String())
	for _, t := range models.ItemTypes {
		if value == t {
			return true
		}
	}
	return false
}

func validateTaskSize(fl validator.FieldLevel) bool {
	value := models.TaskSize(fl.Field().String())
	for _, s := range models.TaskSizes {
		if value == s {
			return true
		}
	}
	return false
}

func validateCategory(fl validator.FieldLevel) bool {
	value := models.Category(fl.Field().String())
	for _, c := range models.Categories {
		if value == c {
			return true
		}
	}
	return false
}

func validateSentiment(fl validator.FieldLevel) bool {
	value := models.Sentiment(fl.Field().String())
	for _, s := range models.Sentiments {
		if value == s {
			return true
		}
	}
	return false
}

func validateFocusState(fl validator.FieldLevel) bool {
	value := models.FocusState(fl.Field().String())
	for _, s := range models.FocusStates {
		if value == s {
			return true
		}
	}
	return false
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateFocusState validates a lifecycle state string value
func ValidateFocusState(value string) error {
	state := models.FocusState(value)
	for _, s := range models.FocusStates {
		if state == s {
			return nil
		}
	}
	return fmt.Errorf("invalid state: %s (must be 'backlog', 'active', 'completed', or 'deleted')", value)
}
