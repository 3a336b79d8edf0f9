package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/personalization/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	custom := map[string]validator.Func{
		"life_dimension":    validateLifeDimension,
		"content_type":      validateContentType,
		"user_segment":      validateUserSegment,
		"notification_type": validateNotificationType,
		"priority":          validatePriority,
	}
	for tag, fn := range custom {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func validateLifeDimension(fl validator.FieldLevel) bool {
	return models.LifeDimension(fl.Field().String()).Valid()
}

func validateContentType(fl validator.FieldLevel) bool {
	return models.ContentType(fl.Field().String()).Valid()
}

func validateUserSegment(fl validator.FieldLevel) bool {
	return models.UserSegment(fl.Field().String()).Valid()
}

// validateNotificationType validates that a string is a valid NotificationType enum value
func validateNotificationType(fl validator.FieldLevel) bool {
	switch models.NotificationType(fl.Field().String()) {
	case models.NotificationEngagement, models.NotificationContent, models.NotificationSocial,
		models.NotificationAchievement, models.NotificationSafety, models.NotificationCredit:
		return true
	default:
		return false
	}
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return true
	default:
		return false
	}
}

// FirstError renders the first field error of a validator result as a client-facing message
func FirstError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("field '%s' failed '%s=%s' validation", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("field '%s' failed '%s' validation", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateUserID checks a path-supplied user id
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(userID) > 128 {
		return fmt.Errorf("user id exceeds 128 characters")
	}
	for _, r := range userID {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '/' {
			return fmt.Errorf("user id contains invalid characters")
		}
	}
	return nil
}
