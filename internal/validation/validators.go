package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	recipientPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("tone", validateTone); err != nil {
		panic(fmt.Sprintf("failed to register tone validator: %v", err))
	}
	if err := Validate.RegisterValidation("stats_period", validateStatsPeriod); err != nil {
		panic(fmt.Sprintf("failed to register stats_period validator: %v", err))
	}
	if err := Validate.RegisterValidation("recipient", validateRecipient); err != nil {
		panic(fmt.Sprintf("failed to register recipient validator: %v", err))
	}
}

func validateTone(fl validator.FieldLevel) bool {
	return models.Tone(fl.Field().String()).IsValid()
}

func validateStatsPeriod(fl validator.FieldLevel) bool {
	return models.StatsPeriod(fl.Field().String()).Days() > 0
}

func validateRecipient(fl validator.FieldLevel) bool {
	return IsValidRecipient(fl.Field().String())
}

// IsValidRecipient reports whether s is shaped like a deliverable address:
// local part, "@", and a domain containing a dot, with no whitespace.
// Display names such as "Sarah Johnson" are rejected.
func IsValidRecipient(s string) bool {
	return recipientPattern.MatchString(s)
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

// FormatErrors flattens validator errors into a single client-facing message
func FormatErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min", "gte", "lte":
			parts = append(parts, fmt.Sprintf("%s is out of range", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
