package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-facing labels
var FieldLabels = map[string]string{
	// Request and beta forms
	"Name":          "Name",
	"Email":         "Email",
	"VideoLink":     "Video link",
	"Platforms":     "Platforms",
	"Frequency":     "Frequency",
	"Notes":         "Notes",
	"BusinessType":  "Business type",
	"VideosPerWeek": "Videos per week",
	"PainPoint":     "Biggest challenge",

	// Detailed intake
	"FullName":         "Full name",
	"BusinessName":     "Business name",
	"PostingFrequency": "Posting frequency",
	"ExtraNotes":       "Extra notes",

	// Wizard
	"Step":       "Step",
	"Action":     "Action",
	"TestOption": "Test option",

	// Credentials
	"Platform":        "Platform",
	"Username":        "Username",
	"Password":        "Password",
	"TwoFactorBackup": "2FA backup codes",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.StructField())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)

	case "min":
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("Select at least %s %s", param, strings.ToLower(label))
		}
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s must be at least %s", label, param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s must be at most %s", label, param)

	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(param), ", "))

	case "email", "basic_email":
		return "Please enter a valid email address"

	case "url", "web_url":
		return fmt.Sprintf("%s must be a valid http or https URL", label)

	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	// Slice elements report as Platforms[0]
	if i := strings.IndexByte(fieldName, '['); i > 0 {
		fieldName = fieldName[:i]
	}
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
