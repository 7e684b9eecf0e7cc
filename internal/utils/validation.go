package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest player name accepted, in characters
const MaxNameLength = 32

// MaxAgeMonths bounds the age a parent can enter (18 years)
const MaxAgeMonths = 18 * 12

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePlayerName checks a player name is usable as a profile key.
// Names may be any script (e.g. 小明) but must not contain control
// characters or path separators.
func ValidatePlayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if name != strings.TrimSpace(name) {
		return ValidationError{Field: "name", Message: "name must not start or end with spaces"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	if name == "." || name == ".." {
		return ValidationError{Field: "name", Message: "invalid name"}
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '/' || r == '\\' {
			return ValidationError{Field: "name", Message: "name contains invalid characters"}
		}
	}
	return nil
}

// ValidateAgeMonths checks an age entered on the registration screen
func ValidateAgeMonths(months int) error {
	if months < 0 || months > MaxAgeMonths {
		return ValidationError{Field: "age_months", Message: fmt.Sprintf("age must be between 0 and %d months", MaxAgeMonths)}
	}
	return nil
}

// ValidateBirthDate checks a YYYY-MM-DD birth date is real and not in the future
func ValidateBirthDate(date string, now time.Time) error {
	birth, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return ValidationError{Field: "birth_date", Message: "birth date must look like 2020-05-01"}
	}
	if birth.After(now) {
		return ValidationError{Field: "birth_date", Message: "birth date is in the future"}
	}
	return nil
}
