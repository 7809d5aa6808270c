package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxUsernameLength = 128
	MinUsernameLength = 1
	MaxSecretLength   = 4096
	MaxPathLength     = 4096
)

// UsernamePattern allows alphanumerics plus the separators found in e-mail style logins
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateUsername validates a login name
func ValidateUsername(username string) error {
	if err := ValidateString(username, "username", MinUsernameLength, MaxUsernameLength, true); err != nil {
		return err
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters")
	}

	return nil
}

// ValidateSecret validates a plain or encrypted secret
func ValidateSecret(secret string) error {
	return ValidateString(secret, "secret", 1, MaxSecretLength, true)
}

// ValidatePath validates a caller-supplied filesystem path
func ValidatePath(path, fieldName string) error {
	if err := ValidateString(path, fieldName, 1, MaxPathLength, true); err != nil {
		return err
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%s must be an absolute path", fieldName)
	}
	return nil
}
