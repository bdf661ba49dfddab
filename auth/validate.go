package auth

import (
	"regexp"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 64
)

var (
	reValidUsername = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
)

// ValidUsername reports whether s is 3 to 20 letters, digits or
// underscores.
func ValidUsername(s string) bool {
	return reValidUsername.MatchString(s)
}

// ValidPassword only checks the length, counted in characters.
func ValidPassword(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minPasswordLength && n <= maxPasswordLength
}

func validateCredentials(username string, passwd PlainText) error {
	if !ValidUsername(username) {
		return ValidationError{
			Field:  "username",
			Reason: "must be 3-20 characters long and contain only letters, numbers, and underscores",
		}
	}
	if !ValidPassword(string(passwd)) {
		return ValidationError{
			Field:  "password",
			Reason: "must be between 8 and 64 characters long",
		}
	}
	return nil
}
