package validation

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var fullnameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

func IsValidEmail(email string) bool {
	return email != "" && emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with at least one letter,
// one digit and one punctuation or symbol character.
func IsValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

// IsValidFullname accepts letters, spaces, hyphens and apostrophes.
func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}
