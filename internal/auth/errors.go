package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid email or password")
	ErrIncorrectPassword     = errors.New("Invalid email or password")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrEmailTaken            = errors.New("An account with this email already exists")
	ErrWeakPassword          = errors.New("Password must be at least 8 characters with a letter, a number and a special character")
	ErrBadEmail              = errors.New("Invalid email address")
	ErrBadFullname           = errors.New("Full name may only contain letters, spaces, hyphens and apostrophes")
)
