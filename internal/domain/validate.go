package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits shared by accounts and stores.
const (
	MinUserNameLen  = 20
	MaxNameLen      = 60
	MaxAddressLen   = 400
	MinPasswordLen  = 8
	MaxPasswordLen  = 16
	passwordSpecial = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// CheckUserName records problems with an account display name on v.
func CheckUserName(v *ValidationError, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		v.Add("name", "name is required")
	case n < MinUserNameLen:
		v.Add("name", "name must be at least 20 characters")
	case n > MaxNameLen:
		v.Add("name", "name must not exceed 60 characters")
	}
}

// CheckEmail records an invalid email on v.
func CheckEmail(v *ValidationError, email string) {
	if email == "" {
		v.Add("email", "email is required")
		return
	}
	if !ValidEmail(email) {
		v.Add("email", "please enter a valid email address")
	}
}

// CheckAddress records a missing or oversized address on v.
func CheckAddress(v *ValidationError, address string) {
	if strings.TrimSpace(address) == "" {
		v.Add("address", "address is required")
		return
	}
	if utf8.RuneCountInString(address) > MaxAddressLen {
		v.Add("address", "address must not exceed 400 characters")
	}
}

// CheckPassword records every password rule that pw breaks on v, under field.
func CheckPassword(v *ValidationError, field, pw string) {
	n := utf8.RuneCountInString(pw)
	if n < MinPasswordLen {
		v.Add(field, "password must be at least 8 characters")
	}
	if n > MaxPasswordLen {
		v.Add(field, "password must not exceed 16 characters")
	}
	if strings.IndexFunc(pw, unicode.IsUpper) < 0 {
		v.Add(field, "password must contain at least one uppercase letter")
	}
	if !strings.ContainsAny(pw, passwordSpecial) {
		v.Add(field, "password must contain at least one special character")
	}
}
