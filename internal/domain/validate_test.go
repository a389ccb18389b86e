package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"john@email.com", true},
		{"First.Last+tag@Sub.Example.ORG", true},
		{"no-at-sign.com", false},
		{"a@b.c", false},
		{"a@@b.com", false},
		{"spaces in@mail.com", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.in); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		failures int
	}{
		{"valid", "Admin123!", 0},
		{"exactly eight", "Abcdef!1", 0},
		{"exactly sixteen", "Abcdefghijklmn!1", 0},
		{"too short", "Ab!1", 1},
		{"too long", "Abcdefghijklmnop!", 1},
		{"no uppercase", "admin123!", 1},
		{"no special", "Admin1234", 1},
		{"empty", "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v ValidationError
			CheckPassword(&v, "password", tt.password)
			if len(v.Fields) != tt.failures {
				t.Fatalf("CheckPassword(%q) failures = %v, want %d", tt.password, v.Fields, tt.failures)
			}
		})
	}
}

func TestCheckUserFields(t *testing.T) {
	var v ValidationError
	CheckUserName(&v, "Too short")
	CheckEmail(&v, "nope")
	CheckAddress(&v, strings.Repeat("x", MaxAddressLen+1))
	err := v.Err()
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Err() = %v, want ErrInvalidValue", err)
	}
	if len(v.Fields) != 3 {
		t.Fatalf("fields = %v, want 3 failures", v.Fields)
	}

	var ok ValidationError
	CheckUserName(&ok, "John Smith Regular Customer")
	CheckEmail(&ok, "john@email.com")
	CheckAddress(&ok, "456 Customer Avenue")
	if ok.Err() != nil {
		t.Fatalf("valid fields rejected: %v", ok.Fields)
	}
}
