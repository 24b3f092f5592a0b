package provision

import (
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

// SpecialCharacters is the set the target application accepts as "special"
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

// commonPasswords are rejected by the signup endpoint regardless of shape
var commonPasswords = map[string]struct{}{
	"password": {}, "password123": {}, "123456789": {}, "12345678": {},
	"qwerty123": {}, "abc123456": {}, "password1": {}, "123456": {},
	"qwerty": {}, "admin123": {}, "welcome123": {}, "user123": {},
	"test123": {}, "pass123": {},
}

// ValidatePassword returns every policy rule pw breaks; empty means valid.
// The rules mirror the server-side signup validation so a generated account
// is never refused for its password. Character classes are ASCII only.
func ValidatePassword(pw string) []string {
	var problems []string

	// length in UTF-16 code units, as the server's String.length counts it
	if len(utf16.Encode([]rune(pw))) < 8 {
		problems = append(problems, "must be at least 8 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		case '0' <= r && r <= '9':
			digit = true
		}
		if strings.ContainsRune(SpecialCharacters, r) {
			special = true
		}
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a number")
	}
	if !special {
		problems = append(problems, "must contain a special character")
	}

	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		problems = append(problems, "is too common")
	}
	if hasRepeatedRun(pw, 4) {
		problems = append(problems, "must not repeat a character 4 or more times in a row")
	}

	return problems
}

func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// emailPattern is the server's own (deliberately loose) email check
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NewValidator returns a validator with the password_policy and
// signup_email tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return len(ValidatePassword(fl.Field().String())) == 0
	})
	_ = v.RegisterValidation("signup_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}
