package domain

import (
	"strings"
	"unicode"
)

// Violation is one password-policy failure. Checks are not short-circuited so
// callers can present every problem at once.
type Violation string

const (
	ViolationTooShort       Violation = "TOO_SHORT"
	ViolationTooLong        Violation = "TOO_LONG"
	ViolationMissingUpper   Violation = "MISSING_UPPERCASE"
	ViolationMissingLower   Violation = "MISSING_LOWERCASE"
	ViolationMissingDigit   Violation = "MISSING_DIGIT"
	ViolationMissingSpecial Violation = "MISSING_SPECIAL"
	ViolationTooFewUnique   Violation = "TOO_FEW_UNIQUE_CHARS"
	ViolationRepeatedRun    Violation = "REPEATED_CHARACTER_RUN"
	ViolationCommonPassword Violation = "COMMON_PASSWORD"
	ViolationSimilarToEmail Violation = "SIMILAR_TO_EMAIL"
	ViolationReusedPassword Violation = "PASSWORD_REUSED"
)

// commonPasswords is the case-insensitive exact-match blocklist.
var commonPasswords = map[string]struct{}{
	"password":     {},
	"password1":    {},
	"password123":  {},
	"password123!": {},
	"passw0rd":     {},
	"123456":       {},
	"12345678":     {},
	"123456789":    {},
	"qwerty":       {},
	"qwerty123":    {},
	"letmein":      {},
	"welcome":      {},
	"welcome1":     {},
	"iloveyou":     {},
	"admin":        {},
	"admin123":     {},
	"root":         {},
	"abc123":       {},
	"monkey":       {},
	"dragon":       {},
	"sunshine":     {},
	"trustno1":     {},
}

// CheckPassword evaluates the candidate against every stateless rule and
// returns the complete violation list. The history check needs persistence
// and lives at the service layer.
func CheckPassword(password string, rules PasswordRules, email string) []Violation {
	var violations []Violation

	length := len([]rune(password))
	if length < rules.MinLength {
		violations = append(violations, ViolationTooShort)
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		violations = append(violations, ViolationTooLong)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	unique := make(map[rune]struct{}, length)
	longestRun := 0
	run := 0
	first := true
	var prev rune
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
		unique[r] = struct{}{}
		if first || r != prev {
			run = 1
		} else {
			run++
		}
		if run > longestRun {
			longestRun = run
		}
		prev = r
		first = false
	}

	if rules.RequireUppercase && !hasUpper {
		violations = append(violations, ViolationMissingUpper)
	}
	if rules.RequireLowercase && !hasLower {
		violations = append(violations, ViolationMissingLower)
	}
	if rules.RequireDigit && !hasDigit {
		violations = append(violations, ViolationMissingDigit)
	}
	if rules.RequireSpecial && !hasSpecial {
		violations = append(violations, ViolationMissingSpecial)
	}
	if rules.MinUniqueChars > 0 && len(unique) < rules.MinUniqueChars {
		violations = append(violations, ViolationTooFewUnique)
	}
	if rules.MaxRepeatRun > 0 && longestRun > rules.MaxRepeatRun {
		violations = append(violations, ViolationRepeatedRun)
	}

	lowered := strings.ToLower(password)
	if _, banned := commonPasswords[lowered]; banned {
		violations = append(violations, ViolationCommonPassword)
	}
	if localPart := emailLocalPart(email); localPart != "" {
		if strings.Contains(lowered, localPart) || strings.Contains(localPart, lowered) {
			violations = append(violations, ViolationSimilarToEmail)
		}
	}

	return violations
}

func emailLocalPart(email string) string {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return ""
	}
	if at := strings.IndexByte(trimmed, '@'); at > 0 {
		return trimmed[:at]
	}
	return trimmed
}
