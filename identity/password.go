package identity

import (
	"fmt"
	"unicode"
)

// ValidatePasswordStrength checks if a password meets the requirements the
// identity service enforces at registration:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

// PasswordStrength scores a password 0-4 for live feedback on the
// registration form. One point each for length >= 8, an uppercase letter, a
// digit, and a symbol. The label is empty for an empty password.
func PasswordStrength(password string) (score int, label string) {
	if password == "" {
		return 0, ""
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		case !unicode.IsLetter(char) && !unicode.IsDigit(char):
			hasSymbol = true
		}
	}

	if len(password) >= 8 {
		score++
	}
	if hasUpper {
		score++
	}
	if hasDigit {
		score++
	}
	if hasSymbol {
		score++
	}

	labels := []string{"", "Weak", "Fair", "Good", "Strong"}
	return score, labels[score]
}
