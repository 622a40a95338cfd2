package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ReservedUsername is held by the platform wallet account.
const ReservedUsername = "platform"

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,38}[a-z0-9])?$`)
)

// NormalizeUsername lowercases and trims a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername validates an account username.
// Usernames are 3-32 characters of lowercase letters, digits and underscores.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("invalid username %q: expected 3-32 characters of a-z, 0-9 or _", username)
	}
	if username == ReservedUsername {
		return fmt.Errorf("username %q is reserved", username)
	}
	return nil
}

// NormalizeSlug converts a routing key to its canonical form
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug validates a creator routing key
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(slug) < 3 {
		return fmt.Errorf("invalid slug length: expected at least 3 characters, got %d", len(slug))
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q: expected lowercase letters, digits and inner hyphens", slug)
	}
	return nil
}

// ValidateAndNormalizeSlug validates a slug and returns its normalized form
func ValidateAndNormalizeSlug(slug string) (string, error) {
	normalized := NormalizeSlug(slug)
	if err := ValidateSlug(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidatePayoutDestination checks a withdrawal destination (UPI id, IBAN, etc.).
// Only shape is checked, the payout processor owns the real validation.
func ValidatePayoutDestination(destination string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return fmt.Errorf("payout destination cannot be empty")
	}
	if len(destination) > 128 {
		return fmt.Errorf("payout destination too long: %d characters", len(destination))
	}
	if strings.ContainsAny(destination, " \t\r\n") {
		return fmt.Errorf("payout destination must not contain whitespace")
	}
	return nil
}
