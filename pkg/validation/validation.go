package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// IDRegex accepts uuid, ulid and cuid style identifiers
	IDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ChatIDRegex is looser than IDRegex since chat ids are composed client side ("a:b")
	ChatIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_:.-]+$`)
)

const (
	maxIDLength         = 128
	MaxNotificationIDs  = 500
	MaxTitleLength      = 200
	MaxMessageLength    = 2000
	MaxEventFieldLength = 1024
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateID validates an entity identifier
func ValidateID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, maxIDLength)
	}
	if !IDRegex.MatchString(id) {
		return fmt.Errorf("invalid %s format", fieldName)
	}
	return nil
}

// ValidateChatID validates a chat identifier used to address a typing room
func ValidateChatID(chatID string) error {
	if chatID == "" {
		return fmt.Errorf("chat ID is required")
	}
	if len(chatID) > maxIDLength {
		return fmt.Errorf("chat ID is too long (max %d characters)", maxIDLength)
	}
	if !ChatIDRegex.MatchString(chatID) {
		return fmt.Errorf("invalid chat ID format")
	}
	return nil
}

// ValidateVerificationStatus accepts approved, rejected or pending in any case
func ValidateVerificationStatus(status string) error {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "APPROVED", "REJECTED", "PENDING":
		return nil
	case "":
		return fmt.Errorf("status is required")
	}
	return fmt.Errorf("invalid status (must be approved, rejected, or pending)")
}

// ValidateNotificationIDs validates a batch of notification ids for mark-read
func ValidateNotificationIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("notification IDs are required")
	}
	if len(ids) > MaxNotificationIDs {
		return fmt.Errorf("too many notification IDs (max %d)", MaxNotificationIDs)
	}
	for i, id := range ids {
		if err := ValidateID(id, "notification ID"); err != nil {
			return fmt.Errorf("notification IDs[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateActionURL accepts absolute http(s) URLs and app-relative paths
func ValidateActionURL(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
