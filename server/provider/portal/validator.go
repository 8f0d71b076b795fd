package portal

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// ValidateCredentials validates the portal credential entries supplied
// through the plugin configuration. An empty list is valid: the bot then
// serves aggregator countries only.
func ValidateCredentials(entries []Credentials) error {
	seenIDs := make(map[string]bool)
	seenTypes := make(map[string]bool)

	for i, entry := range entries {
		if err := validateRequiredFields(entry); err != nil {
			return fmt.Errorf("portal configuration at position %d: %w", i+1, err)
		}

		if err := validateUUID(entry.ID); err != nil {
			return fmt.Errorf("portal '%s': %w", entry.Type, err)
		}

		if seenIDs[entry.ID] {
			return fmt.Errorf("duplicate portal ID found: %s", entry.ID)
		}
		seenIDs[entry.ID] = true

		if _, err := DescriptorFor(entry.Type); err != nil {
			return fmt.Errorf("portal configuration at position %d: %w", i+1, err)
		}

		// One account per portal: adapters own their session token, and a
		// second account for the same portal would make routing ambiguous.
		if seenTypes[entry.Type] {
			return fmt.Errorf("duplicate portal type found: '%s'", entry.Type)
		}
		seenTypes[entry.Type] = true

		if err := validateURL(entry.URL); err != nil {
			return fmt.Errorf("portal '%s': %w", entry.Type, err)
		}
	}

	return nil
}

func validateRequiredFields(entry Credentials) error {
	if entry.ID == "" {
		return fmt.Errorf("missing required field 'id'")
	}
	if entry.Type == "" {
		return fmt.Errorf("missing required field 'type'")
	}
	if entry.URL == "" {
		return fmt.Errorf("missing required field 'url'")
	}
	if entry.Email == "" {
		return fmt.Errorf("missing required field 'email'")
	}
	if entry.Password == "" {
		return fmt.Errorf("missing required field 'password'")
	}
	return nil
}

// validateUUID checks that the ID is a valid UUID v4.
func validateUUID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid UUID format for id: %w", err)
	}

	if parsed.Version() != 4 {
		return fmt.Errorf("id must be a UUID v4 (got version %d)", parsed.Version())
	}

	return nil
}

// validateURL checks that the URL is valid and uses HTTPS.
func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url format: %w", err)
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("url must use HTTPS (got %s)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("url must include a hostname")
	}

	return nil
}
