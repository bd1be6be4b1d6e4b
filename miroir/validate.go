package miroir

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// cloneURLPattern matches http(s) URLs with a plausible host part.
	// Checked before any network I/O.
	cloneURLPattern = regexp.MustCompile(`^(?i)(https?://)[^\s$.?#].[^\s]*$`)

	// pixelIDPattern: exactly 15 digits.
	pixelIDPattern = regexp.MustCompile(`^\d{15}$`)
)

func validateCloneURL(raw string) error {
	if !cloneURLPattern.MatchString(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

func validatePixelID(id string) error {
	if !pixelIDPattern.MatchString(id) {
		return fmt.Errorf("%w: got %q", ErrInvalidPixelID, id)
	}
	return nil
}

func validateLocation(loc string) error {
	if loc != LocationHead && loc != LocationBody {
		return fmt.Errorf("%w: got %q", ErrInvalidLocation, loc)
	}
	return nil
}

// validateHref accepts absolute or relative URLs; whitespace and
// unparseable values are rejected.
func validateHref(href string) error {
	if href == "" || strings.ContainsAny(href, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidHref, href)
	}
	if _, err := url.Parse(href); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidHref, href, err)
	}
	return nil
}
