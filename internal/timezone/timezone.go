// Package timezone resolves and applies IANA zone identifiers. An empty
// identifier always means UTC.
package timezone

import (
	"fmt"
	"time"
)

// Validate reports whether name is a known IANA zone identifier.
func Validate(name string) error {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return nil
}

// Load resolves name to a location, defaulting to UTC.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// Convert returns t expressed in the named zone.
func Convert(t time.Time, name string) (time.Time, error) {
	loc, err := Load(name)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// Format renders t in the named zone as RFC 3339.
func Format(t time.Time, name string) (string, error) {
	converted, err := Convert(t, name)
	if err != nil {
		return "", err
	}
	return converted.Format(time.RFC3339), nil
}
