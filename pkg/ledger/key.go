package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Composite key helpers
//
// Key pattern: {class}\x00{part1}\x00{part2}...
//
// The separator is reserved: MakeKey rejects components that contain it, so
// two different identity tuples can never produce the same key.

// KeySeparator joins the components of a composite key.
const KeySeparator = "\x00"

// MakeKey builds the composite key for class and the identity components.
// Returns ErrInvalidKey if the class is empty, no components are given, or any
// component is empty or contains KeySeparator.
func MakeKey(class string, parts ...string) (string, error) {
	if err := ValidateComponent(class); err != nil {
		return "", fmt.Errorf("invalid class: %w", err)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: at least one identity component is required", ErrInvalidKey)
	}
	for i, p := range parts {
		if err := ValidateComponent(p); err != nil {
			return "", fmt.Errorf("invalid key component at index %d: %w", i, err)
		}
	}
	return class + KeySeparator + strings.Join(parts, KeySeparator), nil
}

// KeyPrefix returns the prefix shared by every key of class whose leading
// identity components equal parts. It ends with KeySeparator so that a prefix
// for "ACME" does not match "ACME2".
func KeyPrefix(class string, parts ...string) (string, error) {
	if err := ValidateComponent(class); err != nil {
		return "", fmt.Errorf("invalid class: %w", err)
	}
	for i, p := range parts {
		if err := ValidateComponent(p); err != nil {
			return "", fmt.Errorf("invalid key component at index %d: %w", i, err)
		}
	}
	prefix := class + KeySeparator
	for _, p := range parts {
		prefix += p + KeySeparator
	}
	return prefix, nil
}

// SplitKey returns the class and identity components of a composite key.
func SplitKey(key string) (class string, parts []string, err error) {
	fields := strings.Split(key, KeySeparator)
	if len(fields) < 2 || fields[0] == "" {
		return "", nil, fmt.Errorf("%w: %q is not a composite key", ErrInvalidKey, FormatKey(key))
	}
	return fields[0], fields[1:], nil
}

// ValidateComponent checks that s can be used as a composite key component.
func ValidateComponent(s string) error {
	if s == "" {
		return fmt.Errorf("%w: component cannot be empty", ErrInvalidKey)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: component %q is not valid UTF-8", ErrInvalidKey, s)
	}
	if strings.Contains(s, KeySeparator) {
		return fmt.Errorf("%w: component %q contains the reserved separator", ErrInvalidKey, FormatKey(s))
	}
	return nil
}

// FormatKey renders a composite key for humans, showing the separator as ':'.
func FormatKey(key string) string {
	return strings.ReplaceAll(key, KeySeparator, ":")
}
