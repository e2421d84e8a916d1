package database

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/peternagy/consultadmin/internal/core"
)

// MongoDB naming constraints:
// - Database names: max 64 bytes, no /\. "$*<>:|? or null characters
// - Collection names: max 120 bytes, no $, no system. prefix, no null characters, not the lease collection

// ValidateDatabaseName checks if a database name is valid according to MongoDB rules.
func ValidateDatabaseName(name string) error {
	if name == "" {
		return &core.ValidationError{Field: "database", Reason: "name cannot be empty"}
	}

	if len(name) > 64 {
		return &core.ValidationError{Field: "database", Reason: fmt.Sprintf("name %q exceeds 64 bytes", name)}
	}

	invalidChars := `/\. "$*<>:|?`
	for _, r := range name {
		if r == 0 {
			return &core.ValidationError{Field: "database", Reason: fmt.Sprintf("name %q contains null character", name)}
		}
		if strings.ContainsRune(invalidChars, r) {
			return &core.ValidationError{Field: "database", Reason: fmt.Sprintf("name %q contains invalid character %q", name, r)}
		}
	}

	return nil
}

// ValidateCollectionName checks that name is a writable user collection.
func ValidateCollectionName(name string) error {
	if name == "" {
		return &core.ValidationError{Field: "collection", Reason: "name cannot be empty"}
	}

	if len(name) > 120 {
		return &core.ValidationError{Field: "collection", Reason: fmt.Sprintf("name %q exceeds 120 bytes", name)}
	}

	if strings.ContainsRune(name, 0) {
		return &core.ValidationError{Field: "collection", Reason: fmt.Sprintf("name %q contains null character", name)}
	}

	if strings.Contains(name, "$") {
		return &core.ValidationError{Field: "collection", Reason: fmt.Sprintf("name %q contains $", name)}
	}

	if IsSystemCollection(name) {
		return &core.ValidationError{Field: "collection", Reason: fmt.Sprintf("name %q is reserved", name)}
	}

	if !utf8.ValidString(name) {
		return &core.ValidationError{Field: "collection", Reason: fmt.Sprintf("name %q is not valid UTF-8", name)}
	}

	return nil
}

// IsSystemCollection reports whether name is a server-managed collection or
// the maintenance lease collection.
func IsSystemCollection(name string) bool {
	return strings.HasPrefix(name, "system.") || name == LeaseCollection
}
