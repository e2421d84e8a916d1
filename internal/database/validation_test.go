package database

import (
	"strings"
	"testing"

	"github.com/peternagy/consultadmin/internal/core"
	"github.com/peternagy/consultadmin/internal/types"
)

func TestValidateDatabaseName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"valid simple name", "mydb", false, ""},
		{"valid with numbers", "mydb123", false, ""},
		{"valid with underscore", "my_db", false, ""},
		{"valid with hyphen", "my-db", false, ""},
		{"empty name", "", true, "cannot be empty"},
		{"too long", strings.Repeat("a", 65), true, "exceeds 64 bytes"},
		{"max length valid", strings.Repeat("a", 64), false, ""},
		{"contains slash", "my/db", true, "invalid character"},
		{"contains backslash", "my\\db", true, "invalid character"},
		{"contains dot", "my.db", true, "invalid character"},
		{"contains space", "my db", true, "invalid character"},
		{"contains quote", "my\"db", true, "invalid character"},
		{"contains dollar", "my$db", true, "invalid character"},
		{"contains asterisk", "my*db", true, "invalid character"},
		{"contains less than", "my<db", true, "invalid character"},
		{"contains greater than", "my>db", true, "invalid character"},
		{"contains colon", "my:db", true, "invalid character"},
		{"contains pipe", "my|db", true, "invalid character"},
		{"contains question", "my?db", true, "invalid character"},
		{"contains null", "my\x00db", true, "null character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateDatabaseName(%q) expected error, got nil", tt.input)
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateDatabaseName(%q) error = %q, want to contain %q", tt.input, err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateDatabaseName(%q) unexpected error: %v", tt.input, err)
				}
			}
		})
	}
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"valid simple name", "users", false, ""},
		{"valid with numbers", "users123", false, ""},
		{"valid with dot", "users.active", false, ""},
		{"valid with underscore", "user_data", false, ""},
		{"valid with hyphen", "user-data", false, ""},
		{"empty name", "", true, "cannot be empty"},
		{"too long", strings.Repeat("a", 121), true, "exceeds 120 bytes"},
		{"max length valid", strings.Repeat("a", 120), false, ""},
		{"starts with dollar", "$users", true, "contains $"},
		{"dollar inside", "users$tmp", true, "contains $"},
		{"system collection reserved", "system.users", true, "reserved"},
		{"system prefix elsewhere allowed", "mysystem.users", false, ""},
		{"contains null", "users\x00data", true, "null character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateCollectionName(%q) expected error, got nil", tt.input)
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateCollectionName(%q) error = %q, want to contain %q", tt.input, err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateCollectionName(%q) unexpected error: %v", tt.input, err)
				}
			}
		})
	}
}

func TestValidationErrorsAreClassified(t *testing.T) {
	for _, err := range []error{
		ValidateDatabaseName("my/db"),
		ValidateCollectionName(""),
		ValidateCollectionName("system.profile"),
	} {
		if got := core.Kind(err); got != types.ErrorValidation {
			t.Errorf("Kind(%v) = %s, want %s", err, got, types.ErrorValidation)
		}
	}
}

func TestIsSystemCollection(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"system.views", true},
		{"system.js", true},
		{"leads", false},
		{"systemic", false},
		{LeaseCollection, true},
	}
	for _, tt := range tests {
		if got := IsSystemCollection(tt.name); got != tt.want {
			t.Errorf("IsSystemCollection(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
