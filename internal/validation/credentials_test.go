package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		errMsg   string
		wantErr  bool
	}{
		{name: "lowercase", username: "admin"},
		{name: "mixed with digits and underscore", username: "Shop_Admin2"},
		{name: "max length", username: "a1234567890123456789012345678901"},
		{name: "empty", username: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "too short", username: "ab", wantErr: true, errMsg: "at least 3"},
		{name: "too long", username: "a12345678901234567890123456789012", wantErr: true, errMsg: "must not exceed 32"},
		{name: "dash", username: "shop-admin", wantErr: true, errMsg: "can only contain"},
		{name: "email", username: "admin@shop", wantErr: true, errMsg: "can only contain"},
		{name: "cyrillic", username: "админ", wantErr: true, errMsg: "can only contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "exactly 12", password: "password1234"},
		{name: "unicode counted by characters", password: "пароль123456"},
		{name: "empty", password: "", wantErr: true},
		{name: "11 chars", password: "password123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
