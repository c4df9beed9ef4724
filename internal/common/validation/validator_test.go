package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-mate/internal/common/errors"
)

type keysRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=3,dive,cache_key"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   keysRequest
		wantErr string
	}{
		{"valid", keysRequest{Keys: []string{"o1", "o2"}}, ""},
		{"missing", keysRequest{}, "field 'keys' is required"},
		{"empty list", keysRequest{Keys: []string{}}, "field 'keys' must have at least 1 items"},
		{"too many", keysRequest{Keys: []string{"a", "b", "c", "d"}}, "field 'keys' must have at most 3 items"},
		{"blank key", keysRequest{Keys: []string{"a", "  "}}, "must be a non-empty printable key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidator_Details(t *testing.T) {
	err := New().Struct(keysRequest{Keys: []string{"ok", "\x00bad"}})
	require.Error(t, err)

	details := Details(err)
	require.Len(t, details, 1)
	assert.Equal(t, "cache_key", details[0].Tag)
	assert.Equal(t, "keys[1]", details[0].Field)

	assert.Nil(t, Details(errors.ValidationError("plain")))
}

func TestValidator_Key(t *testing.T) {
	v := New()

	assert.NoError(t, v.Key("set", "orders"))
	assert.NoError(t, v.Key("key", "user:42/profile"))

	for _, bad := range []string{"", "   ", "tab\tkey", strings.Repeat("k", MaxKeyLength+1)} {
		err := v.Key("key", bad)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "%q", bad)
	}
}

func TestValidator_Var(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("orders", "cache_key"))
	assert.Error(t, v.Var("", "required"))
}
