package shared

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid body",
			body: `{"name":"Ada","email":"ada@example.com","password":"longenough"}`,
		},
		{
			name:    "malformed JSON",
			body:    `{"name":`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
				bytes.NewBufferString(tt.body))

			var payload signupPayload
			err := DecodeJSON(r, &payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "ada@example.com", payload.Email)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	t.Run("valid struct", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&signupPayload{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "longenough",
		})
		assert.NoError(t, err)
	})

	t.Run("invalid struct", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&signupPayload{
			Name:     "A",
			Email:    "not-an-email",
			Password: "short",
		})
		assert.Error(t, err)
	})
}

func TestFieldErrorsFrom(t *testing.T) {
	t.Parallel()

	t.Run("reports json field names", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&signupPayload{
			Name:     "Ada",
			Email:    "not-an-email",
			Password: "short",
		})
		require.Error(t, err)

		fieldErrors := FieldErrorsFrom(err)
		require.Len(t, fieldErrors, 2)

		fields := []string{fieldErrors[0].Field, fieldErrors[1].Field}
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Equal(t, "email must be a valid email address", fieldErrors[0].Message)
	})

	t.Run("non-validator error yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, FieldErrorsFrom(assert.AnError))
	})
}
