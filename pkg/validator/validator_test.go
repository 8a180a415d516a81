package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{"plain", "hello", true},
		{"padded", "  hello  ", true},
		{"empty", "", false},
		{"whitespace only", " \t\n ", false},
		{"at limit", strings.Repeat("a", MaxMessageLength), true},
		{"over limit", strings.Repeat("a", MaxMessageLength+1), false},
		{"multibyte at limit", strings.Repeat("č", MaxMessageLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateMessageText(tt.text)
			assert.Equal(t, !tt.valid, errs.HasErrors(), errs)
		})
	}
}

func TestValidateRegister(t *testing.T) {
	errs := ValidateRegister("ana@example.com", "Ana", "Secret123")
	assert.False(t, errs.HasErrors())

	errs = ValidateRegister("not-an-email", " ", "short")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "password")

	errs = ValidateRegister("ana@example.com", "Ana", "alllowercase1")
	assert.Equal(t, "Password must contain at least one uppercase letter", errs["password"])
}

func TestValidateChangePassword(t *testing.T) {
	assert.False(t, ValidateChangePassword("Old12345", "New12345").HasErrors())
	assert.Contains(t, ValidateChangePassword("", "New12345"), "current_password")
	assert.Contains(t, ValidateChangePassword("Same1234", "Same1234"), "new_password")
}

func TestValidateProfileUpdate(t *testing.T) {
	good := "ana-dev"
	bad := "ana dev!"
	site := "example.com"

	assert.False(t, ValidateProfileUpdate(nil, &good, nil, nil).HasErrors())
	assert.Contains(t, ValidateProfileUpdate(nil, &bad, nil, nil), "username")
	assert.Contains(t, ValidateProfileUpdate(nil, nil, nil, &site), "website")
	assert.False(t, ValidateProfileUpdate(nil, nil, nil, nil).HasErrors())
}
