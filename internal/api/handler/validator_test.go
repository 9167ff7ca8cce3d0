package handler

import (
	"strings"
	"testing"
)

type passwordOnly struct {
	Password string `json:"password" validate:"password"`
}

func TestValidator_PasswordRule(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		password string
		valid    bool
	}{
		{"Passw0rd!", true},
		{"Abcdefg#", true},
		{"ABCDEFGHIJKLMNO&", true},
		{"Ab#", false},
		{"ABCDEFGHIJKLMNOP&", false},
		{"lowercase!", false},
		{"NoSpecial1", false},
		{"Pass word?", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := v.Validate(passwordOnly{Password: tt.password})
			if tt.valid && err != nil {
				t.Fatalf("expected %q to be valid, got %v", tt.password, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("expected %q to be rejected", tt.password)
			}
		})
	}
}

func TestValidator_MessagesUseJSONNames(t *testing.T) {
	err := NewValidator().Validate(updatePasswordRequest{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "current_password is required") || !strings.Contains(msg, "new_password is required") {
		t.Fatalf("unexpected message: %q", msg)
	}
}
