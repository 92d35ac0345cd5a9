package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	j := NewJWT("my-secret-key", time.Hour)

	token, err := j.Generate(123, "test@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := j.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if claims.UserID != 123 {
		t.Errorf("Validate() got UserID %d, want 123", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Validate() got Email %s", claims.Email)
	}
	if claims.Subject != "123" {
		t.Errorf("Validate() got Subject %q, want 123", claims.Subject)
	}
}

func TestJWT_Rejects(t *testing.T) {
	j := NewJWT("my-secret-key", time.Hour)
	token, _ := j.Generate(1, "a@example.com")
	parts := strings.Split(token, ".")

	other := NewJWT("other-secret", time.Hour)
	foreign, _ := other.Generate(1, "a@example.com")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	noneToken, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"tampered signature", parts[0] + "." + parts[1] + ".invalid-signature"},
		{"invalid format", "invalid.token"},
		{"signed with another secret", foreign},
		{"alg none", noneToken},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Validate(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWT_ExpiredToken(t *testing.T) {
	j := NewJWT("my-secret-key", 24*time.Hour)
	j.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := j.Generate(1, "expired@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	_, err = j.Validate(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Validate() = %v, want ErrExpiredToken", err)
	}
}

func TestNewJWT_DefaultTTL(t *testing.T) {
	j := NewJWT("secret", 0)
	if j.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", j.TTL(), DefaultTokenTTL)
	}
}
