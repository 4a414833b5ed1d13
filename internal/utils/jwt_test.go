package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestIssueAndVerifyToken(t *testing.T) {
	tok, err := IssueToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(tok.Exp) <= 0 {
		t.Fatalf("expiry %v should be in the future", tok.Exp)
	}
	id, err := VerifyToken(testSecret, tok.Token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if id != 42 {
		t.Fatalf("user id = %d, want 42", id)
	}
}

func TestVerifyTokenErrors(t *testing.T) {
	expired, err := IssueToken(testSecret, 1, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	other, err := IssueToken("another-secret", 1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrUnauthenticated},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"expired", expired.Token, ErrTokenExpired},
		{"wrong secret", other.Token, ErrInvalidToken},
		{"wrong algorithm", hs512, ErrInvalidToken},
		{"missing expiry", noExp, ErrInvalidToken},
		{"non-numeric subject", badSubject, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(testSecret, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("VerifyToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"Bearer   ", "", true},
		{"Basic dXNlcjpwdw==", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err != nil) != tt.err {
			t.Fatalf("BearerToken(%q) error = %v, want error %v", tt.header, err, tt.err)
		}
		if got != tt.want {
			t.Fatalf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
