package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"userAuthService/internal/testutil"
	"userAuthService/models"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	ti, err := NewTokenIssuer(testutil.TestSecret, testutil.TestIssuer, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return ti
}

func TestIssueAndParse_RoundTrip(t *testing.T) {
	ti := newTestIssuer(t)
	tok, err := ti.Issue(&models.User{ID: 7, Username: "alice", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := ti.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.UserID != 7 || p.Username != "alice" || p.Role != models.RoleAdmin {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParse_Expired(t *testing.T) {
	ti := newTestIssuer(t)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := ti.Issue(&models.User{ID: 1, Username: "bob", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ti.now = time.Now
	if _, err := ti.Parse(tok); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	ti := newTestIssuer(t)
	other, err := NewTokenIssuer("wrong", testutil.TestIssuer, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tok, err := other.Issue(&models.User{ID: 1, Username: "bob", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ti.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_RejectsForeignIssuerAndBadClaims(t *testing.T) {
	ti := newTestIssuer(t)

	claims := testutil.UserClaims(1, "bob", models.RoleUser)
	claims["iss"] = "someone-else"
	if _, err := ti.Parse(testutil.GenerateJWTHS256(t, testutil.TestSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}

	claims = testutil.UserClaims(0, "", "")
	if _, err := ti.Parse(testutil.GenerateJWTHS256(t, testutil.TestSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty claims, got %v", err)
	}

	claims = testutil.UserClaims(1, "bob", models.RoleUser)
	delete(claims, "exp")
	if _, err := ti.Parse(testutil.GenerateJWTHS256(t, testutil.TestSecret, claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without exp, got %v", err)
	}
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	ti := newTestIssuer(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, testutil.UserClaims(1, "bob", models.RoleAdmin))
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ti.Parse(s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	if _, err := NewTokenIssuer("", "x", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewTokenIssuer("s", "x", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("BearerToken: %q %v", tok, err)
	}
	if tok, err := BearerToken("bearer  abc "); err != nil || tok != "abc" {
		t.Fatalf("BearerToken case-insensitive: %q %v", tok, err)
	}
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := BearerToken("Basic abc"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseFromMD_ValidBearer(t *testing.T) {
	ti := newTestIssuer(t)
	tok := testutil.GenerateJWTHS256(t, testutil.TestSecret, testutil.UserClaims(3, "alice", models.RoleUser))
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	p, err := ParseFromMD(ctx, ti)
	if err != nil {
		t.Fatalf("ParseFromMD: %v", err)
	}
	if p.UserID != 3 || p.Username != "alice" || p.Role != models.RoleUser {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromMD_MissingHeader(t *testing.T) {
	if _, err := ParseFromMD(context.Background(), newTestIssuer(t)); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
