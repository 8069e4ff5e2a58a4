package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue("PAT-042", RolePatient)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "PAT-042" {
		t.Errorf("subject = %q, want PAT-042", claims.Subject)
	}
	if claims.Role != RolePatient {
		t.Errorf("role = %q, want %q", claims.Role, RolePatient)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	a, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTokenIssuer("fedcba9876543210fedcba9876543210", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	token, err := a.Issue("DOC-1", RoleDoctor)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Error("token signed with another key must not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	token, err := issuer.Issue("PAT-001", RolePatient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Error("expired token must not parse")
	}
}

func TestEphemeralKeyWhenUnset(t *testing.T) {
	issuer, err := NewTokenIssuer("", time.Hour)
	if err != nil {
		t.Fatalf("empty key should fall back to an ephemeral one: %v", err)
	}
	token, err := issuer.Issue("PAT-001", RolePatient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Parse(token); err != nil {
		t.Errorf("self-issued token must parse: %v", err)
	}
}
