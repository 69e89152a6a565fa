package auth

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  Manager ")
	if err != nil || r != RoleManager {
		t.Fatalf("expected manager, got %q err=%v", r, err)
	}
	if _, err = ParseRole("root"); err == nil {
		t.Fatalf("expected unknown role error")
	}
	if _, err = ParseRole(""); err == nil {
		t.Fatalf("expected error for empty role")
	}
}

func TestRole_IsKnown(t *testing.T) {
	for _, r := range KnownRoles {
		if !r.IsKnown() {
			t.Fatalf("expected %q known", r)
		}
	}
	if Role("superuser").IsKnown() {
		t.Fatalf("did not expect superuser to be known")
	}
}

func TestPrincipal_Validate(t *testing.T) {
	p := Principal{ID: "u1", Email: "u1@example.com", Role: RoleClient, Active: true}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Principal{Email: "x@example.com"}).Validate(); err == nil {
		t.Fatalf("expected missing id error")
	}
	if err := (Principal{ID: "u1"}).Validate(); err == nil {
		t.Fatalf("expected missing email error")
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()
	s := Session{
		ID:        "s1",
		Principal: Principal{ID: "u1", Email: "u1@example.com", Role: RoleEmployee, Active: true},
		ExpiresAt: now.Add(time.Hour),
	}
	if !s.Valid(now) {
		t.Fatalf("expected valid session")
	}
	if (Session{}).Valid(now) {
		t.Fatalf("zero session should be invalid")
	}

	expired := s
	expired.ExpiresAt = now.Add(-time.Second)
	if expired.Valid(now) {
		t.Fatalf("expired session should be invalid")
	}

	broken := s
	broken.Principal.Email = ""
	if broken.Valid(now) {
		t.Fatalf("session with incomplete principal should be invalid")
	}
}
