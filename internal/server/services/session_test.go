package services

import (
	"errors"
	"testing"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/server/auth"
)

func TestSessionIssue_RoundTrip(t *testing.T) {
	cfg := testConfig()
	s := NewSessionService(cfg)
	p := testPrincipal(t, 1)

	token, err := s.Issue(p, cfg.IdentitySecret)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	principal, err := auth.GetPrincipalFromToken(token, []byte(cfg.SecretKey))
	if err != nil {
		t.Fatalf("GetPrincipalFromToken error: %v", err)
	}
	if principal != p.String() {
		t.Fatalf("want %s, got %s", p, principal)
	}
}

func TestSessionIssue_WrongSecret(t *testing.T) {
	s := NewSessionService(testConfig())

	if _, err := s.Issue(testPrincipal(t, 1), "nope"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}

func TestVerifyWatcher(t *testing.T) {
	cfg := testConfig()
	s := NewSessionService(cfg)

	if err := s.VerifyWatcher(cfg.WatcherSecret); err != nil {
		t.Fatalf("VerifyWatcher error: %v", err)
	}
	if err := s.VerifyWatcher("nope"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}
}
