package models

import (
	"testing"
	"time"
)

func TestTokenBundleIsExpiringWithinGraceWindow(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	tok := &TokenBundle{ExpiresAt: now.Unix() + 299}
	if !tok.IsExpiring(now) {
		t.Fatalf("expected token expiring within 299s to be considered expiring")
	}
	if tok.IsExpired(now) {
		t.Fatalf("token with 299s left should not be considered hard-expired")
	}
}

func TestTokenBundleNotExpiringOutsideGraceWindow(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	tok := &TokenBundle{ExpiresAt: now.Unix() + 301}
	if tok.IsExpiring(now) {
		t.Fatalf("expected token with 301s left not to be considered expiring")
	}
}

func TestTokenBundleIsExpired(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	tok := &TokenBundle{ExpiresAt: now.Unix() - 1}
	if !tok.IsExpired(now) {
		t.Fatalf("expected past-expiry token to be expired")
	}
}
