package auth

import (
	"testing"
	"time"
)

func TestNewResetToken(t *testing.T) {
	t.Parallel()

	plain, hashed, expiresAt, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken error: %v", err)
	}

	if len(plain) != 64 {
		t.Fatalf("plain token length = %d, want 64 hex chars", len(plain))
	}
	if plain == hashed {
		t.Fatal("plain token must never equal its stored hash")
	}
	if HashResetToken(plain) != hashed {
		t.Fatal("hash of plain token does not match stored hash")
	}

	window := time.Until(expiresAt)
	if window <= 9*time.Minute || window > 10*time.Minute {
		t.Fatalf("expiry window %v, want ~10 minutes", window)
	}
}

func TestHashResetToken_WrongCandidateFails(t *testing.T) {
	t.Parallel()

	plain, hashed, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken error: %v", err)
	}

	if HashResetToken(plain+"x") == hashed {
		t.Fatal("tampered candidate must not match stored hash")
	}
	if HashResetToken("") == hashed {
		t.Fatal("empty candidate must not match stored hash")
	}
}

func TestNewResetToken_Unique(t *testing.T) {
	t.Parallel()

	a, _, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken error: %v", err)
	}
	b, _, _, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken error: %v", err)
	}
	if a == b {
		t.Fatal("two minted tokens collided")
	}
}
