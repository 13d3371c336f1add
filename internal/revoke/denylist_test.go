package revoke

import (
	"context"
	"testing"
	"time"
)

func TestMemoryDenylistRevokesUntilExpiry(t *testing.T) {
	list := NewMemory()
	current := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	list.now = func() time.Time { return current }

	ctx := context.Background()
	if err := list.Revoke(ctx, "jti-1", current.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err := list.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected jti-1 revoked, got %v err=%v", revoked, err)
	}

	revoked, err = list.IsRevoked(ctx, "jti-2")
	if err != nil || revoked {
		t.Fatalf("expected jti-2 not revoked, got %v err=%v", revoked, err)
	}

	// Once past the natural expiry the entry is dropped.
	current = current.Add(2 * time.Hour)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected expired entry to be forgotten, got %v err=%v", revoked, err)
	}
}

func TestMemoryDenylistIgnoresEmptyJTI(t *testing.T) {
	list := NewMemory()
	if err := list.Revoke(context.Background(), "", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err := list.IsRevoked(context.Background(), "")
	if err != nil || revoked {
		t.Fatalf("empty jti must never read as revoked, got %v err=%v", revoked, err)
	}
}
