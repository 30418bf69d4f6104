package limiters

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*miniredis.Miniredis, *FailureLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := New(client, "alf", Config{
		MaxAttempts: 5,
		Window:      24 * time.Hour,
	})
	return mr, limiter
}

func u(id uint64) *uint64 { return &id }

func TestFailureLimiterBlocksAtMaxAttempts(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i+1, err)
		}
	}

	blocked, err := limiter.IsUserBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsUserBlocked failed: %v", err)
	}
	if blocked {
		t.Fatal("user blocked at 4 failures, budget is 5")
	}

	if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
		t.Fatalf("RecordFailure 5 failed: %v", err)
	}

	blocked, err = limiter.IsUserBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsUserBlocked failed: %v", err)
	}
	if !blocked {
		t.Fatal("user not blocked at 5 failures")
	}

	blocked, err = limiter.IsIPBlocked(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IsIPBlocked failed: %v", err)
	}
	if !blocked {
		t.Fatal("IP not blocked at 5 failures")
	}
}

func TestFailureLimiterCountsAreIndependent(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	// One IP spraying five different user ids: the IP trips, no user does.
	for i := uint64(1); i <= 5; i++ {
		if err := limiter.RecordFailure(ctx, u(i), "10.0.0.1", ""); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	blocked, err := limiter.IsIPBlocked(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IsIPBlocked failed: %v", err)
	}
	if !blocked {
		t.Fatal("spraying IP should be blocked")
	}

	for i := uint64(1); i <= 5; i++ {
		blocked, err := limiter.IsUserBlocked(ctx, i)
		if err != nil {
			t.Fatalf("IsUserBlocked failed: %v", err)
		}
		if blocked {
			t.Fatalf("user %d blocked on a single failure", i)
		}
	}
}

func TestFailureLimiterWindowExpires(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	mr.FastForward(25 * time.Hour)

	blocked, err := limiter.IsUserBlocked(ctx, 42)
	if err != nil {
		t.Fatalf("IsUserBlocked failed: %v", err)
	}
	if blocked {
		t.Fatal("block should expire with the window")
	}

	count, err := limiter.UserFailures(ctx, 42)
	if err != nil {
		t.Fatalf("UserFailures failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero failures after expiry, got %d", count)
	}
}

func TestFailureLimiterWindowIsFixedFromFirstFailure(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	// Later failures must not refresh the TTL set by the first one.
	mr.FastForward(23 * time.Hour)
	if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	count, err := limiter.UserFailures(ctx, 42)
	if err != nil {
		t.Fatalf("UserFailures failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("window was refreshed: count %d after original window elapsed", count)
	}
}

func TestFailureLimiterMalformedCountsIPOnly(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	if err := limiter.RecordFailure(ctx, nil, "10.0.0.1", "abc~xyz"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	ipCount, err := limiter.IPFailures(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IPFailures failed: %v", err)
	}
	if ipCount != 1 {
		t.Fatalf("expected 1 IP failure, got %d", ipCount)
	}

	targets, err := limiter.IPFailureTargets(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IPFailureTargets failed: %v", err)
	}
	if len(targets) != 1 || targets[0] != "malformed:abc~xyz" {
		t.Fatalf("unexpected metadata: %v", targets)
	}
}

func TestFailureLimiterMalformedPayloadTruncated(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	huge := strings.Repeat("A", 4096)
	if err := limiter.RecordFailure(ctx, nil, "10.0.0.1", huge); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	targets, err := limiter.IPFailureTargets(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IPFailureTargets failed: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(targets))
	}
	if len(targets[0]) > len("malformed:")+maxRecordedPayload {
		t.Fatalf("payload not truncated: %d bytes", len(targets[0]))
	}
}

func TestFailureLimiterMetadataRecordsTargets(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if err := limiter.RecordFailure(ctx, u(99), "10.0.0.1", ""); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	ips, err := limiter.UserFailureIPs(ctx, 42)
	if err != nil {
		t.Fatalf("UserFailureIPs failed: %v", err)
	}
	if len(ips) != 1 || ips[0] != "10.0.0.1" {
		t.Fatalf("unexpected user metadata: %v", ips)
	}

	targets, err := limiter.IPFailureTargets(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IPFailureTargets failed: %v", err)
	}
	if len(targets) != 2 || targets[0] != "42" || targets[1] != "99" {
		t.Fatalf("unexpected IP metadata: %v", targets)
	}
}

func TestFailureLimiterMetadataCapped(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	for i := uint64(0); i < metadataCap+10; i++ {
		if err := limiter.RecordFailure(ctx, u(i), "10.0.0.1", ""); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	targets, err := limiter.IPFailureTargets(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("IPFailureTargets failed: %v", err)
	}
	if len(targets) != metadataCap {
		t.Fatalf("expected %d entries after trim, got %d", metadataCap, len(targets))
	}
	// Oldest entries are dropped first.
	if targets[0] != "10" {
		t.Fatalf("expected oldest surviving entry 10, got %s", targets[0])
	}
}

func TestFailureLimiterEmptyIPIsNoOp(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	defer mr.Close()

	ctx := context.Background()

	blocked, err := limiter.IsIPBlocked(ctx, "")
	if err != nil {
		t.Fatalf("IsIPBlocked failed: %v", err)
	}
	if blocked {
		t.Fatal("empty IP must never read as blocked")
	}

	// Malformed with no IP has nothing to attribute: a pure no-op.
	if err := limiter.RecordFailure(ctx, nil, "", "garbage"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
}

func TestFailureLimiterUnavailable(t *testing.T) {
	mr, limiter := newTestLimiter(t)
	mr.Close()

	ctx := context.Background()

	if _, err := limiter.IsUserBlocked(ctx, 42); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
	}
	if err := limiter.RecordFailure(ctx, u(42), "10.0.0.1", ""); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
	}
}
