package autologin

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSweepExpiredCodesCountsOnlyStale(t *testing.T) {
	engine, _, done := newVerifyEngine(t, verifyTestConfig())
	defer done()

	ctx := context.Background()

	if _, err := engine.Issue(ctx, 42, time.Minute); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.Issue(ctx, 123, time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// A cutoff past the 1m record's embedded expiry but short of the 1h one:
	// exactly one record qualifies, without advancing miniredis clocks.
	n, err := engine.SweepExpiredCodes(ctx, time.Now().Add(30*time.Minute))
	if err != nil {
		t.Fatalf("SweepExpiredCodes failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}

	if got := engine.MetricsSnapshot().Counters[MetricCodesSwept]; got != 1 {
		t.Fatalf("expected 1 swept metric, got %d", got)
	}
}

func TestSweepExpiredCodesIdempotent(t *testing.T) {
	engine, _, done := newVerifyEngine(t, verifyTestConfig())
	defer done()

	ctx := context.Background()

	if _, err := engine.Issue(ctx, 42, time.Minute); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	cutoff := time.Now().Add(30 * time.Minute)
	if _, err := engine.SweepExpiredCodes(ctx, cutoff); err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}

	n, err := engine.SweepExpiredCodes(ctx, cutoff)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep should find nothing, got %d", n)
	}
}

func TestRevokeUserCodes(t *testing.T) {
	engine, _, done := newVerifyEngine(t, verifyTestConfig())
	defer done()

	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		issued, err := engine.Issue(ctx, 42, time.Hour)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		tokens = append(tokens, issued.Token)
	}
	other, err := engine.Issue(ctx, 123, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	n, err := engine.RevokeUserCodes(ctx, 42)
	if err != nil {
		t.Fatalf("RevokeUserCodes failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}

	for _, raw := range tokens {
		result, err := engine.Verify(ctx, raw)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if result.OK {
			t.Fatal("revoked code must not verify")
		}
	}

	// The other user's code is untouched.
	result, err := engine.Verify(ctx, other.Token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("unrelated user's code should survive, got %s", result.Reason)
	}
}

func TestSweepStoreUnavailable(t *testing.T) {
	engine, mr, done := newVerifyEngine(t, verifyTestConfig())
	defer done()

	mr.Close()

	if _, err := engine.SweepExpiredCodes(context.Background(), time.Now()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := engine.RevokeUserCodes(context.Background(), 42); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestBackgroundSweeperRuns(t *testing.T) {
	cfg := verifyTestConfig()
	cfg.Codes.SweepInterval = 10 * time.Millisecond

	engine, _, done := newVerifyEngine(t, cfg)
	defer done()

	// Nothing to sweep; this only proves the sweeper starts and Close stops
	// it without deadlocking.
	time.Sleep(50 * time.Millisecond)
	engine.Close()
}
