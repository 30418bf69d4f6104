package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLimiterUnavailable = errors.New("failure limiter unavailable")
)

const (
	// metadataCap bounds each audit metadata list. Older entries are trimmed
	// first; the counter, not the list, drives the lockout decision.
	metadataCap = 64

	// maxRecordedPayload truncates malformed tokens kept for audit so a
	// hostile client cannot inflate the metadata list with huge payloads.
	maxRecordedPayload = 128
)

// Config holds failure limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// FailureLimiter tracks failed verification attempts per source IP and per
// target user id with a fixed 24-hour-style window from the first failure.
type FailureLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

func New(redisClient redis.UniversalClient, prefix string, cfg Config) *FailureLimiter {
	if prefix == "" {
		prefix = "alf"
	}
	return &FailureLimiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (l *FailureLimiter) userKey(userID uint64) string {
	return l.prefix + ":u:" + strconv.FormatUint(userID, 10)
}

func (l *FailureLimiter) userMetaKey(userID uint64) string {
	return l.prefix + ":um:" + strconv.FormatUint(userID, 10)
}

func (l *FailureLimiter) ipKey(ip string) string {
	return l.prefix + ":ip:" + ip
}

func (l *FailureLimiter) ipMetaKey(ip string) string {
	return l.prefix + ":ipm:" + ip
}

// IsUserBlocked reports whether the user's failure count has reached the
// attempt budget. Missing records count as zero.
func (l *FailureLimiter) IsUserBlocked(ctx context.Context, userID uint64) (bool, error) {
	return l.isBlocked(ctx, l.userKey(userID))
}

// IsIPBlocked reports whether the IP's failure count has reached the attempt
// budget. Missing records count as zero.
func (l *FailureLimiter) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}
	return l.isBlocked(ctx, l.ipKey(ip))
}

// RecordFailure increments the per-user record (when a user id was parsed)
// and the per-IP record. When userID is nil the attempt was malformed: only
// the IP record is touched and the raw token is appended to its metadata
// list in place of a target user id.
func (l *FailureLimiter) RecordFailure(ctx context.Context, userID *uint64, ip, rawToken string) error {
	if userID != nil {
		if err := l.increment(ctx, l.userKey(*userID)); err != nil {
			return err
		}
		if ip != "" {
			if err := l.appendMetadata(ctx, l.userMetaKey(*userID), ip); err != nil {
				return err
			}
		}
	}

	if ip == "" {
		return nil
	}

	if err := l.increment(ctx, l.ipKey(ip)); err != nil {
		return err
	}

	var entry string
	if userID != nil {
		entry = strconv.FormatUint(*userID, 10)
	} else {
		if len(rawToken) > maxRecordedPayload {
			rawToken = rawToken[:maxRecordedPayload]
		}
		entry = "malformed:" + rawToken
	}

	return l.appendMetadata(ctx, l.ipMetaKey(ip), entry)
}

// UserFailures returns the current failure count for a user id.
func (l *FailureLimiter) UserFailures(ctx context.Context, userID uint64) (int64, error) {
	return l.count(ctx, l.userKey(userID))
}

// IPFailures returns the current failure count for an IP.
func (l *FailureLimiter) IPFailures(ctx context.Context, ip string) (int64, error) {
	return l.count(ctx, l.ipKey(ip))
}

// UserFailureIPs returns the audit list of IPs that failed against a user id.
func (l *FailureLimiter) UserFailureIPs(ctx context.Context, userID uint64) ([]string, error) {
	return l.metadata(ctx, l.userMetaKey(userID))
}

// IPFailureTargets returns the audit list of user ids (or malformed payloads)
// an IP has failed against.
func (l *FailureLimiter) IPFailureTargets(ctx context.Context, ip string) ([]string, error) {
	return l.metadata(ctx, l.ipMetaKey(ip))
}

func (l *FailureLimiter) isBlocked(ctx context.Context, key string) (bool, error) {
	count, err := l.count(ctx, key)
	if err != nil {
		return false, err
	}
	return count >= int64(l.config.MaxAttempts), nil
}

func (l *FailureLimiter) count(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return count, nil
}

func (l *FailureLimiter) increment(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	// Fixed-window semantics: the TTL is set once, on the first failure, and
	// never refreshed by later increments. The record resets only by expiry.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	return nil
}

func (l *FailureLimiter) appendMetadata(ctx context.Context, key, entry string) error {
	length, err := l.redis.RPush(ctx, key, entry).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if length == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
	if length > metadataCap {
		if err := l.redis.LTrim(ctx, key, -metadataCap, -1).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	return nil
}

func (l *FailureLimiter) metadata(ctx context.Context, key string) ([]string, error) {
	entries, err := l.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return entries, nil
}
