package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeRecordVersionV1 = 1

	// version(1) + userID(8) + expiresAt(8) + userHash(32)
	codeRecordSize = 49
)

var (
	ErrCodeNotFound         = errors.New("autologin code not found")
	ErrCodeExists           = errors.New("autologin code hash already exists")
	ErrCodeRedisUnavailable = errors.New("autologin code redis unavailable")
)

// consumeCodeLua atomically performs GET→expiry-check→DEL on a code record.
// KEYS[1] = record key
// ARGV[1] = current unix timestamp (int string)
// ARGV[2] = "1" to delete on match, "0" to peek
//
// Returns record bytes on success, or error string "not_found" / "expired".
// Expired records are deleted on read regardless of the consume flag.
var consumeCodeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local nowUnix = tonumber(ARGV[1])

-- expiresAt is bytes 10..17 big-endian (after version(1) + userID(8))
local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 10, 17)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowUnix >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if ARGV[2] == '1' then
  redis.call('DEL', KEYS[1])
end
return data
`)

// CodeRecord is the persisted form of one issued autologin code. The secret
// itself is never stored; the record is reachable only through its code hash.
type CodeRecord struct {
	UserID    uint64
	UserHash  [32]byte
	ExpiresAt int64
}

// CodeStore persists autologin code records in Redis, keyed by the hex code
// hash under a configurable prefix.
type CodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCodeStore(redisClient redis.UniversalClient, prefix string) *CodeStore {
	if prefix == "" {
		prefix = "alc"
	}
	return &CodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *CodeStore) key(codeHash [32]byte) string {
	return s.prefix + ":" + hex.EncodeToString(codeHash[:])
}

// Save inserts a record under its code hash with the given TTL. A duplicate
// hash fails with ErrCodeExists rather than overwriting the live record.
func (s *CodeStore) Save(ctx context.Context, codeHash [32]byte, record *CodeRecord, ttl time.Duration) error {
	encoded, err := encodeCodeRecord(record)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(codeHash), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
	}
	if !ok {
		return ErrCodeExists
	}

	return nil
}

// Consume looks up a record by code hash. Expired records are treated as
// absent and deleted on read. When consume is true the matched record is
// deleted atomically with the lookup, enforcing at-most-one use.
func (s *CodeStore) Consume(ctx context.Context, codeHash [32]byte, consume bool) (*CodeRecord, error) {
	consumeFlag := "0"
	if consume {
		consumeFlag = "1"
	}

	result, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{s.key(codeHash)},
		time.Now().Unix(),
		consumeFlag,
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found", "expired":
			return nil, ErrCodeNotFound
		default:
			return nil, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrCodeRedisUnavailable)
	}

	record, decErr := decodeCodeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, decErr)
	}

	return record, nil
}

// SweepExpired deletes every record under the prefix whose embedded expiry is
// before the given timestamp and returns the number deleted. Redis key TTLs
// already reclaim most records; the sweep covers clock drift between the
// embedded expiry and the key TTL, and keeps the contract auditable. Safe to
// run concurrently with inserts and reads.
func (s *CodeStore) SweepExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.scanDelete(ctx, func(record *CodeRecord) bool {
		return record.ExpiresAt < before.Unix()
	})
}

// RevokeUser deletes every live record bound to the given user hash and
// returns the number deleted.
func (s *CodeStore) RevokeUser(ctx context.Context, userHash [32]byte) (int64, error) {
	return s.scanDelete(ctx, func(record *CodeRecord) bool {
		return bytes.Equal(record.UserHash[:], userHash[:])
	})
}

func (s *CodeStore) scanDelete(ctx context.Context, match func(*CodeRecord) bool) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 256).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					// Raced with a consume or TTL expiry; nothing to do.
					continue
				}
				return deleted, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
			}

			record, decErr := decodeCodeRecord(data)
			if decErr != nil {
				continue
			}
			if !match(record) {
				continue
			}

			n, err := s.redis.Del(ctx, key).Result()
			if err != nil {
				return deleted, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func encodeCodeRecord(record *CodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(codeRecordSize)

	buf.WriteByte(codeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.UserID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.UserHash[:])

	return buf.Bytes(), nil
}

func decodeCodeRecord(data []byte) (*CodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersionV1 {
		return nil, errors.New("invalid code record version")
	}

	record := &CodeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.UserID); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.UserHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
