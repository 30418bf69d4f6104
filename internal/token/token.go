package token

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"strconv"
	"strings"
)

// Delimiter separates the user id from the secret in the wire format.
// Secrets are alphanumeric, so the first delimiter is always the boundary.
const Delimiter = "~"

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MinSecretLength is the smallest secret the generator accepts. 32 characters
// from a 62-character alphabet is ~190 bits of entropy.
const MinSecretLength = 32

var (
	// ErrMalformed indicates the raw token does not match the
	// "{user_id}~{secret}" wire format.
	ErrMalformed = errors.New("malformed autologin token")

	// ErrSecretLength indicates a generation request below MinSecretLength.
	ErrSecretLength = errors.New("secret length below minimum")
)

// NewSecret returns a cryptographically random alphanumeric string of the
// given length. Every character is safe for unescaped inclusion in a URL
// query parameter.
func NewSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", ErrSecretLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	// Rejection sampling keeps the distribution uniform over the 62-character
	// alphabet. 62*4 = 248, so bytes >= 248 are redrawn.
	const limit = byte(len(secretAlphabet) * 4)

	out := make([]byte, 0, length)
	for len(out) < length {
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, secretAlphabet[int(b)%len(secretAlphabet)])
			if len(out) == length {
				break
			}
		}
		if len(out) < length {
			if _, err := rand.Read(buf); err != nil {
				return "", err
			}
		}
	}

	return string(out), nil
}

// Encode packs a user id and secret into the wire format.
func Encode(userID uint64, secret string) string {
	return strconv.FormatUint(userID, 10) + Delimiter + secret
}

// Decode splits a raw token into user id and secret. It fails with
// ErrMalformed when the delimiter is missing, the user portion is empty or
// not a base-10 non-negative integer, or the secret portion is empty or
// contains characters outside [A-Za-z0-9].
func Decode(raw string) (uint64, string, error) {
	parts := strings.SplitN(raw, Delimiter, 2)
	if len(parts) != 2 {
		return 0, "", ErrMalformed
	}

	userPart, secret := parts[0], parts[1]
	if userPart == "" || secret == "" {
		return 0, "", ErrMalformed
	}
	if !isDigits(userPart) {
		return 0, "", ErrMalformed
	}
	if !isAlphanumeric(secret) {
		return 0, "", ErrMalformed
	}

	userID, err := strconv.ParseUint(userPart, 10, 64)
	if err != nil {
		return 0, "", ErrMalformed
	}

	return userID, secret, nil
}

// CodeHash derives the store lookup key digest: sha256(decimal user id ∥ secret).
func CodeHash(userID uint64, secret string) [32]byte {
	return sha256.Sum256([]byte(strconv.FormatUint(userID, 10) + secret))
}

// UserHash binds a record to a user independent of the secret:
// sha256(server salt ∥ decimal user id).
func UserHash(salt []byte, userID uint64) [32]byte {
	buf := make([]byte, 0, len(salt)+20)
	buf = append(buf, salt...)
	buf = strconv.AppendUint(buf, userID, 10)
	return sha256.Sum256(buf)
}

func isDigits(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

func isAlphanumeric(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
