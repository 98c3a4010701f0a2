package ids

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// DefaultPublicIDLength is the length of payment link public ids.
	DefaultPublicIDLength = 12
	// DefaultAttempts bounds how many candidates Unique tries before giving up.
	DefaultAttempts = 3

	minPublicIDBytes = 9
	base62           = 62
)

// ErrExhausted is returned when every candidate produced by Unique was already taken.
var ErrExhausted = errors.New("ids: could not allocate a unique identifier")

// Reader is the randomness source. Tests may swap it; production code must not.
var Reader io.Reader = rand.Reader

// PublicID returns a random base62 string of exactly length characters.
// At least 9 random bytes are drawn regardless of the requested length.
func PublicID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("ids: invalid public id length %d", length)
	}
	// log2(62) ~ 5.95 bits per symbol; draw enough bytes to fill the requested length.
	n := (length*6+7)/8 + 1
	if n < minPublicIDBytes {
		n = minPublicIDBytes
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return "", fmt.Errorf("ids: read random: %w", err)
	}
	encoded := new(big.Int).SetBytes(buf).Text(base62)
	switch {
	case len(encoded) > length:
		encoded = encoded[:length]
	case len(encoded) < length:
		encoded = strings.Repeat("0", length-len(encoded)) + encoded
	}
	return encoded, nil
}

// Unique draws candidates from gen until taken reports one as free, trying at most
// attempts times. Storage-level uniqueness is still the final arbiter.
func Unique(ctx context.Context, attempts int, gen func() (string, error), taken func(context.Context, string) (bool, error)) (string, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := gen()
		if err != nil {
			return "", err
		}
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("ids: check candidate: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
