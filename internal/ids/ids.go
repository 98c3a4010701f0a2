package ids

import (
	crand "crypto/rand"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
// Row ids are not secrets; anything that must be unguessable goes through
// Unguessable, PublicID or NewAPIKeySecret instead.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Unguessable returns a ULID whose 80 entropy bits come from crypto/rand with
// no monotonic increment, so neighbouring ids reveal nothing about each other.
// Use it for ids that act as bearer capabilities.
func Unguessable() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), crand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
