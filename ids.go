package grantkit

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newEntryID returns a lexicographically sortable identifier for provenance
// entries. Sorting by ID reproduces insertion order within a pair.
func newEntryID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// newRequestID returns a random identifier for membership requests.
func newRequestID() string {
	return uuid.NewString()
}
