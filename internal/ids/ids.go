// Package ids generates the identifiers used for entities and requests.
package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a ULID suitable as a primary key. ULIDs sort by creation time,
// which keeps index pages warm on append-heavy tables.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewRequestID returns a lowercase ULID used to correlate log lines for a
// single request.
func NewRequestID() string {
	return strings.ToLower(New())
}
