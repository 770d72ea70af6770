// Package session generates the identifiers handed out to WebDriver clients.
package session

import (
	cryptorand "crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces session identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a fresh UUID string.
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return id.String(), nil
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() (string, error)

// NewID calls f.
func (f IDGeneratorFunc) NewID() (string, error) { return f() }

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(cryptorand.Reader, 0)
)

// NewElementID returns a lexically sortable element reference. Monotonic
// entropy is not safe for concurrent use, hence the lock.
func NewElementID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy)
	return strings.ToLower(id.String())
}

// WindowHandle derives the stable window handle reported for a session.
func WindowHandle(sessionID string) string {
	if sessionID == "" {
		return "window-unknown"
	}
	short := sessionID
	if i := strings.IndexByte(short, '-'); i > 0 {
		short = short[:i]
	}
	return "window-" + short
}
