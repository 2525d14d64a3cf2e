// Package idgen provides an injectable identifier and token source.
// Services take a Generator instead of calling uuid.New at call sites so
// tests can substitute a deterministic sequence.
package idgen

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator mints entity IDs and opaque invite tokens.
type Generator interface {
	NewID() string
	NewToken() string
}

// UUID is the production Generator backed by random UUIDs.
type UUID struct{}

// NewUUID constructs the production generator.
func NewUUID() *UUID { return &UUID{} }

func (*UUID) NewID() string { return uuid.NewString() }

// NewToken returns an invite token. Tokens are opaque random strings, not
// JWTs; they carry no claims and are validated only by store lookup.
func (*UUID) NewToken() string { return uuid.NewString() }

// Sequence is a deterministic Generator for tests: id-1, id-2, ... and
// token-1, token-2, ...
type Sequence struct {
	mu     sync.Mutex
	ids    int
	tokens int
}

func (s *Sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids++
	return "id-" + strconv.Itoa(s.ids)
}

func (s *Sequence) NewToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens++
	return "token-" + strconv.Itoa(s.tokens)
}
