package testfixtures

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces deterministic identifiers for tests. In prefix mode it
// yields "prefix-N"; in UUID mode it yields name-based UUIDs derived from a
// namespace and the counter, so values are valid UUIDs yet repeatable.
type IDGenerator struct {
	mu        sync.Mutex
	prefix    string
	namespace uuid.UUID
	useUUID   bool
	counter   uint64
}

// NewIDGenerator constructs a prefix generator. When prefix is empty, "id" is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// NewUUIDGenerator constructs a generator of deterministic UUIDs scoped to the
// supplied namespace name.
func NewUUIDGenerator(namespace string) *IDGenerator {
	return &IDGenerator{
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace)),
		useUUID:   true,
	}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	if g.useUUID {
		return uuid.NewSHA1(g.namespace, []byte(strconv.FormatUint(g.counter, 10))).String()
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return uuid.NewString
	}
	return g.Next
}

// Reset rewinds the counter so the sequence repeats.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
