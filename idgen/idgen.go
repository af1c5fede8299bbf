// Package idgen provides pluggable identifier generation.
//
// Registries and journals accept a Generator so tests can substitute a
// deterministic one. Identifiers that act as capabilities (connection and
// document ids) must come from Random.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces unique string identifiers.
type Generator func() string

// Random returns a Generator of RFC 9562 version 4 UUIDs drawn from
// crypto/rand. Use it for ids a client presents back to the server.
func Random() Generator {
	return func() string {
		return uuid.Must(uuid.NewRandom()).String()
	}
}

// UUIDv7 returns a Generator of time-sortable UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// ULID returns a Generator of lexicographically sortable ULIDs.
func ULID() Generator {
	return func() string {
		return ulid.Make().String()
	}
}

// Sequential returns a Generator of prefix1, prefix2, ... for tests.
func Sequential(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(n.Add(1), 10)
	}
}

// Prefixed prepends a fixed prefix to every id of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is used where no generator is configured.
var Default Generator = UUIDv7()
