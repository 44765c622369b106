// Package gameid generates the short opaque ids used for games and matches.
package gameid

import (
	"fmt"

	"github.com/google/uuid"
)

// Length is the id length in hex characters.
const Length = 8

// New returns a short id: the first 8 hex characters of a fresh uuid.
// Collisions are improbable at this length but not impossible; callers
// inserting into a keyed collection must retry on collision.
func New() string {
	return uuid.NewString()[:Length]
}

// Validate checks that an id is exactly 8 lowercase hex characters.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("id must be exactly %d characters, got %d", Length, len(id))
	}
	for i, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
