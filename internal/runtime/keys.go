package runtime

import (
	"github.com/google/uuid"
)

// KeyGenerator produces unique block keys.
type KeyGenerator interface {
	Next() string
}

// UUIDKeys generates time-sortable UUIDv7 block keys, so records sort by
// creation time.
type UUIDKeys struct{}

// Next panics if UUID generation fails.
func (UUIDKeys) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}
