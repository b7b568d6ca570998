package utils

import "github.com/google/uuid"

// NewID returns a time-ordered identifier (UUIDv7), so ids sort by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
