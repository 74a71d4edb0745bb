package model

import "github.com/oklog/ulid/v2"

// NewID returns a fresh job identifier. ULIDs sort by creation time, which
// keeps job listings stable without a separate sequence.
func NewID() string {
	return ulid.Make().String()
}
