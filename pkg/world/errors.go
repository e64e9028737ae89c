package world

import "errors"

// Programmer errors. Rule violations (range, energy, ownership) are not
// errors; they come back as statuses on the result records.
var (
	ErrInvalidCoordinates = errors.New("world: invalid coordinates")
	ErrInvalidRadius      = errors.New("world: radius out of range")
	ErrInvalidLevel       = errors.New("world: level must be a positive integer")
	ErrInvalidAllianceTag = errors.New("world: alliance tag must be 3-4 characters of A-Z or 0-9")
	ErrInvalidUserID      = errors.New("world: user id must be non-empty")
)
