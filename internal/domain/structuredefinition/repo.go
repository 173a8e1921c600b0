package structuredefinition

import "errors"

// ErrProfileNotFound is returned when no StructureDefinition exists for a
// profile id.
var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	GetByID(id string) (*Profile, error)
}
