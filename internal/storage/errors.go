package storage

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSourceTypeLocked is returned when changing the type of a source
	// that already produced items.
	ErrSourceTypeLocked = errors.New("source type is immutable once items exist")
	// ErrInvalidInterest is returned for empty topics or weights outside [0,2].
	ErrInvalidInterest = errors.New("invalid interest")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
