package keybackend

import (
	"errors"
	"fmt"

	"github.com/sagarc03/storehouse"
)

var (
	// ErrEmptySecret is returned when a key file holds only whitespace.
	ErrEmptySecret = errors.New("key file is empty")
	// ErrNoSecret is returned when neither an inline secret nor a key file
	// is available. It matches storehouse.ErrMissingSecret.
	ErrNoSecret = fmt.Errorf("no secret configured: %w", storehouse.ErrMissingSecret)
)
