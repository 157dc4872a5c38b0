package domain

import "errors"

// ErrSourceNotFound is returned by sources whose local input is absent.
var ErrSourceNotFound = errors.New("source not found")
