package models

import "github.com/rotisserie/eris"

var (
	// ErrInvalidInput marks caller mistakes: bad ranges, empty identifiers, missing files.
	ErrInvalidInput = eris.New("invalid input")
	// ErrNotFound is returned when a parse-state transition matches no catalog record.
	ErrNotFound = eris.New("filing not found")
	// ErrNoFilingDate is returned when a bundle header carries no recognizable filing date.
	ErrNoFilingDate = eris.New("filing date not found")
)
