// Package errs defines the error taxonomy shared by every warden store.
//
// Callers branch with errors.Is; components wrap these sentinels with
// fmt.Errorf("...: %w", errs.ErrNotFound) to add context without losing
// the category.
package errs

import "errors"

var (
	// ErrNotFound indicates a team, entry, or other record is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest indicates malformed input, such as an empty
	// required field or an unknown action.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDenied indicates a negative access decision. CheckAccess itself
	// returns a boolean verdict; this sentinel is for callers that need
	// to propagate a denial as an error.
	ErrDenied = errors.New("access denied")

	// ErrExpired indicates a grant or entry past its validity window.
	ErrExpired = errors.New("expired")
)
