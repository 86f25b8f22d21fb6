package cli

import (
	"errors"

	"genesis/internal/domain"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailed   = 1
	ExitInternal = 2
)

// ExitCode maps an error returned by a command to the process exit code:
// 0 on success, 1 when validation failed, input was missing or the user
// declined, 2 for parse errors and anything unexpected.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrMissingInput),
		errors.Is(err, domain.ErrAborted):
		return ExitFailed
	default:
		return ExitInternal
	}
}
