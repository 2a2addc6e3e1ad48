package service

import (
	"context"
	"errors"

	"github.com/sakif/bookifyme/internal/apperror"
)

// maxConflictAttempts bounds how often a transaction is re-run after losing a
// UNIQUE race to a concurrent writer.
const maxConflictAttempts = 3

// retryOnConflict runs fn until it succeeds, fails with something other than
// a conflict, or maxConflictAttempts is reached. The last error is returned.
// Each attempt is expected to re-read what the winning writer created.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictAttempts; attempt++ {
		if err = fn(); err == nil || !errors.Is(err, apperror.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
