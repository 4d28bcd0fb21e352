package agent

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUserCancelled means the caller cancelled the question's context.
	ErrUserCancelled = errors.New("question cancelled")
	// ErrTimedOut means the question's deadline passed before an answer.
	ErrTimedOut = errors.New("question timed out")
)

// classifyContextErr maps context errors onto the agent's sentinels. Other
// errors pass through untouched.
func classifyContextErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserCancelled), errors.Is(err, ErrTimedOut):
		return err
	case errors.Is(err, context.Canceled):
		return ErrUserCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimedOut, err)
	default:
		return err
	}
}

// stopErr returns the error that ends the tool loop, or nil when err goes
// back to the model. Only the question's own context ending, or an explicit
// cancellation, stops the loop.
func stopErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyContextErr(ctxErr)
	}
	if errors.Is(err, ErrUserCancelled) || errors.Is(err, context.Canceled) {
		return ErrUserCancelled
	}
	return nil
}

func IsUserCancelled(err error) bool {
	return errors.Is(classifyContextErr(err), ErrUserCancelled)
}

func IsTimedOut(err error) bool {
	return errors.Is(classifyContextErr(err), ErrTimedOut)
}
