// Package lock serialises writes to a veterinarian's agenda.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when the lock could not be taken within the wait budget.
var ErrBusy = errors.New("lock is held by another request")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

type Locker interface {
	// Acquire blocks until key is held, ctx is done or the wait budget runs out.
	Acquire(ctx context.Context, key string) (Unlock, error)
}

const retryInterval = 25 * time.Millisecond
