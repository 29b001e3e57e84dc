package interfaces

import (
	"context"
	"time"
)

// Clock abstracts time so the loop can be driven deterministically
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}

// Acknowledger blocks until the operator confirms they have seen the result
type Acknowledger interface {
	WaitForAcknowledgement(ctx context.Context) error
}
