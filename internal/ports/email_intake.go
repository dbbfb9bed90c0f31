package ports

import (
	"context"
)

// EmailIntake receives mail from an external source and feeds it to the triage service
type EmailIntake interface {
	// Start begins receiving in the background
	Start(ctx context.Context) error

	// Stop stops receiving and waits for in-flight work
	Stop() error
}
