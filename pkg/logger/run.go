package logger

import (
	"context"

	"github.com/google/uuid"
)

// StartRun adds a fresh run ID to the context and returns it.
func StartRun(ctx context.Context) (context.Context, string) {
	runID := uuid.New().String()
	return WithRunID(ctx, runID), runID
}
