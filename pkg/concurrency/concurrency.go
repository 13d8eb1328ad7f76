// Package concurrency implements the optimistic lock precondition shared by every editable
// record: clients echo back the updated_at they last read and stale writes are refused.
package concurrency

import (
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
)

// Tolerance absorbs sub-microsecond drift introduced by clients serialising timestamps.
const Tolerance = time.Microsecond

var acceptedLayouts = []string{time.RFC3339Nano, time.RFC3339}

// ParseTimestamp parses a client supplied RFC3339 timestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range acceptedLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "Invalid timestamp format.").
		WithDetails(map[string]any{"updated_at": raw})
}

// CheckUpdatedAt fails unless supplied matches stored within Tolerance.
func CheckUpdatedAt(entity string, supplied *string, stored time.Time) error {
	if supplied == nil || strings.TrimSpace(*supplied) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Missing 'updated_at' field for concurrency check.")
	}
	clientTS, err := ParseTimestamp(*supplied)
	if err != nil {
		return err
	}
	diff := stored.UTC().Sub(clientTS)
	if diff < 0 {
		diff = -diff
	}
	if diff > Tolerance {
		return pkgerrors.New(pkgerrors.CodeStaleRecord, fmt.Sprintf("This %s has been modified by someone else. Please refresh.", entity)).
			WithDetails(map[string]any{
				"current_updated_at": stored.UTC().Format(time.RFC3339Nano),
			})
	}
	return nil
}
