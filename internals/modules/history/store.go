package history

import (
	"context"
	"fmt"
	"time"

	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
)

// Store is the append-only, per-monitor log of check results.
//
// Appends for one monitor are serialized by the store itself; appends for
// different monitors never share a lock.
type Store interface {
	Append(ctx context.Context, r CheckResult) error
	Query(ctx context.Context, monitorID uuid.UUID, from, to time.Time) ([]CheckResult, error)
	Latest(ctx context.Context, monitorID uuid.UUID, limit int) ([]CheckResult, error)
	Evict(ctx context.Context, monitorID uuid.UUID, olderThan time.Time) (int, error)
	Delete(ctx context.Context, monitorID uuid.UUID) error
	MonitorIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ErrInvalidResult is returned by Append when a result breaks the ordering
// invariant or is malformed.
var ErrInvalidResult = &apperror.Error{
	Kind:    apperror.InvalidResult,
	Message: "check result rejected by history store",
}

func invalidResult(op string, format string, args ...any) error {
	return ErrInvalidResult.WithOp(op).WithErr(fmt.Errorf(format, args...))
}

// validate checks the shape of a result before it touches storage.
func validate(op string, r CheckResult) error {
	if r.MonitorID == uuid.Nil {
		return invalidResult(op, "missing monitor id")
	}
	if r.Timestamp.IsZero() {
		return invalidResult(op, "missing timestamp")
	}
	if !r.Outcome.Valid() {
		return invalidResult(op, "unknown outcome %q", r.Outcome)
	}
	if r.Outcome.IsUp() && r.ResponseTimeMs == nil {
		return invalidResult(op, "up result without response time")
	}
	if !r.Outcome.IsUp() && r.ResponseTimeMs != nil {
		return invalidResult(op, "%s result carries a response time", r.Outcome)
	}
	return nil
}
