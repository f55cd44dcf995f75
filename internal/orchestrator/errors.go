package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an operation failure. Every expected failure mode maps
// to exactly one kind so callers can render precise messages without
// re-deriving the cause.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindDependency        Kind = "dependency"
	KindValidation        Kind = "validation"
	KindPersistence       Kind = "persistence"
)

// OpError is the structured failure result of an orchestrator operation.
// These are expected, recoverable conditions; only genuine invariant
// violations panic.
type OpError struct {
	Kind Kind
	// Op names the operation that failed, e.g. "create_task".
	Op string
	// EntityID identifies the offending workstream/plan/task when known.
	EntityID string
	// Cycle holds the dependency cycle witness for KindDependency
	// failures caused by a cycle, in edge order ending where it began.
	Cycle []string
	// Missing holds dependency ids that do not exist in the plan.
	Missing []string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Kind)
	if e.EntityID != "" {
		fmt.Fprintf(&b, " (%s)", e.EntityID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, ": cycle %s", strings.Join(e.Cycle, " -> "))
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *OpError of the given kind.
func IsKind(err error, kind Kind) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Kind == kind
}

func notFound(op, entityID, message string) *OpError {
	return &OpError{Kind: KindNotFound, Op: op, EntityID: entityID, Message: message}
}

func invalidTransition(op, entityID, message string) *OpError {
	return &OpError{Kind: KindInvalidTransition, Op: op, EntityID: entityID, Message: message}
}

func validation(op, message string) *OpError {
	return &OpError{Kind: KindValidation, Op: op, Message: message}
}

func persistence(op, entityID string, err error) *OpError {
	return &OpError{Kind: KindPersistence, Op: op, EntityID: entityID, Message: "save failed", Err: err}
}
