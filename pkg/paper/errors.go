package paper

import (
	"errors"
	"fmt"

	"github.com/dyluth/papernet/pkg/ledger"
)

var (
	// ErrInvalidPaper is returned when a submission or stored record carries
	// values that violate the paper invariants.
	ErrInvalidPaper = errors.New("invalid import paper")

	ErrIllegalTransition = errors.New("illegal state transition")
	ErrPermissionDenied  = errors.New("permission denied")
)

// IllegalStateTransitionError reports an action that is not permitted from the
// paper's current state.
type IllegalStateTransitionError struct {
	Key     string
	Current State
	Action  Action
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("paper %s cannot %s from state %s", ledger.FormatKey(e.Key), e.Action, e.Current)
}

func (e *IllegalStateTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// PermissionDeniedError reports that the caller or the paper failed the
// authorization rule for an action.
type PermissionDeniedError struct {
	Caller string
	Key    string
	Action Action
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	caller := e.Caller
	if caller == "" {
		caller = "anonymous caller"
	}
	return fmt.Sprintf("%s may not %s paper %s: %s", caller, e.Action, ledger.FormatKey(e.Key), e.Reason)
}

func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }
