// Package tx provides the transaction handle abstraction used by repository
// backends. A handle is a scoped unit of work with an explicit lifecycle:
//
//	not-started -> active -> (committed | rolled-back) -> closed
//
// Whoever obtains a handle owns its entire lifecycle and must close it on
// every exit path. Operations that accept an externally supplied handle
// participate in it and must never call Begin, Commit, Rollback or Close on
// it themselves.
package tx

import (
	"context"
	"fmt"
)

// Tx represents one repository transaction.
type Tx interface {
	// Begin starts the transaction. It fails when called on a handle that is
	// not in the not-started state.
	Begin(ctx context.Context) error
	// Commit makes all changes performed within the transaction durable. It
	// fails when the transaction is not active.
	Commit() error
	// Rollback discards all changes performed within the transaction. It
	// fails when the transaction is not active.
	Rollback() error
	// Close releases the resources held by the handle. Close is idempotent
	// and safe to call after Commit or Rollback, or even if Begin was never
	// called. Closing an active transaction rolls it back first.
	Close() error
	// State returns the current lifecycle state.
	State() State
	// Active reports whether the handle is currently usable for writes.
	Active() bool
}

// State enumerates the lifecycle states of a transaction handle.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateCommitted
	StateRolledBack
	StateClosed
)

// String returns a readable name for the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Lifecycle enforces the legal transitions of a transaction handle. Backend
// implementations embed it so the state machine is checked uniformly.
// Lifecycle is not safe for concurrent use; a handle belongs to one caller.
type Lifecycle struct {
	state State
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State { return l.state }

// TransitionBegin moves the handle from not-started to active.
func (l *Lifecycle) TransitionBegin() error {
	if l.state != StateNotStarted {
		return fmt.Errorf("cannot begin transaction in state %s", l.state)
	}
	l.state = StateActive
	return nil
}

// TransitionCommit moves the handle from active to committed.
func (l *Lifecycle) TransitionCommit() error {
	if l.state != StateActive {
		return fmt.Errorf("cannot commit transaction in state %s", l.state)
	}
	l.state = StateCommitted
	return nil
}

// TransitionRollback moves the handle from active to rolled-back.
func (l *Lifecycle) TransitionRollback() error {
	if l.state != StateActive {
		return fmt.Errorf("cannot roll back transaction in state %s", l.state)
	}
	l.state = StateRolledBack
	return nil
}

// TransitionClose moves the handle to closed from any state. It returns the
// state the handle was in, so implementations can roll back a still-active
// transaction before releasing it. Calling it on an already closed handle is
// a no-op.
func (l *Lifecycle) TransitionClose() State {
	prev := l.state
	l.state = StateClosed
	return prev
}

// Active reports whether the handle is currently usable for writes.
func (l *Lifecycle) Active() bool { return l.state == StateActive }
