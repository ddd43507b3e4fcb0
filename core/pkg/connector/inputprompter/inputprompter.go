// Package inputprompter implements the interactive input prompt: a
// blocked operation parks until a matching out-of-band delivery arrives,
// bounded by a 60-second timeout. A shared signals map of execution_id →
// (params, channel) is guarded by a single mutex, with a channel-based
// rendezvous per call.
package inputprompter

import (
	"sync"
	"time"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
)

// Timeout bounds how long a parked operation waits for its delivery.
const Timeout = 60 * time.Second

type signal struct {
	params   any
	delivery chan any
}

// UserInput implements engine.InputPrompter.
//
// A panicking holder cannot poison a sync.Mutex, so no recovery path is
// needed around the signals map.
type UserInput struct {
	mu      sync.Mutex
	signals map[string]*signal
}

// New creates an empty prompter.
func New() *UserInput {
	return &UserInput{signals: make(map[string]*signal)}
}

// Run parks params under ctx.ExecutionID until ProvideInput delivers a
// value or Timeout elapses.
func (u *UserInput) Run(params any, ctx *engine.ExecutionContext) (any, error) {
	sig := &signal{params: params, delivery: make(chan any, 1)}

	u.mu.Lock()
	u.signals[ctx.ExecutionID] = sig
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		delete(u.signals, ctx.ExecutionID)
		u.mu.Unlock()
	}()

	select {
	case value := <-sig.delivery:
		return value, nil
	case <-time.After(Timeout):
		return nil, connectorerr.New(connectorerr.ErrTimeout, ctx.ExecutionID, "input prompter")
	}
}

// ProvideInput delivers value to the prompter waiting on executionID, if
// any. Returns false if no prompter is currently parked for that id.
func (u *UserInput) ProvideInput(executionID string, value any) bool {
	u.mu.Lock()
	sig, ok := u.signals[executionID]
	u.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case sig.delivery <- value:
		return true
	default:
		return false
	}
}

// PendingPrompt returns the parked params for executionID, used by
// GetRunResult to surface the Waiting payload.
func (u *UserInput) PendingPrompt(executionID string) (any, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	sig, ok := u.signals[executionID]
	if !ok {
		return nil, false
	}
	return sig.params, true
}
