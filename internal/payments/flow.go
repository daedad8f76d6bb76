// Package payments drives a checkout payment attempt from gateway order
// creation to verification.
package payments

import (
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var flowTransitions = map[enums.PaymentAttemptState][]enums.PaymentAttemptState{
	enums.PaymentAttemptStateIdle: {
		enums.PaymentAttemptStateScriptLoading,
		enums.PaymentAttemptStateFailed,
	},
	enums.PaymentAttemptStateScriptLoading: {
		enums.PaymentAttemptStateGatewayOrderCreated,
		enums.PaymentAttemptStateFailed,
	},
	enums.PaymentAttemptStateGatewayOrderCreated: {
		enums.PaymentAttemptStateCheckoutOpen,
		enums.PaymentAttemptStateCancelled,
		enums.PaymentAttemptStateFailed,
	},
	enums.PaymentAttemptStateCheckoutOpen: {
		enums.PaymentAttemptStateVerifying,
		enums.PaymentAttemptStateCancelled,
		enums.PaymentAttemptStateFailed,
	},
	enums.PaymentAttemptStateVerifying: {
		enums.PaymentAttemptStatePaid,
		enums.PaymentAttemptStateVerificationFailed,
	},
}

// Flow is the state machine of one payment attempt. Terminal states accept
// no further moves through Advance; only Settle may lift a failed attempt.
type Flow struct {
	state   enums.PaymentAttemptState
	history []enums.PaymentAttemptState
}

// NewFlow starts a flow in idle.
func NewFlow() *Flow {
	return ResumeFlow(enums.PaymentAttemptStateIdle)
}

// ResumeFlow rebuilds a flow from a persisted state.
func ResumeFlow(state enums.PaymentAttemptState) *Flow {
	return &Flow{state: state, history: []enums.PaymentAttemptState{state}}
}

// State is the current node.
func (f *Flow) State() enums.PaymentAttemptState {
	return f.state
}

// History lists every state visited, oldest first.
func (f *Flow) History() []enums.PaymentAttemptState {
	out := make([]enums.PaymentAttemptState, len(f.history))
	copy(out, f.history)
	return out
}

// CanAdvance reports whether to is reachable from the current state.
func (f *Flow) CanAdvance(to enums.PaymentAttemptState) bool {
	for _, next := range flowTransitions[f.state] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves the flow to the next state or returns STATE_CONFLICT.
func (f *Flow) Advance(to enums.PaymentAttemptState) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment state %q", to))
	}
	if f.state.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment attempt already %s", f.state)).WithDetails(map[string]any{
			"state": f.state,
		})
	}
	if !f.CanAdvance(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move payment from %s to %s", f.state, to)).WithDetails(map[string]any{
			"from": f.state,
			"to":   to,
		})
	}
	f.state = to
	f.history = append(f.history, to)
	return nil
}

// Recoverable reports whether a gateway-confirmed capture may still settle
// the attempt. The gateway order stays live after a client reported failure
// (checkout retries) and a processing intent can succeed after verification.
func (f *Flow) Recoverable() bool {
	return f.state == enums.PaymentAttemptStateFailed ||
		f.state == enums.PaymentAttemptStateVerificationFailed
}

// Settle moves the flow to paid on gateway-confirmed success.
func (f *Flow) Settle() error {
	switch {
	case f.Recoverable():
		f.state = enums.PaymentAttemptStatePaid
		f.history = append(f.history, f.state)
		return nil
	case f.state == enums.PaymentAttemptStateCheckoutOpen:
		if err := f.Advance(enums.PaymentAttemptStateVerifying); err != nil {
			return err
		}
	}
	return f.Advance(enums.PaymentAttemptStatePaid)
}
