package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestFlowHappyPath(t *testing.T) {
	flow := NewFlow()
	for _, next := range []enums.PaymentAttemptState{
		enums.PaymentAttemptStateScriptLoading,
		enums.PaymentAttemptStateGatewayOrderCreated,
		enums.PaymentAttemptStateCheckoutOpen,
		enums.PaymentAttemptStateVerifying,
		enums.PaymentAttemptStatePaid,
	} {
		require.NoError(t, flow.Advance(next))
	}
	assert.Equal(t, enums.PaymentAttemptStatePaid, flow.State())
	assert.Len(t, flow.History(), 6)
	assert.Equal(t, enums.PaymentAttemptStateIdle, flow.History()[0])
}

func TestFlowRejectsIllegalMoves(t *testing.T) {
	cases := []struct {
		from enums.PaymentAttemptState
		to   enums.PaymentAttemptState
	}{
		{enums.PaymentAttemptStateIdle, enums.PaymentAttemptStateCheckoutOpen},
		{enums.PaymentAttemptStateScriptLoading, enums.PaymentAttemptStateCancelled},
		{enums.PaymentAttemptStateGatewayOrderCreated, enums.PaymentAttemptStatePaid},
		{enums.PaymentAttemptStateCheckoutOpen, enums.PaymentAttemptStatePaid},
		{enums.PaymentAttemptStateVerifying, enums.PaymentAttemptStateCancelled},
		{enums.PaymentAttemptStateVerifying, enums.PaymentAttemptStateFailed},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			flow := ResumeFlow(tc.from)
			err := flow.Advance(tc.to)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
			assert.Equal(t, tc.from, flow.State())
		})
	}
}

func TestFlowTerminalStatesRejectEverything(t *testing.T) {
	terminal := []enums.PaymentAttemptState{
		enums.PaymentAttemptStatePaid,
		enums.PaymentAttemptStateVerificationFailed,
		enums.PaymentAttemptStateCancelled,
		enums.PaymentAttemptStateFailed,
	}
	for _, state := range terminal {
		flow := ResumeFlow(state)
		for _, next := range []enums.PaymentAttemptState{
			enums.PaymentAttemptStateIdle,
			enums.PaymentAttemptStateVerifying,
			enums.PaymentAttemptStatePaid,
			enums.PaymentAttemptStateFailed,
		} {
			assert.False(t, flow.CanAdvance(next), "%s -> %s", state, next)
			err := flow.Advance(next)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
		}
	}
}

func TestFlowUnknownState(t *testing.T) {
	err := NewFlow().Advance(enums.PaymentAttemptState("teleported"))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCancelAndFailFromCheckout(t *testing.T) {
	cancel := ResumeFlow(enums.PaymentAttemptStateCheckoutOpen)
	require.NoError(t, cancel.Advance(enums.PaymentAttemptStateCancelled))

	fail := ResumeFlow(enums.PaymentAttemptStateGatewayOrderCreated)
	require.NoError(t, fail.Advance(enums.PaymentAttemptStateFailed))

	verify := ResumeFlow(enums.PaymentAttemptStateVerifying)
	require.NoError(t, verify.Advance(enums.PaymentAttemptStateVerificationFailed))
}

func TestFlowSettle(t *testing.T) {
	for _, from := range []enums.PaymentAttemptState{
		enums.PaymentAttemptStateCheckoutOpen,
		enums.PaymentAttemptStateVerifying,
		enums.PaymentAttemptStateFailed,
		enums.PaymentAttemptStateVerificationFailed,
	} {
		flow := ResumeFlow(from)
		require.NoError(t, flow.Settle(), from)
		assert.Equal(t, enums.PaymentAttemptStatePaid, flow.State())
	}

	for _, from := range []enums.PaymentAttemptState{
		enums.PaymentAttemptStateIdle,
		enums.PaymentAttemptStateGatewayOrderCreated,
		enums.PaymentAttemptStateCancelled,
		enums.PaymentAttemptStatePaid,
	} {
		flow := ResumeFlow(from)
		err := flow.Settle()
		require.Error(t, err, from)
		assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
		assert.Equal(t, from, flow.State())
	}
}
