package summary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCancelTokenTriggerOnce verifies trigger idempotency.
func TestCancelTokenTriggerOnce(t *testing.T) {
	tok := NewCancelToken(context.Background())
	require.False(t, tok.IsTriggered())
	require.NoError(t, tok.Context().Err())

	require.True(t, tok.Trigger())
	require.True(t, tok.IsTriggered())
	require.ErrorIs(t, tok.Context().Err(), context.Canceled)

	select {
	case <-tok.Done():
	default:
		t.Fatal("done channel not closed after trigger")
	}

	require.False(t, tok.Trigger())
}

// TestCancelTokenRelease frees the context without marking the token
// triggered, and a later trigger is a no-op.
func TestCancelTokenRelease(t *testing.T) {
	tok := NewCancelToken(context.Background())
	tok.release()

	require.False(t, tok.IsTriggered())
	require.Error(t, tok.Context().Err())
	require.False(t, tok.Trigger())
	require.False(t, tok.IsTriggered())
}

// TestCancelTokenParent propagates parent cancellation to the request
// context without marking the token as triggered.
func TestCancelTokenParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	tok := NewCancelToken(parent)

	cancel()
	<-tok.Done()
	require.False(t, tok.IsTriggered())
	require.True(t, tok.Trigger())
}
