package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelay_Modes(t *testing.T) {
	linear := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 5 * time.Second}
	require.Equal(t, time.Duration(0), linear.Delay(0))
	require.Equal(t, time.Second, linear.Delay(1))
	require.Equal(t, 3*time.Second, linear.Delay(3))
	require.Equal(t, 5*time.Second, linear.Delay(10), "capped at max")

	fixed := Policy{Mode: BackoffFixed, Initial: 2 * time.Second, Max: 5 * time.Second}
	require.Equal(t, 2*time.Second, fixed.Delay(1))
	require.Equal(t, 2*time.Second, fixed.Delay(7))

	exp := Policy{Mode: BackoffExponential, Initial: time.Second, Max: 5 * time.Second}
	require.Equal(t, time.Second, exp.Delay(1))
	require.Equal(t, 2*time.Second, exp.Delay(2))
	require.Equal(t, 4*time.Second, exp.Delay(3))
	require.Equal(t, 5*time.Second, exp.Delay(4), "capped at max")
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{Mode: BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}

	calls := 0
	err := Do(context.Background(), p, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	p := Policy{Mode: BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}

	calls := 0
	err := Do(context.Background(), p, func() error {
		calls++
		return errors.New("persistent")
	})
	require.EqualError(t, err, "persistent")
	require.Equal(t, 3, calls, "one initial attempt plus two retries")
}

func TestDo_ContextCancelled(t *testing.T) {
	p := Policy{Mode: BackoffFixed, Initial: time.Minute, Max: time.Minute, MaxRetries: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, p, func() error { return errors.New("transient") })
	require.ErrorIs(t, err, context.Canceled)
}
