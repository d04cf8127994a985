package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRace_FirstFinisherCancelsTheOther(t *testing.T) {
	errBoom := errors.New("boom")
	var slowCanceled atomic.Bool

	done := make(chan error, 1)
	go func() {
		done <- race(context.Background(),
			half{name: "fast", run: func(context.Context) error { return errBoom }},
			half{name: "slow", run: func(ctx context.Context) error {
				<-ctx.Done()
				slowCanceled.Store(true)
				return ctx.Err()
			}},
		)
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "fast")
		assert.True(t, slowCanceled.Load(), "race returned before the slow half stopped")
	case <-time.After(time.Second):
		t.Fatalf("race did not return")
	}
}

func TestRace_CleanReturnReportsStreamEnded(t *testing.T) {
	err := race(context.Background(),
		half{name: "egress", run: func(context.Context) error { return nil }},
		half{name: "ingress", run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)
	require.ErrorIs(t, err, errStreamEnded)
	assert.Contains(t, err.Error(), "egress")
}

func TestRace_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wait := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	err := race(ctx, half{name: "a", run: wait}, half{name: "b", run: wait})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseSessionID(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"4294967295", 4294967295, true},
		{"4294967296", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := parseSessionID(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("parseSessionID(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}
