package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrentStore(t *testing.T) {
	ctx := context.Background()

	_, ok := CurrentStore(ctx)
	require.False(t, ok)

	ctx = WithStore(ctx, "store-a")
	sid, ok := CurrentStore(ctx)
	require.True(t, ok)
	require.Equal(t, "store-a", sid)
}

func TestNestingRestoresOuterStore(t *testing.T) {
	outer := WithStore(context.Background(), "store-a")

	inner := WithStore(outer, "store-b")
	sid, ok := CurrentStore(inner)
	require.True(t, ok)
	require.Equal(t, "store-b", sid)

	// The outer context is a different value and is untouched.
	sid, ok = CurrentStore(outer)
	require.True(t, ok)
	require.Equal(t, "store-a", sid)
}

func TestBypassInsideStoreScope(t *testing.T) {
	scoped := WithStore(context.Background(), "store-a")
	bypassed := WithoutStore(scoped)

	require.True(t, Bypassed(bypassed))
	_, ok := CurrentStore(bypassed)
	require.False(t, ok)

	// Scoping again clears the bypass.
	rescoped := WithStore(bypassed, "store-b")
	require.False(t, Bypassed(rescoped))
	sid, ok := CurrentStore(rescoped)
	require.True(t, ok)
	require.Equal(t, "store-b", sid)

	// The original scope survives the inner bypass.
	sid, ok = CurrentStore(scoped)
	require.True(t, ok)
	require.Equal(t, "store-a", sid)
}

func TestRunWithStore(t *testing.T) {
	outer := WithStore(context.Background(), "store-a")

	var seen string
	err := RunWithStore(outer, "store-b", func(ctx context.Context) error {
		seen, _ = CurrentStore(ctx)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "store-b", seen)

	sid, _ := CurrentStore(outer)
	require.Equal(t, "store-a", sid)
}

func TestRunWithStorePropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	err := RunWithStore(context.Background(), "store-a", func(context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestOuterStoreSurvivesPanic(t *testing.T) {
	outer := WithStore(context.Background(), "store-a")

	func() {
		defer func() { _ = recover() }()
		_ = RunWithStore(outer, "store-b", func(context.Context) error {
			panic("inner failure")
		})
	}()

	sid, ok := CurrentStore(outer)
	require.True(t, ok)
	require.Equal(t, "store-a", sid)
}

func TestRunWithoutStore(t *testing.T) {
	outer := WithStore(context.Background(), "store-a")

	err := RunWithoutStore(outer, func(ctx context.Context) error {
		require.True(t, Bypassed(ctx))
		return nil
	})
	require.NoError(t, err)
	require.False(t, Bypassed(outer))
}

func TestInternalMarking(t *testing.T) {
	ctx := markInternal(context.Background())
	require.True(t, Bypassed(ctx))
	require.True(t, isInternal(ctx))
	require.False(t, isInternal(context.Background()))
}
