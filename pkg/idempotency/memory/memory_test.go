package memory_test

import (
	"bills/pkg/idempotency/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	processed, err := s.IsProcessed(ctx, "a")
	require.NoError(t, err)
	require.False(t, processed)

	marked, err := s.MarkProcessed(ctx, "a", time.Hour)
	require.NoError(t, err)
	require.True(t, marked)

	marked, err = s.MarkProcessed(ctx, "a", time.Hour)
	require.NoError(t, err)
	require.False(t, marked)

	processed, err = s.IsProcessed(ctx, "a")
	require.NoError(t, err)
	require.True(t, processed)
}

func TestStore_Expiry(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	_, err := s.MarkProcessed(ctx, "a", 20*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		processed, _ := s.IsProcessed(ctx, "a")

		return !processed
	}, time.Second, 5*time.Millisecond)

	marked, err := s.MarkProcessed(ctx, "a", time.Hour)
	require.NoError(t, err)
	require.True(t, marked)
}
