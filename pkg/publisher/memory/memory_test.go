package memory_test

import (
	"bills/pkg/domain"
	"bills/pkg/publisher"
	"bills/pkg/publisher/memory"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisher(t *testing.T) {
	p := memory.New()
	ctx := context.Background()

	require.NoError(t, p.PublishBillCreated(ctx, domain.BillCreatedEvent{BillID: 1}))

	boom := errors.New("broker down")
	p.FailWith(boom)
	require.ErrorIs(t, p.PublishBillCreated(ctx, domain.BillCreatedEvent{BillID: 2}), boom)

	p.FailWith(nil)
	require.NoError(t, p.PublishBillCreated(ctx, domain.BillCreatedEvent{BillID: 3}))

	events := p.Events()
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].BillID)
	require.Equal(t, int64(3), events[1].BillID)

	require.NoError(t, p.Close())
	require.ErrorIs(t, p.PublishBillCreated(ctx, domain.BillCreatedEvent{BillID: 4}), publisher.ErrClosed)
}

func TestPublisher_CanceledContext(t *testing.T) {
	p := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, p.PublishBillCreated(ctx, domain.BillCreatedEvent{}), context.Canceled)
	require.Empty(t, p.Events())
}
