package venue

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/pkg/retrier"
	venueMock "github.com/vadiminshakov/lpkeeper/mocks/venue"
	"go.uber.org/zap"
)

func TestRetrying_FetchPoolRetriesTransientErrors(t *testing.T) {
	inner := venueMock.NewVenue(t)
	inner.On("FetchPool", mock.Anything, testPool).Return(nil, errors.New("429 too many requests")).Twice()
	inner.On("FetchPool", mock.Anything, testPool).
		Return(&domain.PoolSnapshot{Base: decimal.NewFromInt(5), Quote: decimal.NewFromInt(5)}, nil).Once()

	v := NewRetrying(zap.NewNop(), inner, retrier.WithInitialInterval(time.Millisecond), retrier.WithMaxRetries(3))
	snap, err := v.FetchPool(context.Background(), testPool)
	require.NoError(t, err)
	require.NotNil(t, snap)
	inner.AssertNumberOfCalls(t, "FetchPool", 3)
}

func TestRetrying_MissingPoolIsNotRetried(t *testing.T) {
	inner := venueMock.NewVenue(t)
	inner.On("FetchPool", mock.Anything, testPool).Return(nil, nil).Once()

	v := NewRetrying(zap.NewNop(), inner, retrier.WithInitialInterval(time.Millisecond))
	snap, err := v.FetchPool(context.Background(), testPool)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRetrying_TransactionsPassThrough(t *testing.T) {
	inner := venueMock.NewVenue(t)
	signer := newKeypair(t)
	inner.On("WithdrawAll", mock.Anything, testPool, signer).
		Return(domain.Withdrawal{}, errors.New("simulation failed")).Once()

	v := NewRetrying(zap.NewNop(), inner, retrier.WithInitialInterval(time.Millisecond))
	_, err := v.WithdrawAll(context.Background(), testPool, signer)
	require.Error(t, err)
	inner.AssertNumberOfCalls(t, "WithdrawAll", 1)
}
