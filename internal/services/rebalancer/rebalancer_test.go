package rebalancer

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/lpkeeper/internal/domain"
	"github.com/vadiminshakov/lpkeeper/internal/storage/journal"
	venueMock "github.com/vadiminshakov/lpkeeper/mocks/venue"
	"go.uber.org/zap"
)

const testPool = domain.PoolID("58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")

type stubSigner struct{}

func (stubSigner) PublicKey() string               { return "owner" }
func (stubSigner) Sign(msg []byte) ([]byte, error) { return msg, nil }

type memJournal struct {
	records []journal.Record
}

func (j *memJournal) Append(rec journal.Record) error {
	j.records = append(j.records, rec)
	return nil
}

type fakeRecorder struct {
	outcomes []string
	failed   []string
	drifts   int
}

func (f *fakeRecorder) ObserveDrift(string, decimal.Decimal, decimal.Decimal) { f.drifts++ }
func (f *fakeRecorder) CycleFinished(_ string, outcome string) {
	f.outcomes = append(f.outcomes, outcome)
}
func (f *fakeRecorder) StageFailed(_ string, stage string) { f.failed = append(f.failed, stage) }

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decimalMatcher(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(actual decimal.Decimal) bool {
		return expected.Equal(actual)
	})
}

func snapshot(base, quote string) *domain.PoolSnapshot {
	return &domain.PoolSnapshot{Base: d(base), Quote: d(quote)}
}

func newTestRebalancer(t *testing.T, venue Venue, opts ...Option) *Rebalancer {
	t.Helper()
	position, err := domain.NewPosition(testPool, domain.Pair{Base: "SOL", Quote: "USDC"}, d("5"), d("5"))
	require.NoError(t, err)

	r, err := New(zap.NewNop(), position, venue, stubSigner{}, d("0.10"), opts...)
	require.NoError(t, err)
	return r
}

func TestRebalance_InRangeSubmitsNothing(t *testing.T) {
	tests := []struct {
		name        string
		base, quote string
	}{
		{name: "exact target", base: "5", quote: "5"},
		{name: "1% drift", base: "5.05", quote: "4.95"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			venue := venueMock.NewVenue(t)
			venue.On("FetchPool", mock.Anything, testPool).Return(snapshot(tt.base, tt.quote), nil).Once()

			outcome, err := newTestRebalancer(t, venue).Rebalance(context.Background())
			require.NoError(t, err)
			assert.Equal(t, domain.StateDone, outcome.State)
			assert.True(t, outcome.InRange)
			assert.False(t, outcome.Rebalanced())
			venue.AssertNotCalled(t, "WithdrawAll", mock.Anything, mock.Anything, mock.Anything)
			venue.AssertNotCalled(t, "Swap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			venue.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRebalance_BaseExcessFullCycle(t *testing.T) {
	venue := venueMock.NewVenue(t)
	j := &memJournal{}
	rec := &fakeRecorder{}

	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("6", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("6"), Quote: d("4")}, nil).Once()
	venue.On("Swap", mock.Anything, testPool, domain.BaseToQuote, decimalMatcher(d("1")), mock.Anything).
		Return(domain.SwapResult{Output: d("0.98")}, nil).Once()
	venue.On("Deposit", mock.Anything, testPool, decimalMatcher(d("5")), decimalMatcher(d("4.98")), mock.Anything).
		Return(domain.Confirmation{Signature: "sig-deposit"}, nil).Once()

	r := newTestRebalancer(t, venue, WithJournal(j), WithRecorder(rec), WithCycleIDs(func() string { return "cycle-1" }))
	outcome, err := r.Rebalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cycle-1", outcome.CycleID)
	assert.Equal(t, domain.StateDone, outcome.State)
	assert.True(t, outcome.Rebalanced())
	assert.Nil(t, outcome.Stranded)
	require.NotNil(t, outcome.Plan)
	assert.Equal(t, domain.BaseToQuote, outcome.Plan.Direction)
	assert.Equal(t, "1", outcome.Plan.SwapAmount.String())
	assert.Equal(t, "4.98", outcome.Plan.ResultingQuote.String())
	assert.Equal(t, "sig-deposit", outcome.Deposit.Signature)

	require.NotEmpty(t, j.records)
	last := j.records[len(j.records)-1]
	assert.Equal(t, "deposit", last.Stage)
	assert.Equal(t, journal.StatusDone, last.Status)
	for _, r := range j.records {
		assert.Equal(t, "cycle-1", r.CycleID)
	}

	assert.Equal(t, []string{"rebalanced"}, rec.outcomes)
	assert.Equal(t, 1, rec.drifts)
	assert.Empty(t, rec.failed)
}

func TestRebalance_QuoteExcessFullCycle(t *testing.T) {
	venue := venueMock.NewVenue(t)

	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("3", "8"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("3"), Quote: d("8")}, nil).Once()
	venue.On("Swap", mock.Anything, testPool, domain.QuoteToBase, decimalMatcher(d("3")), mock.Anything).
		Return(domain.SwapResult{Output: d("1.9")}, nil).Once()
	venue.On("Deposit", mock.Anything, testPool, decimalMatcher(d("4.9")), decimalMatcher(d("5")), mock.Anything).
		Return(domain.Confirmation{Signature: "sig"}, nil).Once()

	outcome, err := newTestRebalancer(t, venue).Rebalance(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Rebalanced())
}

func TestRebalance_PoolNotFound(t *testing.T) {
	venue := venueMock.NewVenue(t)
	rec := &fakeRecorder{}
	venue.On("FetchPool", mock.Anything, testPool).Return(nil, nil).Once()

	outcome, err := newTestRebalancer(t, venue, WithRecorder(rec)).Rebalance(context.Background())
	require.Error(t, err)

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageRangeCheck, stageErr.Stage)

	var notFound *domain.PoolNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, testPool, notFound.PoolID)

	assert.Equal(t, domain.StateFailed, outcome.State)
	assert.Equal(t, []string{"failed"}, rec.outcomes)
	assert.Equal(t, []string{"range-check"}, rec.failed)
	venue.AssertNotCalled(t, "WithdrawAll", mock.Anything, mock.Anything, mock.Anything)
}

func TestRebalance_FetchErrorIsRangeCheckFailure(t *testing.T) {
	venue := venueMock.NewVenue(t)
	venue.On("FetchPool", mock.Anything, testPool).Return(nil, errors.New("rpc timeout")).Once()

	_, err := newTestRebalancer(t, venue).Rebalance(context.Background())
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageRangeCheck, stageErr.Stage)
	assert.Contains(t, err.Error(), "rpc timeout")
}

func TestRebalance_WithdrawFails(t *testing.T) {
	venue := venueMock.NewVenue(t)
	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("6", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{}, errors.New("blockhash not found")).Once()

	outcome, err := newTestRebalancer(t, venue).Rebalance(context.Background())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageWithdraw, stageErr.Stage)

	var txErr *domain.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, "withdraw", txErr.Op)

	assert.Nil(t, outcome.Stranded)
	venue.AssertNotCalled(t, "Swap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	venue.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRebalance_SwapFailsSkipsDeposit(t *testing.T) {
	venue := venueMock.NewVenue(t)
	j := &memJournal{}
	rec := &fakeRecorder{}
	swapErr := &domain.TransactionError{Op: "swap", Err: errors.New("slippage tolerance exceeded")}

	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("6", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("6"), Quote: d("4")}, nil).Once()
	venue.On("Swap", mock.Anything, testPool, domain.BaseToQuote, decimalMatcher(d("1")), mock.Anything).
		Return(domain.SwapResult{}, swapErr).Once()

	outcome, err := newTestRebalancer(t, venue, WithJournal(j), WithRecorder(rec)).Rebalance(context.Background())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageSwap, stageErr.Stage)

	var txErr *domain.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Same(t, swapErr, txErr)

	assert.Equal(t, domain.StateFailed, outcome.State)
	require.NotNil(t, outcome.Stranded)
	assert.Equal(t, "6", outcome.Stranded.Base.String())
	assert.Equal(t, "4", outcome.Stranded.Quote.String())
	venue.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	last := j.records[len(j.records)-1]
	assert.Equal(t, "swap", last.Stage)
	assert.Equal(t, journal.StatusFailed, last.Status)
	assert.Contains(t, last.Error, "slippage")
	assert.Equal(t, []string{"swap"}, rec.failed)
}

func TestRebalance_DepositFailsLeavesSwappedFundsStranded(t *testing.T) {
	venue := venueMock.NewVenue(t)
	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("6", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("6"), Quote: d("4")}, nil).Once()
	venue.On("Swap", mock.Anything, testPool, domain.BaseToQuote, mock.Anything, mock.Anything).
		Return(domain.SwapResult{Output: d("1")}, nil).Once()
	venue.On("Deposit", mock.Anything, testPool, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Confirmation{}, errors.New("insufficient funds for rent")).Once()

	outcome, err := newTestRebalancer(t, venue).Rebalance(context.Background())

	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageDeposit, stageErr.Stage)
	assert.Contains(t, err.Error(), "deposit")

	require.NotNil(t, outcome.Stranded)
	assert.Equal(t, "5", outcome.Stranded.Base.String())
	assert.Equal(t, "5", outcome.Stranded.Quote.String())
	assert.Nil(t, outcome.Deposit)
}

func TestRebalance_SecondRunIsNoopOnceOnTarget(t *testing.T) {
	venue := venueMock.NewVenue(t)
	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("6", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("6"), Quote: d("4")}, nil).Once()
	venue.On("Swap", mock.Anything, testPool, domain.BaseToQuote, mock.Anything, mock.Anything).
		Return(domain.SwapResult{Output: d("1")}, nil).Once()
	venue.On("Deposit", mock.Anything, testPool, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.Confirmation{Signature: "sig"}, nil).Once()
	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("5", "5"), nil).Once()

	r := newTestRebalancer(t, venue)

	first, err := r.Rebalance(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Rebalanced())

	second, err := r.Rebalance(context.Background())
	require.NoError(t, err)
	assert.True(t, second.InRange)
	assert.NotEqual(t, first.CycleID, second.CycleID)

	venue.AssertNumberOfCalls(t, "WithdrawAll", 1)
	venue.AssertNumberOfCalls(t, "Swap", 1)
	venue.AssertNumberOfCalls(t, "Deposit", 1)
}

func TestRebalance_NoSurplusSkipsSwap(t *testing.T) {
	venue := venueMock.NewVenue(t)
	// range check sees drift, but the withdrawal comes back below target on both sides
	venue.On("FetchPool", mock.Anything, testPool).Return(snapshot("4", "4"), nil).Once()
	venue.On("WithdrawAll", mock.Anything, testPool, mock.Anything).
		Return(domain.Withdrawal{Base: d("4"), Quote: d("4")}, nil).Once()
	venue.On("Deposit", mock.Anything, testPool, decimalMatcher(d("4")), decimalMatcher(d("4")), mock.Anything).
		Return(domain.Confirmation{Signature: "sig"}, nil).Once()

	outcome, err := newTestRebalancer(t, venue).Rebalance(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Plan.IsNoop())
	venue.AssertNotCalled(t, "Swap", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNew_ConfigurationErrors(t *testing.T) {
	venue := venueMock.NewVenue(t)
	position, err := domain.NewPosition(testPool, domain.Pair{Base: "SOL", Quote: "USDC"}, d("5"), d("5"))
	require.NoError(t, err)

	var cfgErr *domain.ConfigurationError

	_, err = New(nil, domain.Position{}, venue, stubSigner{}, d("0.1"))
	assert.True(t, errors.As(err, &cfgErr))

	_, err = New(nil, position, venue, stubSigner{}, d("0"))
	assert.True(t, errors.As(err, &cfgErr))

	_, err = New(nil, position, nil, stubSigner{}, d("0.1"))
	assert.Error(t, err)

	_, err = New(nil, position, venue, nil, d("0.1"))
	assert.Error(t, err)
}
