package effects

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentdapp/internal/config"
	"rentdapp/internal/domain"
	"rentdapp/internal/models"
	"rentdapp/internal/store"
	"rentdapp/internal/wallet"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice  = "0x1111111111111111111111111111111111111111"
	escrow = "0x2222222222222222222222222222222222222222"
)

type mockBookingAPI struct {
	domain.BookingAPI
	mock.Mock
}

func (m *mockBookingAPI) Create(ctx context.Context, req models.CreateBooking) (*models.Booking, error) {
	args := m.Called(ctx, req)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingAPI) CheckAvailability(ctx context.Context, propertyID int64, in, out time.Time) (bool, error) {
	args := m.Called(ctx, propertyID, in, out)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingAPI) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	args := m.Called(ctx, id, reason)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPaymentAPI struct {
	mock.Mock
}

func (m *mockPaymentAPI) ConnectWallet(ctx context.Context, info models.WalletInfo) (*models.WalletInfo, error) {
	args := m.Called(ctx, info)
	return &info, args.Error(0)
}

func (m *mockPaymentAPI) VerifyBalance(ctx context.Context, req models.BalanceVerificationRequest) (*models.BalanceVerificationResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BalanceVerificationResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentAPI) ConfirmPayment(ctx context.Context, req models.SignedTransactionRequest) (*models.BlockchainTransaction, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BlockchainTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentAPI) TransactionStatus(ctx context.Context, txHash string) (*models.TransactionStatusResponse, error) {
	args := m.Called(ctx, txHash)
	if r := args.Get(0); r != nil {
		return r.(*models.TransactionStatusResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeWallet is an in-memory wallet. A nil sendErr returns sendHash.
type fakeWallet struct {
	mu         sync.Mutex
	available  bool
	account    string
	chainID    string
	connectErr error
	sendErr    error
	sendHash   string
	sent       []wallet.Transfer
	handlers   wallet.Handlers
}

func (w *fakeWallet) Available() bool { return w.available }

func (w *fakeWallet) Connect(context.Context) (string, error) {
	if w.connectErr != nil {
		return "", w.connectErr
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account, nil
}

func (w *fakeWallet) Disconnect() {
	w.mu.Lock()
	w.account = ""
	w.mu.Unlock()
}

func (w *fakeWallet) Account() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.account
}

func (w *fakeWallet) ChainID(context.Context) (string, error) { return w.chainID, nil }

func (w *fakeWallet) EnsureNetwork(context.Context) error { return nil }

func (w *fakeWallet) SendTransaction(_ context.Context, t wallet.Transfer) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, t)
	if w.sendErr != nil {
		return "", w.sendErr
	}
	return w.sendHash, nil
}

func (w *fakeWallet) Balance(context.Context, string) (*big.Int, error) { return big.NewInt(0), nil }

func (w *fakeWallet) SetHandlers(h wallet.Handlers) {
	w.mu.Lock()
	w.handlers = h
	w.mu.Unlock()
}

func startRunner(t *testing.T, effects ...Effects) (*store.Store, *Runner) {
	t.Helper()
	logger := zerolog.Nop()
	s := store.New()
	r := NewRunner(s, &logger, effects...)
	r.Start()
	t.Cleanup(func() {
		r.Stop()
		s.Close()
	})
	return s, r
}

func countType(s *store.Store, actionType string) int {
	n := 0
	for _, env := range s.Log() {
		if env.Action.Type() == actionType {
			n++
		}
	}
	return n
}

func TestRunnerModes(t *testing.T) {
	t.Run("exhaust ignores a duplicate while busy", func(t *testing.T) {
		api := &mockBookingAPI{}
		var calls atomic.Int32
		release := make(chan struct{})
		api.On("Create", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { calls.Add(1); <-release }).
			Return(&models.Booking{ID: 5, Status: models.StatusPending}, nil)

		s, _ := startRunner(t, NewBookingEffects(api))
		_, _ = s.Dispatch(store.CreateBooking{})
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		_, _ = s.Dispatch(store.CreateBooking{})
		close(release)

		require.Eventually(t, func() bool {
			return countType(s, store.CreateBookingSuccess{}.Type()) == 1
		}, time.Second, 5*time.Millisecond)
		api.AssertNumberOfCalls(t, "Create", 1)
		assert.Equal(t, int64(5), s.State().Booking.CurrentBooking.ID)
	})

	t.Run("switch drops the stale result", func(t *testing.T) {
		api := &mockBookingAPI{}
		in := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
		first := in.AddDate(0, 0, 2)
		second := in.AddDate(0, 0, 5)
		var calls atomic.Int32
		api.On("CheckAvailability", mock.Anything, int64(1), in, first).
			Run(func(args mock.Arguments) {
				calls.Add(1)
				<-args.Get(0).(context.Context).Done()
			}).
			Return(true, nil)
		api.On("CheckAvailability", mock.Anything, int64(1), in, second).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(false, nil)

		s, _ := startRunner(t, NewBookingEffects(api))
		_, _ = s.Dispatch(store.CheckAvailability{PropertyID: 1, CheckIn: in, CheckOut: first})
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		_, _ = s.Dispatch(store.CheckAvailability{PropertyID: 1, CheckIn: in, CheckOut: second})

		require.Eventually(t, func() bool {
			return s.State().Booking.IsAvailable != nil
		}, time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
		assert.False(t, *s.State().Booking.IsAvailable)
		assert.Equal(t, 1, countType(s, store.CheckAvailabilitySuccess{}.Type()))
	})

	t.Run("stop cancels jobs and drops their results", func(t *testing.T) {
		api := &mockBookingAPI{}
		var calls atomic.Int32
		api.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				calls.Add(1)
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.Canceled)

		logger := zerolog.Nop()
		s := store.New()
		defer s.Close()
		r := NewRunner(s, &logger, NewBookingEffects(api))
		r.Start()

		_, _ = s.Dispatch(store.CreateBooking{})
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		r.Stop()

		assert.Zero(t, countType(s, store.CreateBookingFailure{}.Type()))
		assert.True(t, s.State().Booking.Loading)
	})
}

func TestBookingEffects(t *testing.T) {
	api := &mockBookingAPI{}
	api.On("Cancel", mock.Anything, int64(7), defaultCancelReason).
		Return(&models.Booking{ID: 7, Status: models.StatusCancelled}, nil)
	api.On("Create", mock.Anything, mock.Anything).
		Return(nil, errors.New("backend down"))

	s, _ := startRunner(t, NewBookingEffects(api))

	_, err := s.DispatchAndWait(context.Background(), store.CancelBooking{ID: 7}, func(a store.Action) bool {
		_, ok := a.(store.CancelBookingSuccess)
		return ok
	})
	require.NoError(t, err)

	got, err := s.DispatchAndWait(context.Background(), store.CreateBooking{}, func(a store.Action) bool {
		_, ok := a.(store.CreateBookingFailure)
		return ok
	})
	require.NoError(t, err)
	assert.Equal(t, "Unable to create the booking", got.(store.CreateBookingFailure).Error)
	assert.Equal(t, "Unable to create the booking", s.State().Booking.Error)
}

func newPaymentEffects(api domain.PaymentAPI, w domain.Wallet, attempts int) *PaymentEffects {
	logger := zerolog.Nop()
	return NewPaymentEffects(api, w, config.PaymentConfig{
		PollInterval:    time.Millisecond,
		MaxPollAttempts: attempts,
	}, &logger)
}

func waitFor[T store.Action](t *testing.T, s *store.Store, a store.Action) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := s.DispatchAndWait(ctx, a, func(out store.Action) bool {
		_, ok := out.(T)
		return ok
	})
	require.NoError(t, err)
	return got.(T)
}

func TestPaymentEffectsWallet(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		s, _ := startRunner(t, newPaymentEffects(&mockPaymentAPI{}, &fakeWallet{}, 3))
		_, _ = s.Dispatch(store.InitPaymentSteps{ReservationID: 1})

		failure := waitFor[store.ConnectWalletFailure](t, s, store.ConnectWallet{})
		assert.Equal(t, msgNoWallet, failure.Error)
		step, ok := store.SelectStep(s.State(), models.StepWalletConnect)
		require.True(t, ok)
		assert.Equal(t, models.StepFailed, step.Status)
	})

	t.Run("connect registers the wallet", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("ConnectWallet", mock.Anything, models.WalletInfo{WalletAddress: alice, ChainID: "0xaa36a7"}).Return(nil)
		w := &fakeWallet{available: true, account: alice, chainID: "0xaa36a7"}
		s, _ := startRunner(t, newPaymentEffects(api, w, 3))

		success := waitFor[store.ConnectWalletSuccess](t, s, store.ConnectWallet{})
		assert.Equal(t, alice, success.Address)
		assert.True(t, s.State().Payment.WalletConnected)
		api.AssertExpectations(t)
	})

	t.Run("rejected connection", func(t *testing.T) {
		w := &fakeWallet{available: true, connectErr: &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected"}}
		s, _ := startRunner(t, newPaymentEffects(&mockPaymentAPI{}, w, 3))

		failure := waitFor[store.ConnectWalletFailure](t, s, store.ConnectWallet{})
		assert.True(t, failure.Rejected)
		assert.Equal(t, msgRejected, failure.Error)
	})

	t.Run("account change reaches the store", func(t *testing.T) {
		w := &fakeWallet{available: true, account: alice}
		s, _ := startRunner(t, newPaymentEffects(&mockPaymentAPI{}, w, 3))

		w.mu.Lock()
		h := w.handlers
		w.mu.Unlock()
		require.NotNil(t, h.AccountsChanged)
		h.AccountsChanged([]string{escrow})

		require.Eventually(t, func() bool {
			return s.State().Payment.WalletAddress == escrow
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("rejected signature", func(t *testing.T) {
		w := &fakeWallet{available: true, account: alice, sendErr: wallet.ErrUserRejected}
		s, _ := startRunner(t, newPaymentEffects(&mockPaymentAPI{}, w, 3))

		failure := waitFor[store.SignTransactionFailure](t, s, store.SignTransaction{ReservationID: 1, To: escrow, AmountEth: 0.1})
		assert.True(t, failure.Rejected)
		assert.Equal(t, int64(1), failure.ReservationID)
		assert.Equal(t, msgTxRejected, failure.Error)
		require.Len(t, w.sent, 1)
		assert.Equal(t, escrow, w.sent[0].To)
	})
}

func TestPaymentEffectsPolling(t *testing.T) {
	pending := &models.TransactionStatusResponse{TxHash: "0xabc", Status: models.TxStatusPending}

	t.Run("confirmed after progress", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("TransactionStatus", mock.Anything, "0xabc").Return(pending, nil).Twice()
		api.On("TransactionStatus", mock.Anything, "0xabc").
			Return(&models.TransactionStatusResponse{TxHash: "0xabc", Status: models.TxStatusConfirmed}, nil)

		s, _ := startRunner(t, newPaymentEffects(api, &fakeWallet{}, 5))
		_, _ = s.Dispatch(store.InitPaymentSteps{ReservationID: 1})

		waitFor[store.PollingConfirmed](t, s, store.StartPolling{TxHash: "0xabc", ReservationID: 1})
		p := s.State().Payment
		assert.True(t, p.Confirmed)
		assert.False(t, p.IsPolling)
		assert.Equal(t, 3, p.PollAttempts)
		assert.Equal(t, 3, countType(s, store.PollingProgress{}.Type()))
	})

	t.Run("exhausted attempts stop without failing", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("TransactionStatus", mock.Anything, "0xabc").Return(pending, nil)

		s, _ := startRunner(t, newPaymentEffects(api, &fakeWallet{}, 2))
		_, _ = s.Dispatch(store.InitPaymentSteps{ReservationID: 1})

		stop := waitFor[store.StopPolling](t, s, store.StartPolling{TxHash: "0xabc"})
		assert.Equal(t, msgPollingTimeout, stop.Reason)
		p := s.State().Payment
		assert.False(t, p.IsPolling)
		assert.Empty(t, p.Error)
		api.AssertNumberOfCalls(t, "TransactionStatus", 2)
	})

	t.Run("failed transaction fails the step", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("TransactionStatus", mock.Anything, "0xabc").
			Return(&models.TransactionStatusResponse{TxHash: "0xabc", Status: models.TxStatusFailed}, nil)

		s, _ := startRunner(t, newPaymentEffects(api, &fakeWallet{}, 5))
		_, _ = s.Dispatch(store.InitPaymentSteps{ReservationID: 1})

		waitFor[store.StopPolling](t, s, store.StartPolling{TxHash: "0xabc"})
		step, ok := store.SelectStep(s.State(), models.StepOnChainConfirm)
		require.True(t, ok)
		assert.Equal(t, models.StepFailed, step.Status)
		assert.Equal(t, msgTxFailed, step.Message)
	})

	t.Run("status errors keep polling", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("TransactionStatus", mock.Anything, "0xabc").Return(nil, errors.New("timeout")).Once()
		api.On("TransactionStatus", mock.Anything, "0xabc").
			Return(&models.TransactionStatusResponse{TxHash: "0xabc", Status: models.TxStatusConfirmed}, nil)

		s, _ := startRunner(t, newPaymentEffects(api, &fakeWallet{}, 5))
		waitFor[store.PollingConfirmed](t, s, store.StartPolling{TxHash: "0xabc"})
		api.AssertNumberOfCalls(t, "TransactionStatus", 2)
	})

	t.Run("stop cancels the poll", func(t *testing.T) {
		api := &mockPaymentAPI{}
		api.On("TransactionStatus", mock.Anything, "0xabc").Return(pending, nil)

		logger := zerolog.Nop()
		e := NewPaymentEffects(api, &fakeWallet{}, config.PaymentConfig{PollInterval: 20 * time.Millisecond, MaxPollAttempts: 1000}, &logger)
		s, _ := startRunner(t, e)

		_, _ = s.Dispatch(store.StartPolling{TxHash: "0xabc"})
		require.Eventually(t, func() bool { return s.State().Payment.PollAttempts >= 1 }, time.Second, 5*time.Millisecond)
		_, _ = s.Dispatch(store.StopPolling{})

		require.Eventually(t, func() bool {
			e.mu.Lock()
			defer e.mu.Unlock()
			return e.cancelPoll == nil
		}, time.Second, 5*time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		attempts := s.State().Payment.PollAttempts
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, attempts, s.State().Payment.PollAttempts)
		assert.False(t, s.State().Payment.IsPolling)
	})
}
