package effects

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentdapp/internal/config"
	"rentdapp/internal/domain"
	"rentdapp/internal/models"
	"rentdapp/internal/store"
	"rentdapp/internal/wallet"

	"github.com/rs/zerolog"
)

const (
	msgNoWallet       = "No Ethereum wallet detected. Install MetaMask to continue."
	msgRejected       = "Request rejected in the wallet"
	msgTxRejected     = "Transaction rejected in the wallet"
	msgWrongNetwork   = "Switch your wallet to the payment network"
	msgNotConnected   = "Wallet not connected"
	msgTxFailed       = "Transaction failed on-chain"
	msgPollingTimeout = "Transaction still pending. Check its status later from your bookings."
)

// PaymentEffects drives the wallet and the payment service.
type PaymentEffects struct {
	api    domain.PaymentAPI
	wallet domain.Wallet
	cfg    config.PaymentConfig
	logger *zerolog.Logger

	mu         sync.Mutex
	cancelPoll context.CancelFunc
}

func NewPaymentEffects(api domain.PaymentAPI, w domain.Wallet, cfg config.PaymentConfig, logger *zerolog.Logger) *PaymentEffects {
	return &PaymentEffects{api: api, wallet: w, cfg: cfg, logger: logger}
}

// Bind forwards wallet account and chain events to the store.
func (e *PaymentEffects) Bind(dispatch func(store.Action)) {
	e.wallet.SetHandlers(wallet.Handlers{
		AccountsChanged: func(accounts []string) {
			dispatch(store.WalletAccountChanged{Accounts: accounts})
		},
		ChainChanged: func(chainID string) {
			dispatch(store.WalletChainChanged{ChainID: chainID})
		},
	})
}

func (e *PaymentEffects) Job(a store.Action) (Job, bool) {
	switch a := a.(type) {
	case store.ConnectWallet:
		return exhaust(e.connect)
	case store.DisconnectWallet:
		return concurrent(func(context.Context, func(store.Action)) {
			e.wallet.Disconnect()
		})
	case store.VerifyBalance:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			resp, err := e.api.VerifyBalance(ctx, a.Request)
			if err != nil {
				emit(store.VerifyBalanceFailure{Failure: failure(err, "Unable to verify the balance")})
				return
			}
			emit(store.VerifyBalanceSuccess{Response: *resp})
		})
	case store.SignTransaction:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			hash, err := e.wallet.SendTransaction(ctx, wallet.Transfer{To: a.To, AmountEth: a.AmountEth})
			if err != nil {
				emit(store.SignTransactionFailure{
					Failure:       store.Failure{Error: walletMessage(err, msgTxRejected, "Unable to send the transaction")},
					ReservationID: a.ReservationID,
					Rejected:      wallet.IsUserRejected(err),
				})
				return
			}
			emit(store.SignTransactionSuccess{ReservationID: a.ReservationID, TxHash: hash})
		})
	case store.ConfirmPayment:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			tx, err := e.api.ConfirmPayment(ctx, a.Request)
			if err != nil {
				emit(store.ConfirmPaymentFailure{
					Failure:       failure(err, "Payment confirmation failed"),
					ReservationID: a.Request.ReservationID,
				})
				return
			}
			emit(store.ConfirmPaymentSuccess{ReservationID: a.Request.ReservationID, Transaction: *tx})
		})
	case store.StartPolling:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			e.poll(ctx, a.TxHash, emit)
		})
	case store.StopPolling, store.ResetPayment:
		return concurrent(func(context.Context, func(store.Action)) {
			e.stopPolling()
		})
	}
	return Job{}, false
}

func (e *PaymentEffects) connect(ctx context.Context, emit func(store.Action)) {
	fail := func(err error, fallback string) {
		emit(store.ConnectWalletFailure{
			Failure:  store.Failure{Error: walletMessage(err, msgRejected, fallback)},
			Rejected: wallet.IsUserRejected(err),
		})
	}
	if !e.wallet.Available() {
		fail(wallet.ErrNoProvider, msgNoWallet)
		return
	}
	address, err := e.wallet.Connect(ctx)
	if err != nil {
		fail(err, "Unable to connect the wallet")
		return
	}
	if err := e.wallet.EnsureNetwork(ctx); err != nil {
		fail(err, msgWrongNetwork)
		return
	}
	chainID, err := e.wallet.ChainID(ctx)
	if err != nil {
		fail(err, "Unable to read the wallet network")
		return
	}
	if _, err := e.api.ConnectWallet(ctx, models.WalletInfo{WalletAddress: address, ChainID: chainID}); err != nil {
		emit(store.ConnectWalletFailure{Failure: failure(err, "Unable to register the wallet")})
		return
	}
	emit(store.ConnectWalletSuccess{Address: address, ChainID: chainID})
}

// poll checks the transaction status at a fixed interval. Running out of
// attempts stops polling with a message and is not a payment failure.
func (e *PaymentEffects) poll(ctx context.Context, txHash string, emit func(store.Action)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancelPoll = cancel
	e.mu.Unlock()

	maxAttempts := e.cfg.MaxPollAttempts
	timer := time.NewTimer(e.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := e.api.TransactionStatus(ctx, txHash)
		if ctx.Err() != nil {
			return
		}
		emit(store.PollingProgress{Attempt: attempt, MaxAttempts: maxAttempts})
		switch {
		case err != nil:
			e.logger.Debug().Err(err).Str("tx", txHash).Int("attempt", attempt).Msg("transaction status unavailable")
		case status.Confirmed():
			emit(store.PollingConfirmed{Status: *status})
			return
		case status.Failed():
			emit(store.UpdatePaymentStep{Step: models.StepOnChainConfirm, Status: models.StepFailed, Message: msgTxFailed})
			emit(store.StopPolling{Reason: msgTxFailed})
			return
		}
		timer.Reset(e.cfg.PollInterval)
	}
	emit(store.StopPolling{Reason: msgPollingTimeout})
}

func (e *PaymentEffects) stopPolling() {
	e.mu.Lock()
	cancel := e.cancelPoll
	e.cancelPoll = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// walletMessage maps wallet errors to user-facing text. Backend errors pass
// through the backend message mapping.
func walletMessage(err error, rejected, fallback string) string {
	switch {
	case wallet.IsUserRejected(err):
		return rejected
	case errors.Is(err, wallet.ErrNoProvider):
		return msgNoWallet
	case errors.Is(err, wallet.ErrWrongNetwork):
		return msgWrongNetwork
	case errors.Is(err, wallet.ErrNotConnected):
		return msgNotConnected
	case errors.Is(err, wallet.ErrInvalidAddress):
		return "Invalid payment recipient address"
	}
	var pe *wallet.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return fallback
}
