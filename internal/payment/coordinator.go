package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rentdapp/internal/config"
	"rentdapp/internal/metrics"
	"rentdapp/internal/models"
	"rentdapp/internal/pricing"
	"rentdapp/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Phase is the coordinator position in the payment flow.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseWalletConnect  Phase = "wallet-connect"
	PhaseBalanceCheck   Phase = "balance-check"
	PhaseSign           Phase = "sign"
	PhaseBackendConfirm Phase = "backend-confirm"
	PhaseOnChainPoll    Phase = "on-chain-poll"
	PhaseDone           Phase = "done"
	PhaseFailed         Phase = "failed"
	PhaseCancelled      Phase = "cancelled"
)

// Terminal reports whether no further step can run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed || p == PhaseCancelled
}

var (
	ErrNotStarted   = errors.New("payment not started")
	ErrInProgress   = errors.New("payment already in progress")
	ErrBusy         = errors.New("payment step already running")
	ErrPrecondition = errors.New("payment step not allowed")
	ErrNotPending   = errors.New("reservation is not pending")
	ErrNoAmount     = errors.New("reservation has no amount to pay")
	ErrNoRecipient  = errors.New("no valid payment recipient")

	// ErrPending is returned when the caller stopped waiting before the
	// step finished. The step keeps running under the session.
	ErrPending = errors.New("payment step still running")
)

// StepError is returned when a step ended with a failure action.
type StepError struct {
	Step     string
	Message  string
	Rejected bool
}

func (e *StepError) Error() string {
	return fmt.Sprintf("payment step %s failed: %s", e.Step, e.Message)
}

// Snapshot describes the current payment session.
type Snapshot struct {
	Phase         Phase   `json:"phase"`
	ReservationID int64   `json:"reservationId,omitempty"`
	AmountEUR     float64 `json:"amountEur,omitempty"`
	AmountEth     float64 `json:"amountEth,omitempty"`
	Recipient     string  `json:"recipient,omitempty"`
}

type session struct {
	booking   models.Booking
	amountEUR float64
	amountEth float64
	recipient string
	phase     Phase

	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Timer
	wg     sync.WaitGroup
}

// Coordinator walks one reservation through wallet connection, balance
// check, signature, backend confirmation and on-chain polling. Steps only
// dispatch actions and wait for their outcome, the effects do the work.
type Coordinator struct {
	store  *store.Store
	cfg    config.PaymentConfig
	escrow string
	logger *zerolog.Logger

	step sync.Mutex
	mu   sync.Mutex
	cur  *session
}

func NewCoordinator(s *store.Store, cfg config.PaymentConfig, escrowAddress string, logger *zerolog.Logger) *Coordinator {
	return &Coordinator{store: s, cfg: cfg, escrow: escrowAddress, logger: logger}
}

// Begin opens a payment session for a pending reservation. The host wallet
// receives the funds, the escrow address is used when it has none.
func (c *Coordinator) Begin(booking models.Booking, hostWallet string) (Snapshot, error) {
	if !booking.IsPending() || booking.ID <= 0 {
		return Snapshot{}, ErrNotPending
	}
	if booking.PriceBreakdown == nil || booking.PriceBreakdown.TotalAmount <= 0 {
		return Snapshot{}, ErrNoAmount
	}
	recipient := c.recipient(hostWallet)
	if recipient == "" {
		return Snapshot{}, ErrNoRecipient
	}

	c.mu.Lock()
	prev := c.cur
	if prev != nil && !prev.phase.Terminal() && prev.phase != PhaseIdle {
		c.mu.Unlock()
		return Snapshot{}, ErrInProgress
	}
	c.mu.Unlock()
	if prev != nil {
		c.closeSession(prev)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		booking:   booking,
		amountEUR: booking.PriceBreakdown.TotalAmount,
		amountEth: pricing.EURToETH(booking.PriceBreakdown.TotalAmount, c.cfg.EthPriceEUR),
		recipient: recipient,
		phase:     PhaseIdle,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.mu.Lock()
	c.cur = sess
	c.mu.Unlock()

	if _, err := c.store.Dispatch(store.InitPaymentSteps{
		ReservationID: booking.ID,
		AmountEUR:     sess.amountEUR,
		AmountEth:     sess.amountEth,
		Recipient:     recipient,
	}); err != nil {
		return Snapshot{}, fmt.Errorf("begin payment: %w", err)
	}
	c.logger.Info().
		Int64("reservation_id", booking.ID).
		Float64("amount_eth", sess.amountEth).
		Str("recipient", recipient).
		Msg("payment started")
	return c.Snapshot(), nil
}

func (c *Coordinator) recipient(hostWallet string) string {
	if common.IsHexAddress(hostWallet) {
		return common.HexToAddress(hostWallet).Hex()
	}
	if common.IsHexAddress(c.escrow) {
		return common.HexToAddress(c.escrow).Hex()
	}
	return ""
}

// Snapshot returns the current session, or an idle snapshot.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	return Snapshot{
		Phase:         c.cur.phase,
		ReservationID: c.cur.booking.ID,
		AmountEUR:     c.cur.amountEUR,
		AmountEth:     c.cur.amountEth,
		Recipient:     c.cur.recipient,
	}
}

// Run executes every remaining step in order.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.ConnectWallet(ctx); err != nil {
		return err
	}
	if err := c.CheckBalance(ctx); err != nil {
		return err
	}
	return c.Pay(ctx)
}

// ConnectWallet connects the wallet and registers it with the payment service.
func (c *Coordinator) ConnectWallet(ctx context.Context) error {
	return c.detach(ctx, c.connectWallet)
}

func (c *Coordinator) connectWallet(sess *session) error {
	_, err := c.run(sess, PhaseWalletConnect, models.StepWalletConnect, store.ConnectWallet{},
		func(a store.Action) bool {
			switch a.(type) {
			case store.ConnectWalletSuccess, store.ConnectWalletFailure:
				return true
			}
			return false
		})
	return err
}

// CheckBalance asks the payment service whether the wallet can pay.
func (c *Coordinator) CheckBalance(ctx context.Context) error {
	return c.detach(ctx, c.checkBalance)
}

func (c *Coordinator) checkBalance(sess *session) error {
	p := c.store.State().Payment
	if !p.WalletConnected || p.WalletAddress == "" {
		return fmt.Errorf("%w: wallet not connected", ErrPrecondition)
	}

	out, err := c.run(sess, PhaseBalanceCheck, models.StepBalanceCheck, store.VerifyBalance{
		Request: models.BalanceVerificationRequest{WalletAddress: p.WalletAddress, RequiredAmountEth: sess.amountEth},
	}, func(a store.Action) bool {
		switch a.(type) {
		case store.VerifyBalanceSuccess, store.VerifyBalanceFailure:
			return true
		}
		return false
	})
	if err != nil {
		return err
	}
	if resp := out.(store.VerifyBalanceSuccess).Response; !resp.Sufficient {
		c.setPhase(sess, PhaseFailed)
		metrics.IncPaymentStep(models.StepBalanceCheck, string(models.StepFailed))
		return &StepError{Step: models.StepBalanceCheck, Message: insufficientMessage(resp)}
	}
	return nil
}

func insufficientMessage(resp models.BalanceVerificationResponse) string {
	if resp.Message != "" {
		return resp.Message
	}
	return fmt.Sprintf("Insufficient balance: %.4f ETH available, %.4f ETH required", resp.BalanceEth, resp.RequiredAmountEth)
}

// Pay signs the transfer, reports it to the payment service and starts
// watching the chain. It returns once the backend acknowledged the
// transaction; confirmation continues in the background. A transfer already
// signed for the reservation is confirmed without a new wallet prompt.
func (c *Coordinator) Pay(ctx context.Context) error {
	return c.detach(ctx, c.pay)
}

func (c *Coordinator) pay(sess *session) error {
	st := c.store.State()
	p := st.Payment
	if p.HasSufficientBalance == nil || !*p.HasSufficientBalance {
		return fmt.Errorf("%w: balance not verified", ErrPrecondition)
	}
	if !sess.booking.IsPending() {
		return ErrNotPending
	}

	txHash := signedHash(st, sess.booking.ID)
	if txHash != "" {
		c.logger.Info().
			Int64("reservation_id", sess.booking.ID).
			Str("tx_hash", txHash).
			Msg("transaction already signed, confirming")
	} else {
		out, err := c.run(sess, PhaseSign, models.StepSign, store.SignTransaction{
			ReservationID: sess.booking.ID,
			To:            sess.recipient,
			AmountEth:     sess.amountEth,
		}, forReservation(sess.booking.ID, func(a store.Action) bool {
			switch a.(type) {
			case store.SignTransactionSuccess, store.SignTransactionFailure:
				return true
			}
			return false
		}))
		if err != nil {
			return err
		}
		txHash = out.(store.SignTransactionSuccess).TxHash
	}
	if txHash == "" {
		return fmt.Errorf("%w: no signed transaction", ErrPrecondition)
	}

	out, err := c.run(sess, PhaseBackendConfirm, models.StepConfirm, store.ConfirmPayment{
		Request: models.SignedTransactionRequest{
			ReservationID:   sess.booking.ID,
			TransactionHash: txHash,
			FromAddress:     c.store.State().Payment.WalletAddress,
			ToAddress:       sess.recipient,
			AmountEth:       sess.amountEth,
			TenantID:        sess.booking.UserID,
		},
	}, forReservation(sess.booking.ID, func(a store.Action) bool {
		switch a.(type) {
		case store.ConfirmPaymentSuccess, store.ConfirmPaymentFailure:
			return true
		}
		return false
	}))
	if err != nil {
		return err
	}
	if c.store.State().Payment.Transaction == nil {
		return fmt.Errorf("%w: transaction not acknowledged", ErrPrecondition)
	}

	c.setPhase(sess, PhaseOnChainPoll)
	sess.wg.Add(1)
	go c.watch(sess, out.(store.ConfirmPaymentSuccess).Transaction, txHash)
	return nil
}

// signedHash returns the hash of a transfer signed for the reservation and
// not yet acknowledged by the backend.
func signedHash(st store.State, reservationID int64) string {
	p := st.Payment
	if p.ReservationID != reservationID || p.TxHash == "" || p.Transaction != nil {
		return ""
	}
	if step, ok := store.SelectStep(st, models.StepSign); !ok || step.Status != models.StepCompleted {
		return ""
	}
	return p.TxHash
}

// watch waits for the polling outcome and schedules the automatic close
// after a confirmation.
func (c *Coordinator) watch(sess *session, tx models.BlockchainTransaction, txHash string) {
	defer sess.wg.Done()

	if tx.TxHash != "" {
		txHash = tx.TxHash
	}
	out, err := c.store.DispatchAndWait(sess.ctx, store.StartPolling{TxHash: txHash, ReservationID: sess.booking.ID},
		func(a store.Action) bool {
			switch a.(type) {
			case store.PollingConfirmed, store.StopPolling:
				return true
			}
			return false
		})
	if err != nil {
		return
	}

	switch out.(type) {
	case store.PollingConfirmed:
		c.setPhase(sess, PhaseDone)
		metrics.IncPaymentStep(models.StepOnChainConfirm, string(models.StepCompleted))
		c.logger.Info().Int64("reservation_id", sess.booking.ID).Str("tx", txHash).Msg("payment confirmed on-chain")
		if _, err := c.store.Dispatch(store.LoadBookingByID{ID: sess.booking.ID}); err != nil {
			c.logger.Warn().Err(err).Msg("booking refresh not dispatched")
		}
		c.mu.Lock()
		if c.cur == sess {
			sess.timer = time.AfterFunc(c.cfg.CloseDelay, func() { c.closeSession(sess) })
		}
		c.mu.Unlock()
	case store.StopPolling:
		if step, ok := store.SelectStep(c.store.State(), models.StepOnChainConfirm); ok && step.Status == models.StepFailed {
			c.setPhase(sess, PhaseFailed)
			metrics.IncPaymentStep(models.StepOnChainConfirm, string(models.StepFailed))
		}
	}
}

// Cancel ends the session. A reservation not yet paid is cancelled on a
// best-effort basis. A transfer already sent, or still waiting in the wallet,
// is reported with PaymentOrphaned.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	sess := c.cur
	c.mu.Unlock()
	if sess == nil {
		return ErrNotStarted
	}

	phase := c.phaseOf(sess)
	paid := phase == PhaseDone || phase == PhaseOnChainPoll
	var sub *store.Subscription
	if !paid {
		sub = c.store.Subscribe()
	}
	inflight := c.store.State().Payment
	c.closeSession(sess)
	c.setPhase(sess, PhaseCancelled)
	if paid {
		return nil
	}
	c.reportOrphan(sub, sess, phase, inflight)

	out, err := c.store.DispatchAndWait(ctx, store.CancelBooking{ID: sess.booking.ID, Reason: c.cfg.CancelReason},
		func(a store.Action) bool {
			switch a.(type) {
			case store.CancelBookingSuccess, store.CancelBookingFailure:
				return true
			}
			return false
		})
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Int64("reservation_id", sess.booking.ID).Msg("reservation cancel not confirmed")
	case isFailure(out):
		c.logger.Warn().Str("error", out.(store.Failed).FailureMessage()).Int64("reservation_id", sess.booking.ID).Msg("reservation cancel failed")
	}
	return nil
}

// reportOrphan raises PaymentOrphaned when the cancelled session had already
// sent its transfer. A signature still open in the wallet is awaited in the
// background until its outcome arrives or the store closes.
func (c *Coordinator) reportOrphan(sub *store.Subscription, sess *session, phase Phase, p store.PaymentState) {
	if p.ReservationID == sess.booking.ID && p.TxHash != "" {
		sub.Close()
		step := models.StepSign
		if phase == PhaseBackendConfirm {
			step = models.StepConfirm
		}
		c.orphaned(sess, step, p.TxHash)
		return
	}
	if phase != PhaseSign {
		sub.Close()
		return
	}

	go func() {
		defer sub.Close()
		for {
			upd, err := sub.Next(context.Background())
			if err != nil {
				return
			}
			switch a := upd.Envelope.Action.(type) {
			case store.SignTransactionSuccess:
				if a.ReservationID == sess.booking.ID {
					c.orphaned(sess, models.StepSign, a.TxHash)
					return
				}
			case store.SignTransactionFailure:
				if a.ReservationID == sess.booking.ID {
					return
				}
			}
		}
	}()
}

func (c *Coordinator) orphaned(sess *session, step, txHash string) {
	c.logger.Warn().
		Int64("reservation_id", sess.booking.ID).
		Str("tx_hash", txHash).
		Float64("amount_eth", sess.amountEth).
		Str("step", step).
		Msg("payment sent for a cancelled reservation")
	c.dispatch(store.PaymentOrphaned{
		ReservationID: sess.booking.ID,
		TxHash:        txHash,
		AmountEth:     sess.amountEth,
		Step:          step,
	})
}

// Close stops polling and resets the payment slice.
func (c *Coordinator) Close() {
	c.mu.Lock()
	sess := c.cur
	c.mu.Unlock()
	if sess != nil {
		c.closeSession(sess)
	}
}

func (c *Coordinator) closeSession(sess *session) {
	c.mu.Lock()
	if sess.timer != nil {
		sess.timer.Stop()
	}
	current := c.cur == sess
	if current {
		c.cur = nil
	}
	c.mu.Unlock()

	sess.cancel()
	sess.wg.Wait()
	if !current {
		return
	}
	if c.store.State().Payment.IsPolling {
		c.dispatch(store.StopPolling{})
	}
	c.dispatch(store.ResetPayment{})
}

func (c *Coordinator) dispatch(a store.Action) {
	if _, err := c.store.Dispatch(a); err != nil && !errors.Is(err, store.ErrClosed) {
		c.logger.Warn().Err(err).Str("action", a.Type()).Msg("dispatch failed")
	}
}

// acquire takes the step lock and registers the step with the session, so
// closing the session waits for it.
func (c *Coordinator) acquire() (*session, func(), error) {
	if !c.step.TryLock() {
		return nil, nil, ErrBusy
	}
	c.mu.Lock()
	sess := c.cur
	if sess != nil {
		sess.wg.Add(1)
	}
	c.mu.Unlock()
	if sess == nil {
		c.step.Unlock()
		return nil, nil, ErrNotStarted
	}
	release := func() {
		sess.wg.Done()
		c.step.Unlock()
	}
	if phase := c.phaseOf(sess); phase.Terminal() || phase == PhaseOnChainPoll {
		release()
		return nil, nil, fmt.Errorf("%w: payment is %s", ErrPrecondition, phase)
	}
	return sess, release, nil
}

// detach runs fn under the session and waits for it until ctx ends. The step
// lock is held until fn returns, so a retry cannot open a second wallet
// prompt while the first one is still pending.
func (c *Coordinator) detach(ctx context.Context, fn func(*session) error) error {
	sess, release, err := c.acquire()
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		defer release()
		done <- fn(sess)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPending, ctx.Err())
	}
}

// run dispatches the step action and waits for its single outcome. The wait
// is bounded by the session only.
func (c *Coordinator) run(sess *session, phase Phase, step string, a store.Action, match func(store.Action) bool) (store.Action, error) {
	c.setPhase(sess, phase)
	metrics.IncPaymentStep(step, string(models.StepProcessing))

	out, err := c.store.DispatchAndWait(sess.ctx, a, match)
	if err != nil {
		return nil, fmt.Errorf("payment step %s: %w", step, err)
	}
	if f, ok := out.(store.Failed); ok {
		c.setPhase(sess, PhaseFailed)
		metrics.IncPaymentStep(step, string(models.StepFailed))
		return out, &StepError{Step: step, Message: f.FailureMessage(), Rejected: rejected(out)}
	}
	metrics.IncPaymentStep(step, string(models.StepCompleted))
	return out, nil
}

// forReservation ignores sign and confirm outcomes of other reservations.
func forReservation(id int64, match func(store.Action) bool) func(store.Action) bool {
	return func(a store.Action) bool {
		if rid, ok := store.OutcomeReservation(a); ok && rid != id {
			return false
		}
		return match(a)
	}
}

func (c *Coordinator) setPhase(sess *session, phase Phase) {
	c.mu.Lock()
	sess.phase = phase
	c.mu.Unlock()
}

func (c *Coordinator) phaseOf(sess *session) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sess.phase
}

func isFailure(a store.Action) bool {
	_, ok := a.(store.Failed)
	return ok
}

func rejected(a store.Action) bool {
	switch f := a.(type) {
	case store.ConnectWalletFailure:
		return f.Rejected
	case store.SignTransactionFailure:
		return f.Rejected
	}
	return false
}
