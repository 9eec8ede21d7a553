package store

import (
	"fmt"

	"rentdapp/internal/models"
)

type PaymentState struct {
	Steps         []models.PaymentStep `json:"steps"`
	ReservationID int64                `json:"reservationId,omitempty"`
	AmountEUR     float64              `json:"amountEur,omitempty"`
	AmountEth     float64              `json:"amountEth,omitempty"`
	Recipient     string               `json:"recipient,omitempty"`

	WalletConnected bool   `json:"walletConnected"`
	WalletAddress   string `json:"walletAddress,omitempty"`
	ChainID         string `json:"chainId,omitempty"`

	Balance *models.BalanceVerificationResponse `json:"balance,omitempty"`
	// HasSufficientBalance is nil until a balance check completes.
	HasSufficientBalance *bool `json:"hasSufficientBalance,omitempty"`

	TxHash      string                        `json:"txHash,omitempty"`
	Transaction *models.BlockchainTransaction `json:"transaction,omitempty"`

	IsPolling       bool `json:"isPolling"`
	PollAttempts    int  `json:"pollAttempts"`
	PollingProgress int  `json:"pollingProgress"`
	Confirmed       bool `json:"confirmed"`

	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func initialPaymentState() PaymentState {
	return PaymentState{Steps: models.InitialPaymentSteps()}
}

// InitPaymentSteps starts a fresh payment for one reservation.
type InitPaymentSteps struct {
	ReservationID int64   `json:"reservationId"`
	AmountEUR     float64 `json:"amountEur"`
	AmountEth     float64 `json:"amountEth"`
	Recipient     string  `json:"recipient"`
}

type UpdatePaymentStep struct {
	Step    string            `json:"step"`
	Status  models.StepStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

type ConnectWallet struct{}

type ConnectWalletSuccess struct {
	Address string `json:"address"`
	ChainID string `json:"chainId,omitempty"`
}

type ConnectWalletFailure struct {
	Failure
	Rejected bool `json:"rejected"`
}

type DisconnectWallet struct{}

type WalletAccountChanged struct {
	Accounts []string `json:"accounts"`
}

type WalletChainChanged struct {
	ChainID string `json:"chainId"`
}

type VerifyBalance struct {
	Request models.BalanceVerificationRequest `json:"request"`
}

type VerifyBalanceSuccess struct {
	Response models.BalanceVerificationResponse `json:"response"`
}

type VerifyBalanceFailure struct{ Failure }

type SignTransaction struct {
	ReservationID int64   `json:"reservationId"`
	To            string  `json:"to"`
	AmountEth     float64 `json:"amountEth"`
}

type SignTransactionSuccess struct {
	ReservationID int64  `json:"reservationId"`
	TxHash        string `json:"txHash"`
}

type SignTransactionFailure struct {
	Failure
	ReservationID int64 `json:"reservationId"`
	Rejected      bool  `json:"rejected"`
}

type ConfirmPayment struct {
	Request models.SignedTransactionRequest `json:"request"`
}

type ConfirmPaymentSuccess struct {
	ReservationID int64                        `json:"reservationId"`
	Transaction   models.BlockchainTransaction `json:"transaction"`
}

type ConfirmPaymentFailure struct {
	Failure
	ReservationID int64 `json:"reservationId"`
}

type StartPolling struct {
	TxHash        string `json:"txHash"`
	ReservationID int64  `json:"reservationId"`
}

type PollingProgress struct {
	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"maxAttempts"`
}

// Percent is the share of the polling budget already spent.
func (p PollingProgress) Percent() int {
	if p.MaxAttempts <= 0 {
		return 0
	}
	pct := p.Attempt * 100 / p.MaxAttempts
	if pct > 100 {
		pct = 100
	}
	return pct
}

type PollingConfirmed struct {
	Status models.TransactionStatusResponse `json:"status"`
}

// StopPolling ends polling without marking a failure.
type StopPolling struct {
	Reason string `json:"reason,omitempty"`
}

type ResetPayment struct{}

// PaymentOrphaned reports a transfer whose reservation was cancelled while
// the payment was in flight.
type PaymentOrphaned struct {
	ReservationID int64   `json:"reservationId"`
	TxHash        string  `json:"txHash,omitempty"`
	AmountEth     float64 `json:"amountEth,omitempty"`
	Step          string  `json:"step"`
}

func (InitPaymentSteps) Type() string       { return "[Payment] Init Payment Steps" }
func (UpdatePaymentStep) Type() string      { return "[Payment] Update Payment Step" }
func (ConnectWallet) Type() string          { return "[Payment] Connect Wallet" }
func (ConnectWalletSuccess) Type() string   { return "[Payment] Connect Wallet Success" }
func (ConnectWalletFailure) Type() string   { return "[Payment] Connect Wallet Failure" }
func (DisconnectWallet) Type() string       { return "[Payment] Disconnect Wallet" }
func (WalletAccountChanged) Type() string   { return "[Payment] Wallet Account Changed" }
func (WalletChainChanged) Type() string     { return "[Payment] Wallet Chain Changed" }
func (VerifyBalance) Type() string          { return "[Payment] Verify Balance" }
func (VerifyBalanceSuccess) Type() string   { return "[Payment] Verify Balance Success" }
func (VerifyBalanceFailure) Type() string   { return "[Payment] Verify Balance Failure" }
func (SignTransaction) Type() string        { return "[Payment] Sign Transaction" }
func (SignTransactionSuccess) Type() string { return "[Payment] Sign Transaction Success" }
func (SignTransactionFailure) Type() string { return "[Payment] Sign Transaction Failure" }
func (ConfirmPayment) Type() string         { return "[Payment] Confirm Payment" }
func (ConfirmPaymentSuccess) Type() string  { return "[Payment] Confirm Payment Success" }
func (ConfirmPaymentFailure) Type() string  { return "[Payment] Confirm Payment Failure" }
func (StartPolling) Type() string           { return "[Payment] Start Polling" }
func (PollingProgress) Type() string        { return "[Payment] Polling Progress" }
func (PollingConfirmed) Type() string       { return "[Payment] Polling Confirmed" }
func (StopPolling) Type() string            { return "[Payment] Stop Polling" }
func (ResetPayment) Type() string           { return "[Payment] Reset Payment" }
func (PaymentOrphaned) Type() string        { return "[Payment] Payment Orphaned" }

// OutcomeReservation returns the reservation a sign or confirm outcome
// belongs to.
func OutcomeReservation(a Action) (int64, bool) {
	switch a := a.(type) {
	case SignTransactionSuccess:
		return a.ReservationID, true
	case SignTransactionFailure:
		return a.ReservationID, true
	case ConfirmPaymentSuccess:
		return a.ReservationID, true
	case ConfirmPaymentFailure:
		return a.ReservationID, true
	}
	return 0, false
}

func reducePayment(s PaymentState, a Action) PaymentState {
	// Late outcomes of an abandoned payment leave the current one alone.
	if id, ok := OutcomeReservation(a); ok && id != s.ReservationID {
		return s
	}
	switch a := a.(type) {
	case InitPaymentSteps:
		next := initialPaymentState()
		next.ReservationID = a.ReservationID
		next.AmountEUR = a.AmountEUR
		next.AmountEth = a.AmountEth
		next.Recipient = a.Recipient
		next.WalletConnected = s.WalletConnected
		next.WalletAddress = s.WalletAddress
		next.ChainID = s.ChainID
		if s.WalletConnected {
			next.Steps = setStep(next.Steps, models.StepWalletConnect, models.StepCompleted, shortAddress(s.WalletAddress))
		}
		return next
	case UpdatePaymentStep:
		s.Steps = setStep(s.Steps, a.Step, a.Status, a.Message)

	case ConnectWallet:
		s = paymentStarted(s, models.StepWalletConnect, "Connecting wallet...")
	case ConnectWalletSuccess:
		s.WalletConnected = true
		s.WalletAddress = a.Address
		if a.ChainID != "" {
			s.ChainID = a.ChainID
		}
		s = paymentDone(s, models.StepWalletConnect, shortAddress(a.Address))
	case ConnectWalletFailure:
		s.WalletConnected = false
		s = paymentFailed(s, models.StepWalletConnect, a.Error)
	case DisconnectWallet:
		s.WalletConnected = false
		s.WalletAddress = ""
		s.ChainID = ""
		s.Balance = nil
		s.HasSufficientBalance = nil
	case WalletAccountChanged:
		if len(a.Accounts) == 0 {
			s.WalletConnected = false
			s.WalletAddress = ""
		} else {
			s.WalletConnected = true
			s.WalletAddress = a.Accounts[0]
		}
		s.Balance = nil
		s.HasSufficientBalance = nil
	case WalletChainChanged:
		s.ChainID = a.ChainID

	case VerifyBalance:
		s.Balance = nil
		s.HasSufficientBalance = nil
		s = paymentStarted(s, models.StepBalanceCheck, "Checking balance...")
	case VerifyBalanceSuccess:
		resp := a.Response
		sufficient := resp.Sufficient
		s.Balance = &resp
		s.HasSufficientBalance = &sufficient
		if sufficient {
			s = paymentDone(s, models.StepBalanceCheck, fmt.Sprintf("%.4f ETH available", resp.BalanceEth))
		} else {
			msg := resp.Message
			if msg == "" {
				msg = fmt.Sprintf("Insufficient balance: %.4f ETH available, %.4f ETH required", resp.BalanceEth, resp.RequiredAmountEth)
			}
			s = paymentFailed(s, models.StepBalanceCheck, msg)
		}
	case VerifyBalanceFailure:
		s = paymentFailed(s, models.StepBalanceCheck, a.Error)

	case SignTransaction:
		s.TxHash = ""
		s = paymentStarted(s, models.StepSign, "Waiting for signature...")
	case SignTransactionSuccess:
		s.TxHash = a.TxHash
		s = paymentDone(s, models.StepSign, "Transaction signed")
	case SignTransactionFailure:
		s = paymentFailed(s, models.StepSign, a.Error)

	case ConfirmPayment:
		s = paymentStarted(s, models.StepConfirm, "Confirming payment...")
	case ConfirmPaymentSuccess:
		tx := a.Transaction
		s.Transaction = &tx
		if tx.TxHash != "" {
			s.TxHash = tx.TxHash
		}
		s = paymentDone(s, models.StepConfirm, "Payment registered")
	case ConfirmPaymentFailure:
		s = paymentFailed(s, models.StepConfirm, a.Error)

	case StartPolling:
		s.IsPolling = true
		s.PollAttempts = 0
		s.PollingProgress = 0
		s.Confirmed = false
		s.Steps = setStep(s.Steps, models.StepOnChainConfirm, models.StepProcessing, "Waiting for confirmation...")
	case PollingProgress:
		s.PollAttempts = a.Attempt
		s.PollingProgress = a.Percent()
		s.Steps = setStep(s.Steps, models.StepOnChainConfirm, models.StepProcessing,
			fmt.Sprintf("Waiting for confirmation (%d/%d)", a.Attempt, a.MaxAttempts))
	case PollingConfirmed:
		s.IsPolling = false
		s.Confirmed = true
		s.PollingProgress = 100
		s.Message = "Payment confirmed"
		s.Steps = setStep(s.Steps, models.StepOnChainConfirm, models.StepCompleted, "Confirmed on-chain")
	case StopPolling:
		s.IsPolling = false
		if a.Reason != "" {
			s.Message = a.Reason
			if step, ok := findStep(s.Steps, models.StepOnChainConfirm); ok && step.Status == models.StepProcessing {
				s.Steps = setStep(s.Steps, models.StepOnChainConfirm, models.StepProcessing, a.Reason)
			}
		}

	case ResetPayment, Logout:
		return initialPaymentState()
	}
	return s
}

func paymentStarted(s PaymentState, step, msg string) PaymentState {
	s.Loading = true
	s.Error = ""
	s.Steps = setStep(s.Steps, step, models.StepProcessing, msg)
	return s
}

func paymentDone(s PaymentState, step, msg string) PaymentState {
	s.Loading = false
	s.Steps = setStep(s.Steps, step, models.StepCompleted, msg)
	return s
}

func paymentFailed(s PaymentState, step, msg string) PaymentState {
	s.Loading = false
	s.Error = msg
	s.Steps = setStep(s.Steps, step, models.StepFailed, msg)
	return s
}

func setStep(steps []models.PaymentStep, name string, status models.StepStatus, msg string) []models.PaymentStep {
	out := make([]models.PaymentStep, len(steps))
	copy(out, steps)
	for i := range out {
		if out[i].Name == name {
			out[i].Status = status
			out[i].Message = msg
		}
	}
	return out
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func findStep(steps []models.PaymentStep, name string) (models.PaymentStep, bool) {
	for _, step := range steps {
		if step.Name == name {
			return step, true
		}
	}
	return models.PaymentStep{}, false
}

// SelectStep returns the named payment step.
func SelectStep(s State, name string) (models.PaymentStep, bool) {
	return findStep(s.Payment.Steps, name)
}

// SelectPaymentFailed reports whether any step has failed.
func SelectPaymentFailed(s State) bool {
	for _, step := range s.Payment.Steps {
		if step.Status == models.StepFailed {
			return true
		}
	}
	return false
}
