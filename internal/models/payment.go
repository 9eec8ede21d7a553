package models

// StepStatus is the progress tag of one payment step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Payment step names in execution order.
const (
	StepWalletConnect  = "wallet-connect"
	StepBalanceCheck   = "balance-check"
	StepSign           = "sign"
	StepConfirm        = "confirm"
	StepOnChainConfirm = "on-chain-confirm"
)

// PaymentStepNames lists the steps shown by the payment dialog.
var PaymentStepNames = []string{
	StepWalletConnect,
	StepBalanceCheck,
	StepSign,
	StepConfirm,
	StepOnChainConfirm,
}

// PaymentStep is one row of the payment progress list.
type PaymentStep struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

var stepTitles = map[string]string{
	StepWalletConnect:  "Connect wallet",
	StepBalanceCheck:   "Check balance",
	StepSign:           "Sign transaction",
	StepConfirm:        "Confirm payment",
	StepOnChainConfirm: "Blockchain confirmation",
}

// InitialPaymentSteps returns every step in the pending state.
func InitialPaymentSteps() []PaymentStep {
	steps := make([]PaymentStep, 0, len(PaymentStepNames))
	for _, name := range PaymentStepNames {
		steps = append(steps, PaymentStep{Name: name, Title: stepTitles[name], Status: StepPending})
	}
	return steps
}

// WalletInfo is the body of POST /payments/connect-wallet.
type WalletInfo struct {
	WalletAddress string `json:"walletAddress" validate:"required,eth_addr"`
	ChainID       string `json:"chainId,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Message       string `json:"message,omitempty"`
}

// BalanceVerificationRequest asks the payment service whether a wallet can pay.
type BalanceVerificationRequest struct {
	WalletAddress     string  `json:"walletAddress" validate:"required,eth_addr"`
	RequiredAmountEth float64 `json:"requiredAmountEth" validate:"gt=0"`
}

// BalanceVerificationResponse is the payment service answer.
type BalanceVerificationResponse struct {
	WalletAddress     string  `json:"walletAddress"`
	BalanceEth        float64 `json:"balanceEth"`
	RequiredAmountEth float64 `json:"requiredAmountEth"`
	Sufficient        bool    `json:"sufficient"`
	Message           string  `json:"message,omitempty"`
}

// SignedTransactionRequest reports a signed transfer to the payment service.
type SignedTransactionRequest struct {
	ReservationID   int64   `json:"reservationId" validate:"required,gt=0"`
	TransactionHash string  `json:"transactionHash" validate:"required"`
	FromAddress     string  `json:"fromAddress" validate:"required,eth_addr"`
	ToAddress       string  `json:"toAddress,omitempty" validate:"omitempty,eth_addr"`
	AmountEth       float64 `json:"amountEth" validate:"gt=0"`
	TenantID        int64   `json:"tenantId,omitempty"`
}

// BlockchainTransaction is an on-chain transfer tracked by the payment service.
type BlockchainTransaction struct {
	ID            int64          `json:"id"`
	ReservationID int64          `json:"reservationId"`
	TxHash        string         `json:"transactionHash"`
	FromAddress   string         `json:"fromAddress"`
	ToAddress     string         `json:"toAddress"`
	AmountEth     float64        `json:"amountEth"`
	Type          string         `json:"type,omitempty"`
	Status        string         `json:"status"`
	BlockNumber   int64          `json:"blockNumber,omitempty"`
	CreatedAt     *LocalDateTime `json:"createdAt,omitempty"`
	ConfirmedAt   *LocalDateTime `json:"confirmedAt,omitempty"`
}

// Transaction status values reported by the payment service.
const (
	TxStatusPending   = "PENDING"
	TxStatusConfirmed = "CONFIRMED"
	TxStatusFailed    = "FAILED"
)

// PaymentStatusResponse summarizes the payment of one reservation.
type PaymentStatusResponse struct {
	ReservationID     int64   `json:"reservationId"`
	Status            string  `json:"status"`
	TxHash            string  `json:"transactionHash,omitempty"`
	AmountEth         float64 `json:"amountEth,omitempty"`
	Confirmations     int     `json:"confirmations,omitempty"`
	EscrowReleased    bool    `json:"escrowReleased"`
	ReservationStatus string  `json:"reservationStatus,omitempty"`
}

// TransactionStatusResponse is the on-chain view of a transaction hash.
type TransactionStatusResponse struct {
	TxHash        string `json:"transactionHash"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
	BlockNumber   int64  `json:"blockNumber,omitempty"`
}

// Confirmed reports whether the transaction is final on-chain.
func (r TransactionStatusResponse) Confirmed() bool {
	return r.Status == TxStatusConfirmed
}

// Failed reports whether the transaction was rejected on-chain.
func (r TransactionStatusResponse) Failed() bool {
	return r.Status == TxStatusFailed
}

// RefundRequest is the body of POST /payments/refund.
type RefundRequest struct {
	ReservationID int64  `json:"reservationId" validate:"required,gt=0"`
	Reason        string `json:"reason,omitempty"`
}
