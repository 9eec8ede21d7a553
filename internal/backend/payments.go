package backend

import (
	"context"
	"net/http"

	"rentdapp/internal/models"
)

const servicePayments = "payments"

// PaymentService wraps the /payments endpoints.
type PaymentService struct {
	c *Client
}

func NewPaymentService(c *Client) *PaymentService {
	return &PaymentService{c: c}
}

// ConnectWallet registers a wallet address proven by signature.
func (s *PaymentService) ConnectWallet(ctx context.Context, info models.WalletInfo) (*models.WalletInfo, error) {
	var out models.WalletInfo
	if err := s.c.send(ctx, servicePayments, http.MethodPost, "/payments/connect-wallet", info, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) VerifyBalance(ctx context.Context, req models.BalanceVerificationRequest) (*models.BalanceVerificationResponse, error) {
	var out models.BalanceVerificationResponse
	if err := s.c.send(ctx, servicePayments, http.MethodPost, "/payments/verify-balance", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletBalance returns the balance of address in ether.
func (s *PaymentService) WalletBalance(ctx context.Context, address string) (float64, error) {
	var out struct {
		BalanceEth float64 `json:"balanceEth"`
	}
	if err := s.c.get(ctx, servicePayments, idPath("/payments/wallet/%s/balance", address), nil, &out); err != nil {
		return 0, err
	}
	return out.BalanceEth, nil
}

// ConfirmPayment reports a signed transfer; the backend starts tracking it.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req models.SignedTransactionRequest) (*models.BlockchainTransaction, error) {
	var out models.BlockchainTransaction
	if err := s.c.send(ctx, servicePayments, http.MethodPost, "/payments/confirm-payment", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) ReservationStatus(ctx context.Context, reservationID int64) (*models.PaymentStatusResponse, error) {
	var out models.PaymentStatusResponse
	if err := s.c.get(ctx, servicePayments, idPath("/payments/reservation/%s/status", reservationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) TransactionStatus(ctx context.Context, txHash string) (*models.TransactionStatusResponse, error) {
	var out models.TransactionStatusResponse
	if err := s.c.get(ctx, servicePayments, idPath("/payments/transaction/%s/status", txHash), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) Transactions(ctx context.Context, reservationID int64) ([]models.BlockchainTransaction, error) {
	var out []models.BlockchainTransaction
	if err := s.c.get(ctx, servicePayments, idPath("/payments/reservation/%s/transactions", reservationID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) ReleaseEscrow(ctx context.Context, reservationID int64) (*models.BlockchainTransaction, error) {
	var out models.BlockchainTransaction
	if err := s.c.send(ctx, servicePayments, http.MethodPost, idPath("/payments/reservation/%s/release-escrow", reservationID), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) Refund(ctx context.Context, req models.RefundRequest) (*models.BlockchainTransaction, error) {
	var out models.BlockchainTransaction
	if err := s.c.send(ctx, servicePayments, http.MethodPost, "/payments/refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
