package domain

import (
	"context"
	"math/big"
	"time"

	"rentdapp/internal/models"
	"rentdapp/internal/wallet"
)

type ListingAPI interface {
	All(ctx context.Context, page, size int) (*models.PropertyPage, error)
	Get(ctx context.Context, id int64) (*models.Property, error)
	Filter(ctx context.Context, f models.PropertyFilters) ([]models.Property, error)
	Search(ctx context.Context, f models.PropertyFilters) ([]models.PropertySearchResult, error)
	BlockedDates(ctx context.Context, id int64, start, end string) ([]string, error)
}

type BookingAPI interface {
	Create(ctx context.Context, req models.CreateBooking) (*models.Booking, error)
	My(ctx context.Context) ([]models.Booking, error)
	Upcoming(ctx context.Context) ([]models.Booking, error)
	Past(ctx context.Context) ([]models.Booking, error)
	ForProperty(ctx context.Context, propertyID int64) ([]models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
	Confirm(ctx context.Context, id int64, txHash string) (*models.Booking, error)
	CheckIn(ctx context.Context, id int64) (*models.Booking, error)
	CheckOut(ctx context.Context, id int64) (*models.Booking, error)
	Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error)
	ReleaseEscrow(ctx context.Context, id int64, txHash string) (*models.Booking, error)
	CheckAvailability(ctx context.Context, propertyID int64, checkIn, checkOut time.Time) (bool, error)
	BlockedDates(ctx context.Context, propertyID int64) ([]string, error)
}

type PaymentAPI interface {
	ConnectWallet(ctx context.Context, info models.WalletInfo) (*models.WalletInfo, error)
	VerifyBalance(ctx context.Context, req models.BalanceVerificationRequest) (*models.BalanceVerificationResponse, error)
	ConfirmPayment(ctx context.Context, req models.SignedTransactionRequest) (*models.BlockchainTransaction, error)
	TransactionStatus(ctx context.Context, txHash string) (*models.TransactionStatusResponse, error)
}

type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	RequestEmailVerification(ctx context.Context) error
}

type ProfileAPI interface {
	Get(ctx context.Context, userID int64) (*models.UserProfile, error)
	AddLanguage(ctx context.Context, userID int64, req models.AddLanguageRequest) (*models.UserLanguage, error)
	RemoveLanguage(ctx context.Context, userID, languageID int64) error
}

type ReviewAPI interface {
	ForProperty(ctx context.Context, propertyID int64) ([]models.Review, error)
	Stats(ctx context.Context, propertyID int64) (*models.PropertyReviewStats, error)
}

// Wallet is the browser-wallet surface used by payment effects.
type Wallet interface {
	Available() bool
	Connect(ctx context.Context) (string, error)
	Disconnect()
	Account() string
	ChainID(ctx context.Context) (string, error)
	EnsureNetwork(ctx context.Context) error
	SendTransaction(ctx context.Context, t wallet.Transfer) (string, error)
	Balance(ctx context.Context, address string) (*big.Int, error)
	SetHandlers(h wallet.Handlers)
}

type SessionStore interface {
	Save(ctx context.Context, s models.Session) error
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type Notifier interface {
	Notify(ctx context.Context, level, text string) error
}

type SheetsWriter interface {
	ReplaceBookingsSheet(ctx context.Context, bookings []models.Booking) error
}
