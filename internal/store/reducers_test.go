package store

import (
	"testing"

	"rentdapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fold(actions ...Action) State {
	st := InitialState()
	for _, a := range actions {
		st = Reduce(st, a)
	}
	return st
}

func TestBookingReducer(t *testing.T) {
	pending := models.Booking{ID: 1, PropertyID: 10, Status: models.StatusPending}
	other := models.Booking{ID: 2, PropertyID: 11, Status: models.StatusConfirmed}

	t.Run("create prepends and sets current", func(t *testing.T) {
		st := fold(
			LoadMyBookingsSuccess{Bookings: []models.Booking{other}},
			CreateBooking{},
			CreateBookingSuccess{Booking: pending},
		)
		b := st.Booking
		require.Len(t, b.MyBookings, 2)
		assert.Equal(t, int64(1), b.MyBookings[0].ID)
		require.NotNil(t, b.CurrentBooking)
		assert.Equal(t, int64(1), b.CurrentBooking.ID)
		assert.False(t, b.Loading)
	})

	t.Run("confirm replaces in place", func(t *testing.T) {
		confirmed := pending
		confirmed.Status = models.StatusConfirmed
		st := fold(
			LoadMyBookingsSuccess{Bookings: []models.Booking{pending, other}},
			ConfirmBookingSuccess{Booking: confirmed},
		)
		assert.Equal(t, models.StatusConfirmed, st.Booking.MyBookings[0].Status)
		assert.Equal(t, confirmed, *st.Booking.SelectedBooking)
		assert.Equal(t, confirmed, *st.Booking.CurrentBooking)
	})

	t.Run("cancel removes from upcoming", func(t *testing.T) {
		cancelled := other
		cancelled.Status = models.StatusCancelled
		st := fold(
			LoadMyBookingsSuccess{Bookings: []models.Booking{pending, other}},
			LoadUpcomingBookingsSuccess{Bookings: []models.Booking{other}},
			CancelBooking{ID: 2},
			CancelBookingSuccess{Booking: cancelled},
		)
		assert.Empty(t, st.Booking.UpcomingBookings)
		assert.Equal(t, models.StatusCancelled, st.Booking.MyBookings[1].Status)
	})

	t.Run("check-in updates my and upcoming", func(t *testing.T) {
		in := other
		in.Status = models.StatusCheckedIn
		st := fold(
			LoadMyBookingsSuccess{Bookings: []models.Booking{other}},
			LoadUpcomingBookingsSuccess{Bookings: []models.Booking{other}},
			CheckInSuccess{Booking: in},
		)
		assert.Equal(t, models.StatusCheckedIn, st.Booking.MyBookings[0].Status)
		assert.Equal(t, models.StatusCheckedIn, st.Booking.UpcomingBookings[0].Status)
	})

	t.Run("reducers never mutate prior state", func(t *testing.T) {
		before := fold(LoadMyBookingsSuccess{Bookings: []models.Booking{pending}})
		confirmed := pending
		confirmed.Status = models.StatusConfirmed
		_ = Reduce(before, ConfirmBookingSuccess{Booking: confirmed})
		assert.Equal(t, models.StatusPending, before.Booking.MyBookings[0].Status)
	})

	t.Run("availability resets on new check", func(t *testing.T) {
		st := fold(CheckAvailabilitySuccess{Available: true})
		require.NotNil(t, st.Booking.IsAvailable)
		st = Reduce(st, CheckAvailability{PropertyID: 1})
		assert.Nil(t, st.Booking.IsAvailable)
		assert.True(t, st.Booking.Loading)
	})

	t.Run("failure stores message", func(t *testing.T) {
		st := fold(CheckOut{ID: 1}, CheckOutFailure{Failure{Error: "not checked in"}})
		assert.False(t, st.Booking.Loading)
		assert.Equal(t, "not checked in", st.Booking.Error)
		st = Reduce(st, ClearBookingError{})
		assert.Empty(t, st.Booking.Error)
	})

	t.Run("selection and reset", func(t *testing.T) {
		st := fold(SelectBooking{Booking: pending})
		require.NotNil(t, st.Booking.SelectedBooking)
		st = Reduce(st, ClearSelectedBooking{})
		assert.Nil(t, st.Booking.SelectedBooking)
		st = fold(LoadBlockedDatesSuccess{BlockedDates: []string{"2025-06-10"}}, ResetBookingState{})
		assert.Equal(t, initialBookingState(), st.Booking)
	})
}

func TestListingsModeSwitch(t *testing.T) {
	props := []models.Property{{ID: 1}, {ID: 2}}
	results := []models.PropertySearchResult{{PropertyID: 3}}

	t.Run("search clears browse list", func(t *testing.T) {
		st := fold(
			LoadAllPropertiesSuccess{Properties: props, Total: 2},
			SearchPropertiesSuccess{Results: results},
		)
		assert.True(t, st.Listings.IsSearchMode)
		assert.Empty(t, st.Listings.Properties)
		assert.Len(t, st.Listings.SearchResults, 1)
	})

	t.Run("browse clears search list", func(t *testing.T) {
		st := fold(
			SearchPropertiesSuccess{Results: results},
			FilterPropertiesSuccess{Properties: props},
		)
		assert.False(t, st.Listings.IsSearchMode)
		assert.Empty(t, st.Listings.SearchResults)
		assert.Equal(t, 2, st.Listings.TotalProperties)
		assert.Equal(t, 2, SelectActiveListingCount(st))
	})

	t.Run("lists never both non-empty", func(t *testing.T) {
		seq := []Action{
			LoadAllPropertiesSuccess{Properties: props, Total: 40},
			SearchPropertiesSuccess{Results: results},
			FilterPropertiesSuccess{Properties: props},
			SearchPropertiesFailure{Failure{Error: "boom"}},
			SearchPropertiesSuccess{Results: results},
			LoadAllPropertiesFailure{Failure{Error: "down"}},
		}
		st := InitialState()
		for _, a := range seq {
			st = Reduce(st, a)
			both := len(st.Listings.Properties) > 0 && len(st.Listings.SearchResults) > 0
			assert.False(t, both, a.Type())
		}
	})

	t.Run("load all failure keeps properties", func(t *testing.T) {
		st := fold(
			LoadAllPropertiesSuccess{Properties: props, Total: 2},
			LoadAllProperties{Page: 0, Size: 50},
			LoadAllPropertiesFailure{Failure{Error: "Service unavailable"}},
		)
		assert.Equal(t, props, st.Listings.Properties)
		assert.Equal(t, "Service unavailable", st.Listings.Error)
		assert.False(t, st.Listings.Loading)
	})

	t.Run("search merges filters", func(t *testing.T) {
		st := fold(SearchProperties{Filters: models.PropertyFilters{City: "Paris", CheckIn: "2025-06-01", CheckOut: "2025-06-05"}})
		f := st.Listings.Filters
		assert.Equal(t, "Paris", f.City)
		assert.Equal(t, 1, f.Adults)
		assert.True(t, st.Listings.Loading)

		st = Reduce(st, ClearFilters{})
		assert.Equal(t, models.DefaultFilters(), st.Listings.Filters)
	})

	t.Run("detail uses its own loading flag", func(t *testing.T) {
		st := fold(LoadPropertyDetail{ID: 7})
		assert.True(t, st.Listings.LoadingDetail)
		assert.False(t, st.Listings.Loading)
		st = Reduce(st, LoadPropertyDetailSuccess{Property: models.Property{ID: 7}})
		require.NotNil(t, SelectSelectedProperty(st))
		assert.False(t, st.Listings.LoadingDetail)
	})
}

func TestQueryAction(t *testing.T) {
	assert.Equal(t, LoadAllProperties{Page: 2, Size: models.DefaultPageSize}, QueryAction(models.DefaultFilters(), 2, 0))
	assert.IsType(t, FilterProperties{}, QueryAction(models.PropertyFilters{City: "Lyon"}, 0, 20))
	assert.IsType(t, SearchProperties{}, QueryAction(models.PropertyFilters{CheckIn: "2025-06-01", CheckOut: "2025-06-03"}, 0, 20))
	// A single date is not a range.
	assert.IsType(t, FilterProperties{}, QueryAction(models.PropertyFilters{CheckIn: "2025-06-01", City: "Lyon"}, 0, 20))
}

func TestPaymentReducer(t *testing.T) {
	t.Run("steps follow actions", func(t *testing.T) {
		st := fold(
			InitPaymentSteps{ReservationID: 9, AmountEUR: 352, AmountEth: 0.176, Recipient: "0xhost"},
			ConnectWallet{},
		)
		step, _ := SelectStep(st, models.StepWalletConnect)
		assert.Equal(t, models.StepProcessing, step.Status)

		st = Reduce(st, ConnectWalletSuccess{Address: "0x1234567890abcdef1234567890abcdef12345678", ChainID: "0x539"})
		step, _ = SelectStep(st, models.StepWalletConnect)
		assert.Equal(t, models.StepCompleted, step.Status)
		assert.Equal(t, "0x1234...5678", step.Message)
		assert.True(t, st.Payment.WalletConnected)
	})

	t.Run("insufficient balance fails the step", func(t *testing.T) {
		st := fold(
			VerifyBalance{},
			VerifyBalanceSuccess{Response: models.BalanceVerificationResponse{BalanceEth: 0.1, RequiredAmountEth: 0.176}},
		)
		step, _ := SelectStep(st, models.StepBalanceCheck)
		assert.Equal(t, models.StepFailed, step.Status)
		require.NotNil(t, st.Payment.HasSufficientBalance)
		assert.False(t, *st.Payment.HasSufficientBalance)
		assert.True(t, SelectPaymentFailed(st))
	})

	t.Run("polling progress and confirmation", func(t *testing.T) {
		st := fold(
			StartPolling{TxHash: "0xabc", ReservationID: 9},
			PollingProgress{Attempt: 5, MaxAttempts: 20},
		)
		assert.True(t, st.Payment.IsPolling)
		assert.Equal(t, 25, st.Payment.PollingProgress)

		st = Reduce(st, PollingConfirmed{Status: models.TransactionStatusResponse{Status: models.TxStatusConfirmed}})
		step, _ := SelectStep(st, models.StepOnChainConfirm)
		assert.Equal(t, models.StepCompleted, step.Status)
		assert.False(t, st.Payment.IsPolling)
		assert.True(t, st.Payment.Confirmed)
	})

	t.Run("stop polling is not a failure", func(t *testing.T) {
		st := fold(StartPolling{TxHash: "0xabc"}, StopPolling{Reason: "Still pending, check back later"})
		assert.False(t, st.Payment.IsPolling)
		assert.False(t, SelectPaymentFailed(st))
		assert.Empty(t, st.Payment.Error)
	})

	t.Run("init keeps the wallet", func(t *testing.T) {
		st := fold(ConnectWalletSuccess{Address: "0xabc"}, SignTransactionSuccess{TxHash: "0x1"}, InitPaymentSteps{ReservationID: 2})
		assert.True(t, st.Payment.WalletConnected)
		assert.Empty(t, st.Payment.TxHash)

		step, _ := SelectStep(st, models.StepWalletConnect)
		assert.Equal(t, models.StepCompleted, step.Status)
		assert.Equal(t, "0xabc", step.Message)
		for _, name := range models.PaymentStepNames[1:] {
			step, _ := SelectStep(st, name)
			assert.Equal(t, models.StepPending, step.Status, name)
		}
	})

	t.Run("init without wallet leaves every step pending", func(t *testing.T) {
		st := fold(InitPaymentSteps{ReservationID: 2})
		assert.Equal(t, models.InitialPaymentSteps(), st.Payment.Steps)
	})

	t.Run("outcomes of another reservation are dropped", func(t *testing.T) {
		st := fold(InitPaymentSteps{ReservationID: 2}, SignTransaction{ReservationID: 2})
		st = Reduce(st, SignTransactionSuccess{ReservationID: 1, TxHash: "0xold"})
		assert.Empty(t, st.Payment.TxHash)
		step, _ := SelectStep(st, models.StepSign)
		assert.Equal(t, models.StepProcessing, step.Status)

		st = Reduce(st, ConfirmPaymentSuccess{ReservationID: 1, Transaction: models.BlockchainTransaction{TxHash: "0xold"}})
		assert.Nil(t, st.Payment.Transaction)

		st = Reduce(st, SignTransactionSuccess{ReservationID: 2, TxHash: "0xnew"})
		assert.Equal(t, "0xnew", st.Payment.TxHash)
	})

	t.Run("late outcome after reset", func(t *testing.T) {
		st := fold(InitPaymentSteps{ReservationID: 2}, SignTransaction{ReservationID: 2}, ResetPayment{})
		st = Reduce(st, SignTransactionSuccess{ReservationID: 2, TxHash: "0xabc"})
		assert.Zero(t, st.Payment.ReservationID)
		assert.Empty(t, st.Payment.TxHash)
		assert.Equal(t, models.InitialPaymentSteps(), st.Payment.Steps)
	})

	t.Run("account change drops balance", func(t *testing.T) {
		st := fold(
			ConnectWalletSuccess{Address: "0xabc"},
			VerifyBalanceSuccess{Response: models.BalanceVerificationResponse{Sufficient: true}},
			WalletAccountChanged{Accounts: nil},
		)
		assert.False(t, st.Payment.WalletConnected)
		assert.Nil(t, st.Payment.HasSufficientBalance)
	})
}

func TestAuthReducer(t *testing.T) {
	user := &models.User{ID: 1, Email: "a@b.c"}
	st := fold(Login{}, LoginSuccess{Response: models.AuthResponse{Token: "tok", User: user}})
	assert.True(t, SelectIsAuthenticated(st))
	assert.Equal(t, "a@b.c", SelectCurrentUser(st).Email)

	st = Reduce(st, LoadMyBookingsSuccess{Bookings: []models.Booking{{ID: 1}}})
	st = Reduce(st, Logout{})
	assert.False(t, SelectIsAuthenticated(st))
	assert.Empty(t, st.Booking.MyBookings)

	st = fold(Register{}, RegisterFailure{Failure{Error: "Email already used"}})
	assert.Equal(t, "Email already used", SelectAuthError(st))
	assert.False(t, st.Auth.Loading)

	st = fold(RestoreSession{Token: "t", User: user})
	assert.True(t, SelectIsAuthenticated(st))
}

func TestProfileReducer(t *testing.T) {
	st := fold(LoadProfileSuccess{Profile: models.UserProfile{UserID: 1, Languages: []models.UserLanguage{{ID: 1, Name: "French"}}}})
	st = Reduce(st, AddLanguageSuccess{Language: models.UserLanguage{ID: 2, Name: "English"}})
	require.Len(t, st.Profile.Profile.Languages, 2)
	st = Reduce(st, RemoveLanguageSuccess{LanguageID: 1})
	require.Len(t, st.Profile.Profile.Languages, 1)
	assert.Equal(t, "English", st.Profile.Profile.Languages[0].Name)
}

func TestBookingSelectors(t *testing.T) {
	st := fold(LoadMyBookingsSuccess{Bookings: []models.Booking{
		{ID: 1, Status: models.StatusConfirmed, TotalNights: 3, PriceBreakdown: &models.PriceBreakdown{TotalAmount: 352}},
		{ID: 2, Status: models.StatusCancelled, TotalNights: 1, PriceBreakdown: &models.PriceBreakdown{TotalAmount: 100}},
		{ID: 3, PropertyID: 8, Status: models.StatusPending, TotalNights: 2},
	}})

	stats := SelectBookingStats(st)
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 352, stats.TotalSpent, 1e-9)
	assert.InDelta(t, 2.0, stats.AverageNights, 1e-9)
	assert.Len(t, SelectCancellableBookings(st), 2)
	assert.Len(t, SelectBookingsByStatus(models.StatusPending)(st), 1)
	assert.True(t, SelectHasBookedProperty(8)(st))
	assert.NotNil(t, SelectBookingByID(2)(st))
	assert.Nil(t, SelectBookingByID(9)(st))
}
