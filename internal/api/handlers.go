package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rentdapp/internal/backend"
	"rentdapp/internal/database"
	"rentdapp/internal/export"
	"rentdapp/internal/models"
	"rentdapp/internal/payment"
	"rentdapp/internal/pricing"
	"rentdapp/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	defaultActionsLimit = 50
	maxActionsLimit     = 500
	calendarDays        = 90
)

type Journal interface {
	Recent(ctx context.Context, limit int) ([]database.JournalEntry, error)
}

type PaymentFlow interface {
	Begin(booking models.Booking, hostWallet string) (payment.Snapshot, error)
	Snapshot() payment.Snapshot
	ConnectWallet(ctx context.Context) error
	CheckBalance(ctx context.Context) error
	Pay(ctx context.Context) error
	Cancel(ctx context.Context) error
}

type Exporter interface {
	Export(ctx context.Context, bookings []models.Booking) (export.Result, error)
}

// Handlers translate requests into store actions and answer with the
// outcome or the resulting state.
type Handlers struct {
	store    *store.Store
	journal  Journal
	payments PaymentFlow
	exporter Exporter
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
	logger   *zerolog.Logger
}

type Deps struct {
	Store    *store.Store
	Journal  Journal
	Payments PaymentFlow
	Exporter Exporter
	// Timeout bounds how long a request waits for an outcome action.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

func NewHandlers(d Deps) *Handlers {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handlers{
		store:    d.Store,
		journal:  d.Journal,
		payments: d.Payments,
		exporter: d.Exporter,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
		now:      time.Now,
		logger:   d.Logger,
	}
}

// await dispatches a and waits for an action of one of the outcome types.
func (h *Handlers) await(r *http.Request, a store.Action, outcomes ...store.Action) (store.Action, error) {
	types := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		types[o.Type()] = struct{}{}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	return h.store.DispatchAndWait(ctx, a, func(out store.Action) bool {
		_, ok := types[out.Type()]
		return ok
	})
}

// outcomeFailed writes the wait error or failure action, if any.
func outcomeFailed(w http.ResponseWriter, out store.Action, err error, status int) bool {
	if err != nil {
		writeWaitError(w, err)
		return true
	}
	if f, ok := out.(store.Failed); ok {
		writeError(w, status, f.FailureMessage())
		return true
	}
	return false
}

func writeWaitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timed out waiting for the backend")
	case errors.Is(err, store.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "store closed")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"authenticated": store.SelectIsAuthenticated(h.store.State()),
	})
}

func (h *Handlers) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *Handlers) StateSlice(w http.ResponseWriter, r *http.Request) {
	slice, ok := h.store.State().Slice(chi.URLParam(r, "slice"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown state slice")
		return
	}
	writeJSON(w, http.StatusOK, slice)
}

func (h *Handlers) Actions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "action journal disabled")
		return
	}
	limit := defaultActionsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActionsLimit)
	}
	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("read action journal")
		writeError(w, http.StatusInternalServerError, "failed to read actions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": entries})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	out, err := h.await(r, store.Login{Request: req}, store.LoginSuccess{}, store.LoginFailure{})
	if outcomeFailed(w, out, err, http.StatusUnauthorized) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": out.(store.LoginSuccess).Response.User})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	out, err := h.await(r, store.Register{Request: req}, store.RegisterSuccess{}, store.RegisterFailure{})
	if outcomeFailed(w, out, err, http.StatusBadRequest) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": out.(store.RegisterSuccess).Response.User})
}

func (h *Handlers) Logout(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.store.Dispatch(store.Logout{}); err != nil {
		writeWaitError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listingsQuery struct {
	Filters models.PropertyFilters `json:"filters"`
	Page    int                    `json:"page"`
	Size    int                    `json:"size"`
}

func (h *Handlers) QueryListings(w http.ResponseWriter, r *http.Request) {
	var q listingsQuery
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// A newer query supersedes this one, so any listing outcome ends the wait.
	out, err := h.await(r, store.QueryAction(q.Filters, q.Page, q.Size),
		store.LoadAllPropertiesSuccess{}, store.LoadAllPropertiesFailure{},
		store.SearchPropertiesSuccess{}, store.SearchPropertiesFailure{},
		store.FilterPropertiesSuccess{}, store.FilterPropertiesFailure{})
	if outcomeFailed(w, out, err, http.StatusBadGateway) {
		return
	}
	l := h.store.State().Listings
	writeJSON(w, http.StatusOK, map[string]any{
		"isSearchMode":    l.IsSearchMode,
		"properties":      l.Properties,
		"searchResults":   l.SearchResults,
		"totalProperties": l.TotalProperties,
	})
}

// property returns the selected property when it matches id, loading it otherwise.
func (h *Handlers) property(r *http.Request, id int64) (*models.Property, int, error) {
	if p := store.SelectSelectedProperty(h.store.State()); p != nil && p.ID == id {
		return p, 0, nil
	}
	out, err := h.await(r, store.LoadPropertyDetail{ID: id}, store.LoadPropertyDetailSuccess{}, store.LoadPropertyDetailFailure{})
	if err != nil {
		return nil, http.StatusGatewayTimeout, err
	}
	switch a := out.(type) {
	case store.LoadPropertyDetailFailure:
		return nil, http.StatusNotFound, errors.New(a.Error)
	case store.LoadPropertyDetailSuccess:
		if a.Property.ID != id {
			return nil, http.StatusConflict, errors.New("another property was loaded meanwhile")
		}
		p := a.Property
		return &p, 0, nil
	}
	return nil, http.StatusInternalServerError, errors.New("unexpected outcome")
}

func (h *Handlers) Property(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}
	p, status, err := h.property(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if _, err := h.store.Dispatch(store.LoadPropertyReviews{PropertyID: id}); err != nil {
		h.logger.Debug().Err(err).Msg("reviews not requested")
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}
	q := r.URL.Query()
	from := h.now()
	if raw := q.Get("from"); raw != "" {
		d, err := pricing.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}
	to := from.AddDate(0, 0, calendarDays)
	var checkIn time.Time
	if raw := q.Get("checkIn"); raw != "" {
		d, err := pricing.ParseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid checkIn date")
			return
		}
		checkIn = d
	}

	p, status, err := h.property(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	out, err := h.await(r, store.LoadPropertyBlockedDates{
		PropertyID: id,
		Start:      models.DateKey(from),
		End:        models.DateKey(to),
	}, store.LoadPropertyBlockedDatesSuccess{}, store.LoadPropertyBlockedDatesFailure{})
	if outcomeFailed(w, out, err, http.StatusBadGateway) {
		return
	}
	blocked := out.(store.LoadPropertyBlockedDatesSuccess).Dates

	cal := pricing.NewCalendar(p, pricing.NewBlockedDates(blocked...), h.now)
	resp := map[string]any{"blockedDates": blocked}
	if checkIn.IsZero() {
		resp["selectable"] = cal.SelectableDates(from, to)
	} else {
		resp["checkIn"] = models.DateKey(checkIn)
		resp["selectable"] = cal.SelectableCheckOuts(checkIn, to)
	}
	writeJSON(w, http.StatusOK, resp)
}

type quoteRequest struct {
	PropertyID int64  `json:"propertyId" validate:"required,gt=0"`
	CheckIn    string `json:"checkIn" validate:"required"`
	CheckOut   string `json:"checkOut" validate:"required"`
	HasPets    bool   `json:"hasPets"`
}

func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	checkIn, checkOut, ok := parseRange(w, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	p, status, err := h.property(r, req.PropertyID)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	q, err := pricing.QuoteStrict(pricing.RatesFor(p), checkIn, checkOut, req.HasPets)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func parseRange(w http.ResponseWriter, in, out string) (time.Time, time.Time, bool) {
	checkIn, err := pricing.ParseDay(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkIn date")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err := pricing.ParseDay(out)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checkOut date")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

type createBookingRequest struct {
	PropertyID int64  `json:"propertyId" validate:"required,gt=0"`
	CheckIn    string `json:"checkIn" validate:"required"`
	CheckOut   string `json:"checkOut" validate:"required"`
	Guests     int    `json:"guests" validate:"required,min=1,max=50"`
	HasPets    bool   `json:"hasPets"`
	Notes      string `json:"notes" validate:"max=1000"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	checkIn, checkOut, ok := parseRange(w, req.CheckIn, req.CheckOut)
	if !ok {
		return
	}
	body, err := pricing.BookingRequest(req.PropertyID, checkIn, checkOut, req.Guests, req.HasPets, req.Notes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out, err := h.await(r, store.CreateBooking{Request: body}, store.CreateBookingSuccess{}, store.CreateBookingFailure{})
	if outcomeFailed(w, out, err, http.StatusBadRequest) {
		return
	}
	writeJSON(w, http.StatusCreated, out.(store.CreateBookingSuccess).Booking)
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.await(r, store.LoadMyBookings{}, store.LoadMyBookingsSuccess{}, store.LoadMyBookingsFailure{})
	if outcomeFailed(w, out, err, http.StatusBadGateway) {
		return
	}
	s := h.store.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": store.SelectMyBookings(s),
		"stats":    store.SelectBookingStats(s),
	})
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !h.decodeValid(w, r, &req) {
		return
	}
	out, err := h.await(r, store.CancelBooking{ID: id, Reason: req.Reason}, store.CancelBookingSuccess{}, store.CancelBookingFailure{})
	if outcomeFailed(w, out, err, http.StatusConflict) {
		return
	}
	writeJSON(w, http.StatusOK, out.(store.CancelBookingSuccess).Booking)
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	out, err := h.await(r, store.CheckIn{ID: id}, store.CheckInSuccess{}, store.CheckInFailure{})
	if outcomeFailed(w, out, err, http.StatusConflict) {
		return
	}
	writeJSON(w, http.StatusOK, out.(store.CheckInSuccess).Booking)
}

func (h *Handlers) CheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	out, err := h.await(r, store.CheckOut{ID: id}, store.CheckOutSuccess{}, store.CheckOutFailure{})
	if outcomeFailed(w, out, err, http.StatusConflict) {
		return
	}
	writeJSON(w, http.StatusOK, out.(store.CheckOutSuccess).Booking)
}

func (h *Handlers) ExportBookings(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export disabled")
		return
	}
	bookings := store.SelectMyBookings(h.store.State())
	if len(bookings) == 0 {
		out, err := h.await(r, store.LoadMyBookings{}, store.LoadMyBookingsSuccess{}, store.LoadMyBookingsFailure{})
		if outcomeFailed(w, out, err, http.StatusBadGateway) {
			return
		}
		bookings = out.(store.LoadMyBookingsSuccess).Bookings
	}
	res, err := h.exporter.Export(r.Context(), bookings)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error().Err(err).Msg("export bookings")
		writeError(w, http.StatusInternalServerError, "export failed")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handlers) PaymentStatus(w http.ResponseWriter, _ *http.Request) {
	if h.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments disabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": h.payments.Snapshot(),
		"state":   h.store.State().Payment,
	})
}

type startPaymentRequest struct {
	BookingID int64 `json:"bookingId" validate:"required,gt=0"`
}

func (h *Handlers) StartPayment(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments disabled")
		return
	}
	var req startPaymentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	booking := store.SelectBookingByID(req.BookingID)(h.store.State())
	if booking == nil {
		out, err := h.await(r, store.LoadBookingByID{ID: req.BookingID}, store.LoadBookingByIDSuccess{}, store.LoadBookingByIDFailure{})
		if outcomeFailed(w, out, err, http.StatusNotFound) {
			return
		}
		b := out.(store.LoadBookingByIDSuccess).Booking
		booking = &b
	}

	hostWallet := ""
	if p, _, err := h.property(r, booking.PropertyID); err == nil {
		hostWallet = p.HostWalletAddress
	} else {
		h.logger.Warn().Err(err).Int64("property_id", booking.PropertyID).Msg("host wallet unknown, paying escrow")
	}

	snap, err := h.payments.Begin(*booking, hostWallet)
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) PaymentStep(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments disabled")
		return
	}
	var run func(context.Context) error
	switch chi.URLParam(r, "step") {
	case "connect":
		run = h.payments.ConnectWallet
	case "balance":
		run = h.payments.CheckBalance
	case "sign":
		run = h.payments.Pay
	default:
		writeError(w, http.StatusNotFound, "unknown payment step")
		return
	}

	// The step outlives the request; a slow wallet prompt answers 202.
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	status := http.StatusOK
	if err := run(ctx); err != nil {
		if !errors.Is(err, payment.ErrPending) {
			writePaymentError(w, err)
			return
		}
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]any{
		"session": h.payments.Snapshot(),
		"state":   h.store.State().Payment,
	})
}

func (h *Handlers) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments disabled")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.payments.Cancel(ctx); err != nil {
		writePaymentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writePaymentError(w http.ResponseWriter, err error) {
	var stepErr *payment.StepError
	switch {
	case errors.As(err, &stepErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    stepErr.Message,
			"step":     stepErr.Step,
			"rejected": stepErr.Rejected,
		})
	case errors.Is(err, payment.ErrBusy), errors.Is(err, payment.ErrInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrNotStarted), errors.Is(err, payment.ErrPrecondition),
		errors.Is(err, payment.ErrNotPending), errors.Is(err, payment.ErrNoAmount),
		errors.Is(err, payment.ErrNoRecipient):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		writeWaitError(w, err)
	}
}

func (h *Handlers) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, backend.Message(err, "invalid request"))
		return false
	}
	return true
}
