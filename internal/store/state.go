package store

// State is the root of the client state tree.
type State struct {
	Auth     AuthState     `json:"auth"`
	Booking  BookingState  `json:"booking"`
	Payment  PaymentState  `json:"payment"`
	Listings ListingsState `json:"listings"`
	Profile  ProfileState  `json:"profile"`
}

func InitialState() State {
	return State{
		Auth:     initialAuthState(),
		Booking:  initialBookingState(),
		Payment:  initialPaymentState(),
		Listings: initialListingsState(),
		Profile:  initialProfileState(),
	}
}

// Reduce is the root reducer. Every slice sees every action.
func Reduce(s State, a Action) State {
	return State{
		Auth:     reduceAuth(s.Auth, a),
		Booking:  reduceBooking(s.Booking, a),
		Payment:  reducePayment(s.Payment, a),
		Listings: reduceListings(s.Listings, a),
		Profile:  reduceProfile(s.Profile, a),
	}
}

// Slice returns the named slice, or false for an unknown name.
func (s State) Slice(name string) (any, bool) {
	switch name {
	case "auth":
		return s.Auth, true
	case "booking":
		return s.Booking, true
	case "payment":
		return s.Payment, true
	case "listings":
		return s.Listings, true
	case "profile":
		return s.Profile, true
	}
	return nil, false
}
