package models

import (
	"net/url"
	"strconv"
)

// PropertyFilters is the flat set of optional search constraints.
type PropertyFilters struct {
	City           string   `json:"city,omitempty"`
	Country        string   `json:"country,omitempty"`
	CheckIn        string   `json:"checkIn,omitempty"`
	CheckOut       string   `json:"checkOut,omitempty"`
	Adults         int      `json:"adults,omitempty"`
	Children       int      `json:"children,omitempty"`
	Babies         int      `json:"babies,omitempty"`
	Pets           int      `json:"pets,omitempty"`
	MinPrice       *float64 `json:"minPrice,omitempty"`
	MaxPrice       *float64 `json:"maxPrice,omitempty"`
	Bedrooms       int      `json:"bedrooms,omitempty"`
	Bathrooms      int      `json:"bathrooms,omitempty"`
	Beds           int      `json:"beds,omitempty"`
	AmenityIDs     []int64  `json:"amenityIds,omitempty"`
	PropertyType   string   `json:"propertyType,omitempty"`
	PlaceType      string   `json:"placeType,omitempty"`
	InstantBooking *bool    `json:"instantBooking,omitempty"`
	SmokingAllowed *bool    `json:"smokingAllowed,omitempty"`
	EventsAllowed  *bool    `json:"eventsAllowed,omitempty"`
	IsFirstBooking *bool    `json:"isFirstBooking,omitempty"`
	BookingDate    string   `json:"bookingDate,omitempty"`
}

// DefaultFilters is the initial guest composition of the listings view.
func DefaultFilters() PropertyFilters {
	return PropertyFilters{Adults: 1}
}

// HasDates reports whether a date range is present, which selects search mode.
func (f PropertyFilters) HasDates() bool {
	return f.CheckIn != "" && f.CheckOut != ""
}

// HasConstraints reports whether anything beyond the guest composition is set.
func (f PropertyFilters) HasConstraints() bool {
	return f.City != "" || f.Country != "" || f.HasDates() ||
		f.MinPrice != nil || f.MaxPrice != nil ||
		f.Bedrooms > 0 || f.Bathrooms > 0 || f.Beds > 0 ||
		len(f.AmenityIDs) > 0 || f.PropertyType != "" || f.PlaceType != "" ||
		f.InstantBooking != nil || f.SmokingAllowed != nil || f.EventsAllowed != nil
}

// Merge overlays the non-empty fields of patch on f.
func (f PropertyFilters) Merge(patch PropertyFilters) PropertyFilters {
	out := f
	if patch.City != "" {
		out.City = patch.City
	}
	if patch.Country != "" {
		out.Country = patch.Country
	}
	if patch.CheckIn != "" {
		out.CheckIn = patch.CheckIn
	}
	if patch.CheckOut != "" {
		out.CheckOut = patch.CheckOut
	}
	if patch.Adults > 0 {
		out.Adults = patch.Adults
	}
	if patch.Children > 0 {
		out.Children = patch.Children
	}
	if patch.Babies > 0 {
		out.Babies = patch.Babies
	}
	if patch.Pets > 0 {
		out.Pets = patch.Pets
	}
	if patch.MinPrice != nil {
		out.MinPrice = patch.MinPrice
	}
	if patch.MaxPrice != nil {
		out.MaxPrice = patch.MaxPrice
	}
	if patch.Bedrooms > 0 {
		out.Bedrooms = patch.Bedrooms
	}
	if patch.Bathrooms > 0 {
		out.Bathrooms = patch.Bathrooms
	}
	if patch.Beds > 0 {
		out.Beds = patch.Beds
	}
	if len(patch.AmenityIDs) > 0 {
		out.AmenityIDs = append([]int64(nil), patch.AmenityIDs...)
	}
	if patch.PropertyType != "" {
		out.PropertyType = patch.PropertyType
	}
	if patch.PlaceType != "" {
		out.PlaceType = patch.PlaceType
	}
	if patch.InstantBooking != nil {
		out.InstantBooking = patch.InstantBooking
	}
	if patch.SmokingAllowed != nil {
		out.SmokingAllowed = patch.SmokingAllowed
	}
	if patch.EventsAllowed != nil {
		out.EventsAllowed = patch.EventsAllowed
	}
	if patch.IsFirstBooking != nil {
		out.IsFirstBooking = patch.IsFirstBooking
	}
	if patch.BookingDate != "" {
		out.BookingDate = patch.BookingDate
	}
	return out
}

// Query builds the query parameters shared by the filter and search endpoints.
// Dates are only emitted when withDates is set.
func (f PropertyFilters) Query(withDates bool) url.Values {
	q := url.Values{}
	adults := f.Adults
	if adults <= 0 {
		adults = 1
	}
	if withDates {
		q.Set("checkIn", f.CheckIn)
		q.Set("checkOut", f.CheckOut)
	}
	q.Set("adults", strconv.Itoa(adults))
	q.Set("children", strconv.Itoa(f.Children))
	q.Set("babies", strconv.Itoa(f.Babies))
	q.Set("pets", strconv.Itoa(f.Pets))

	setString(q, "city", f.City)
	setString(q, "country", f.Country)
	setString(q, "propertyType", f.PropertyType)
	setString(q, "placeType", f.PlaceType)
	if f.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	setPositive(q, "bedrooms", f.Bedrooms)
	setPositive(q, "bathrooms", f.Bathrooms)
	setPositive(q, "beds", f.Beds)
	setBool(q, "instantBooking", f.InstantBooking)
	for _, id := range f.AmenityIDs {
		q.Add("amenityIds", strconv.FormatInt(id, 10))
	}
	setBool(q, "smokingAllowed", f.SmokingAllowed)
	setBool(q, "eventsAllowed", f.EventsAllowed)
	if withDates {
		setBool(q, "isFirstBooking", f.IsFirstBooking)
		setString(q, "bookingDate", f.BookingDate)
	}
	return q
}

func setString(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func setPositive(q url.Values, key string, val int) {
	if val > 0 {
		q.Set(key, strconv.Itoa(val))
	}
}

func setBool(q url.Values, key string, val *bool) {
	if val != nil {
		q.Set(key, strconv.FormatBool(*val))
	}
}
