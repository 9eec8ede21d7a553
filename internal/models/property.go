package models

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Photo is one image of a property.
type Photo struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	DisplayOrder int    `json:"displayOrder"`
	IsCover      bool   `json:"isCover"`
}

// Property is the detail view of a listing.
type Property struct {
	ID                   int64   `json:"id"`
	UserID               int64   `json:"userId"`
	HostWalletAddress    string  `json:"hostWalletAddress,omitempty"`
	Title                string  `json:"title"`
	Description          string  `json:"description,omitempty"`
	PropertyType         string  `json:"propertyType,omitempty"`
	PlaceType            string  `json:"placeType,omitempty"`
	Status               string  `json:"status,omitempty"`
	PricePerNight        float64 `json:"pricePerNight"`
	WeekendPricePerNight float64 `json:"weekendPricePerNight,omitempty"`
	WeeklyPrice          float64 `json:"weeklyPrice,omitempty"`
	MonthlyPrice         float64 `json:"monthlyPrice,omitempty"`
	CleaningFee          float64 `json:"cleaningFee,omitempty"`
	PetFee               float64 `json:"petFee,omitempty"`
	MaxGuests            int     `json:"maxGuests"`
	MinStayNights        int     `json:"minStayNights,omitempty"`
	MaxStayNights        int     `json:"maxStayNights,omitempty"`
	Bedrooms             int     `json:"bedrooms,omitempty"`
	Bathrooms            int     `json:"bathrooms,omitempty"`
	Beds                 int     `json:"beds,omitempty"`
	InstantBooking       bool    `json:"instantBooking"`
	Location
	Photos []Photo `json:"photos,omitempty"`
}

// HasWeekendPrice reports whether a distinct weekend rate is defined.
func (p *Property) HasWeekendPrice() bool {
	return p.WeekendPricePerNight > 0 && p.WeekendPricePerNight != p.PricePerNight
}

// OrderedPhotos returns photos sorted by display order, cover first on ties.
func (p *Property) OrderedPhotos() []Photo {
	out := make([]Photo, len(p.Photos))
	copy(out, p.Photos)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder == out[j].DisplayOrder {
			return out[i].IsCover && !out[j].IsCover
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}

// PropertyPage is the paged catalog response.
type PropertyPage struct {
	Content       []Property `json:"content"`
	TotalElements int        `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
	Number        int        `json:"number"`
	Size          int        `json:"size"`
}

// PropertySearchResult is a search row priced for the requested date range.
type PropertySearchResult struct {
	PropertyID    int64   `json:"propertyId"`
	Title         string  `json:"title"`
	City          string  `json:"city,omitempty"`
	Country       string  `json:"country,omitempty"`
	CoverPhotoURL string  `json:"coverPhotoUrl,omitempty"`
	PricePerNight float64 `json:"pricePerNight"`
	TotalPrice    float64 `json:"totalPrice"`
	Nights        int     `json:"nights"`
	AverageRating float64 `json:"averageRating,omitempty"`
}

// PriceHistory is one entry of a property's price changes.
type PriceHistory struct {
	ID            int64          `json:"id"`
	PropertyID    int64          `json:"propertyId"`
	PricePerNight float64        `json:"pricePerNight"`
	ChangedAt     *LocalDateTime `json:"changedAt,omitempty"`
}

// Location is the geolocation of a property.
type Location struct {
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultTileTemplate is an OpenStreetMap compatible tile URL template.
const DefaultTileTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// Tile returns the slippy map tile containing the location at zoom.
func (l Location) Tile(zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	lat := l.Latitude * math.Pi / 180
	x = int(math.Floor((l.Longitude + 180) / 360 * n))
	y = int(math.Floor((1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2 * n))
	last := int(n) - 1
	x = clamp(x, 0, last)
	y = clamp(y, 0, last)
	return x, y
}

// TileURL renders template with the tile coordinates of the location.
func (l Location) TileURL(template string, zoom int) string {
	if template == "" {
		template = DefaultTileTemplate
	}
	x, y := l.Tile(zoom)
	return strings.NewReplacer(
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(template)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CreateProperty is the body of POST /listings/properties.
type CreateProperty struct {
	UserID        int64   `json:"userId" validate:"required,gt=0"`
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description,omitempty" validate:"max=5000"`
	PropertyType  string  `json:"propertyType" validate:"required"`
	PlaceType     string  `json:"placeType,omitempty"`
	PricePerNight float64 `json:"pricePerNight" validate:"gt=0"`
	CleaningFee   float64 `json:"cleaningFee,omitempty" validate:"gte=0"`
	PetFee        float64 `json:"petFee,omitempty" validate:"gte=0"`
	MaxGuests     int     `json:"maxGuests" validate:"required,min=1,max=50"`
	MinStayNights int     `json:"minStayNights,omitempty" validate:"gte=0"`
	MaxStayNights int     `json:"maxStayNights,omitempty" validate:"gte=0"`
	Location
}
