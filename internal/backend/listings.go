package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"rentdapp/internal/models"
)

const serviceListings = "listings"

// catalogPrefix covers the cached detail, page and filter responses.
const catalogPrefix = "/listings/properties/"

// ListingService wraps the /listings endpoints.
type ListingService struct {
	c *Client
}

func NewListingService(c *Client) *ListingService {
	return &ListingService{c: c}
}

// All returns one page of the active catalog.
func (s *ListingService) All(ctx context.Context, page, size int) (*models.PropertyPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var out models.PropertyPage
	if err := s.c.getCached(ctx, serviceListings, "/listings/properties/all", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ListingService) Get(ctx context.Context, id int64) (*models.Property, error) {
	var out models.Property
	if err := s.c.getCached(ctx, serviceListings, idPath("/listings/properties/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter queries the catalog without dates; prices are per night.
func (s *ListingService) Filter(ctx context.Context, f models.PropertyFilters) ([]models.Property, error) {
	var out []models.Property
	if err := s.c.getCached(ctx, serviceListings, "/listings/properties/filter", f.Query(false), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search prices every match for the filter date range.
func (s *ListingService) Search(ctx context.Context, f models.PropertyFilters) ([]models.PropertySearchResult, error) {
	if !f.HasDates() {
		return nil, errMissingDates
	}
	var out []models.PropertySearchResult
	if err := s.c.get(ctx, serviceListings, "/listings/properties/search/tenant", f.Query(true), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BlockedDates returns the unavailable days of a property in [start, end].
func (s *ListingService) BlockedDates(ctx context.Context, id int64, start, end string) ([]string, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	var out []string
	if err := s.c.get(ctx, serviceListings, idPath("/listings/properties/%s/blocked-dates", id), q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ListingService) Create(ctx context.Context, p models.CreateProperty) (*models.Property, error) {
	var out models.Property
	if err := s.c.send(ctx, serviceListings, http.MethodPost, "/listings/properties", p, &out); err != nil {
		return nil, err
	}
	s.c.evictPrefix(ctx, catalogPrefix)
	return &out, nil
}

func (s *ListingService) Update(ctx context.Context, id int64, patch map[string]any) (*models.Property, error) {
	path := idPath("/listings/properties/%s", id)
	var out models.Property
	if err := s.c.send(ctx, serviceListings, http.MethodPut, path, patch, &out); err != nil {
		return nil, err
	}
	s.c.evictPrefix(ctx, catalogPrefix)
	return &out, nil
}

// Publish moves a draft listing to active.
func (s *ListingService) Publish(ctx context.Context, id int64) (*models.Property, error) {
	var out models.Property
	if err := s.c.send(ctx, serviceListings, http.MethodPatch, idPath("/listings/properties/%s/publish", id), nil, &out); err != nil {
		return nil, err
	}
	s.c.evictPrefix(ctx, catalogPrefix)
	return &out, nil
}

func (s *ListingService) Delete(ctx context.Context, id int64) error {
	path := idPath("/listings/properties/%s", id)
	if err := s.c.send(ctx, serviceListings, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	s.c.evictPrefix(ctx, catalogPrefix)
	return nil
}

// Mine lists the properties hosted by userID.
func (s *ListingService) Mine(ctx context.Context, userID int64) ([]models.Property, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	var out []models.Property
	if err := s.c.get(ctx, serviceListings, "/listings/properties/my", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ListingService) PriceHistory(ctx context.Context, id int64) ([]models.PriceHistory, error) {
	var out []models.PriceHistory
	if err := s.c.get(ctx, serviceListings, idPath("/listings/properties/%s/price-history", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
