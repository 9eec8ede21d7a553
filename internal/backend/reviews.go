package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"rentdapp/internal/models"
)

const serviceReviews = "reviews"

// ReviewService wraps the /reviews endpoints.
type ReviewService struct {
	c *Client
}

func NewReviewService(c *Client) *ReviewService {
	return &ReviewService{c: c}
}

func (s *ReviewService) Create(ctx context.Context, req models.ReviewRequest) (*models.Review, error) {
	var out models.Review
	if err := s.c.send(ctx, serviceReviews, http.MethodPost, "/reviews", req, &out); err != nil {
		return nil, err
	}
	s.evictProperty(ctx, req.PropertyID)
	return &out, nil
}

// evictProperty drops the cached reviews and stats of one property, or of
// every property when the id is unknown.
func (s *ReviewService) evictProperty(ctx context.Context, propertyID int64) {
	if propertyID <= 0 {
		s.c.evictPrefix(ctx, "/reviews/property/")
		return
	}
	s.c.evict(ctx, idPath("/reviews/property/%s", propertyID), idPath("/reviews/property/%s/stats", propertyID))
}

func (s *ReviewService) ForProperty(ctx context.Context, propertyID int64) ([]models.Review, error) {
	var out []models.Review
	if err := s.c.getCached(ctx, serviceReviews, idPath("/reviews/property/%s", propertyID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReviewService) Stats(ctx context.Context, propertyID int64) (*models.PropertyReviewStats, error) {
	var out models.PropertyReviewStats
	if err := s.c.getCached(ctx, serviceReviews, idPath("/reviews/property/%s/stats", propertyID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ReviewService) AverageRating(ctx context.Context, propertyID int64) (float64, error) {
	var out struct {
		AverageRating float64 `json:"averageRating"`
	}
	if err := s.c.get(ctx, serviceReviews, idPath("/reviews/property/%s/average-rating", propertyID), nil, &out); err != nil {
		return 0, err
	}
	return out.AverageRating, nil
}

// Update edits a review; userID must be its author.
func (s *ReviewService) Update(ctx context.Context, id, userID int64, req models.ReviewUpdateRequest) (*models.Review, error) {
	if err := s.c.Validate(req); err != nil {
		return nil, err
	}
	var out models.Review
	if err := s.c.request(ctx, serviceReviews, http.MethodPut, idPath("/reviews/%s", id), userQuery(userID), req, &out); err != nil {
		return nil, err
	}
	s.evictProperty(ctx, out.PropertyID)
	return &out, nil
}

// Delete removes a review. The response does not name the property, so
// every cached review list is dropped.
func (s *ReviewService) Delete(ctx context.Context, id, userID int64) error {
	if err := s.c.request(ctx, serviceReviews, http.MethodDelete, idPath("/reviews/%s", id), userQuery(userID), nil, nil); err != nil {
		return err
	}
	s.evictProperty(ctx, 0)
	return nil
}

func userQuery(userID int64) url.Values {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	return q
}
