package effects

import (
	"context"

	"rentdapp/internal/domain"
	"rentdapp/internal/store"

	"github.com/rs/zerolog"
)

// List queries share one key so a late answer for an abandoned query never
// replaces the list the user asked for last.
const listingsQueryKey = "listings-query"

type ListingsEffects struct {
	listings domain.ListingAPI
	reviews  domain.ReviewAPI
	logger   *zerolog.Logger
}

func NewListingsEffects(listings domain.ListingAPI, reviews domain.ReviewAPI, logger *zerolog.Logger) *ListingsEffects {
	return &ListingsEffects{listings: listings, reviews: reviews, logger: logger}
}

func (e *ListingsEffects) Job(a store.Action) (Job, bool) {
	switch a := a.(type) {
	case store.LoadAllProperties:
		return latest(listingsQueryKey, func(ctx context.Context, emit func(store.Action)) {
			page, err := e.listings.All(ctx, a.Page, a.Size)
			if err != nil {
				emit(store.LoadAllPropertiesFailure{Failure: failure(err, "Unable to load properties")})
				return
			}
			emit(store.LoadAllPropertiesSuccess{Properties: page.Content, Total: page.TotalElements})
		})
	case store.SearchProperties:
		return latest(listingsQueryKey, func(ctx context.Context, emit func(store.Action)) {
			results, err := e.listings.Search(ctx, a.Filters)
			if err != nil {
				emit(store.SearchPropertiesFailure{Failure: failure(err, "Search failed")})
				return
			}
			emit(store.SearchPropertiesSuccess{Results: results})
		})
	case store.FilterProperties:
		return latest(listingsQueryKey, func(ctx context.Context, emit func(store.Action)) {
			props, err := e.listings.Filter(ctx, a.Filters)
			if err != nil {
				emit(store.FilterPropertiesFailure{Failure: failure(err, "Filtering failed")})
				return
			}
			emit(store.FilterPropertiesSuccess{Properties: props})
		})
	case store.LoadPropertyDetail:
		return latest("listings-detail", func(ctx context.Context, emit func(store.Action)) {
			p, err := e.listings.Get(ctx, a.ID)
			if err != nil {
				emit(store.LoadPropertyDetailFailure{Failure: failure(err, "Unable to load the property")})
				return
			}
			emit(store.LoadPropertyDetailSuccess{Property: *p})
		})
	case store.LoadPropertyBlockedDates:
		return latest("listings-blocked-dates", func(ctx context.Context, emit func(store.Action)) {
			dates, err := e.listings.BlockedDates(ctx, a.PropertyID, a.Start, a.End)
			if err != nil {
				emit(store.LoadPropertyBlockedDatesFailure{Failure: failure(err, "Unable to load the calendar")})
				return
			}
			emit(store.LoadPropertyBlockedDatesSuccess{PropertyID: a.PropertyID, Dates: dates})
		})
	case store.LoadPropertyReviews:
		return latest("listings-reviews", func(ctx context.Context, emit func(store.Action)) {
			reviews, err := e.reviews.ForProperty(ctx, a.PropertyID)
			if err != nil {
				emit(store.LoadPropertyReviewsFailure{Failure: failure(err, "Unable to load reviews")})
				return
			}
			// Stats are optional on the detail page.
			stats, err := e.reviews.Stats(ctx, a.PropertyID)
			if err != nil {
				e.logger.Debug().Err(err).Int64("property_id", a.PropertyID).Msg("review stats unavailable")
				stats = nil
			}
			emit(store.LoadPropertyReviewsSuccess{PropertyID: a.PropertyID, Reviews: reviews, Stats: stats})
		})
	}
	return Job{}, false
}
