package store

import "rentdapp/internal/models"

type ListingsState struct {
	// IsSearchMode is true while SearchResults is the active list.
	IsSearchMode     bool                          `json:"isSearchMode"`
	Properties       []models.Property             `json:"properties"`
	TotalProperties  int                           `json:"totalProperties"`
	SearchResults    []models.PropertySearchResult `json:"searchResults"`
	SelectedProperty *models.Property              `json:"selectedProperty,omitempty"`
	BlockedDates     []string                      `json:"blockedDates"`
	Reviews          []models.Review               `json:"reviews"`
	ReviewStats      *models.PropertyReviewStats   `json:"reviewStats,omitempty"`
	Filters          models.PropertyFilters        `json:"filters"`
	Loading          bool                          `json:"loading"`
	LoadingDetail    bool                          `json:"loadingDetail"`
	Error            string                        `json:"error,omitempty"`
}

func initialListingsState() ListingsState {
	return ListingsState{
		Properties:    []models.Property{},
		SearchResults: []models.PropertySearchResult{},
		BlockedDates:  []string{},
		Reviews:       []models.Review{},
		Filters:       models.DefaultFilters(),
	}
}

type LoadAllProperties struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

type LoadAllPropertiesSuccess struct {
	Properties []models.Property `json:"properties"`
	Total      int               `json:"total"`
}

type LoadAllPropertiesFailure struct{ Failure }

type SearchProperties struct {
	Filters models.PropertyFilters `json:"filters"`
}

type SearchPropertiesSuccess struct {
	Results []models.PropertySearchResult `json:"results"`
}

type SearchPropertiesFailure struct{ Failure }

type FilterProperties struct {
	Filters models.PropertyFilters `json:"filters"`
}

type FilterPropertiesSuccess struct {
	Properties []models.Property `json:"properties"`
}

type FilterPropertiesFailure struct{ Failure }

type LoadPropertyDetail struct {
	ID int64 `json:"id"`
}

type LoadPropertyDetailSuccess struct {
	Property models.Property `json:"property"`
}

type LoadPropertyDetailFailure struct{ Failure }

type LoadPropertyBlockedDates struct {
	PropertyID int64  `json:"propertyId"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
}

type LoadPropertyBlockedDatesSuccess struct {
	PropertyID int64    `json:"propertyId"`
	Dates      []string `json:"dates"`
}

type LoadPropertyBlockedDatesFailure struct{ Failure }

type LoadPropertyReviews struct {
	PropertyID int64 `json:"propertyId"`
}

type LoadPropertyReviewsSuccess struct {
	PropertyID int64                       `json:"propertyId"`
	Reviews    []models.Review             `json:"reviews"`
	Stats      *models.PropertyReviewStats `json:"stats,omitempty"`
}

type LoadPropertyReviewsFailure struct{ Failure }

type UpdateFilters struct {
	Filters models.PropertyFilters `json:"filters"`
}

type ClearFilters struct{}

type ClearListingsError struct{}

func (LoadAllProperties) Type() string         { return "[Listings] Load All Properties" }
func (LoadAllPropertiesSuccess) Type() string  { return "[Listings] Load All Properties Success" }
func (LoadAllPropertiesFailure) Type() string  { return "[Listings] Load All Properties Failure" }
func (SearchProperties) Type() string          { return "[Listings] Search Properties" }
func (SearchPropertiesSuccess) Type() string   { return "[Listings] Search Properties Success" }
func (SearchPropertiesFailure) Type() string   { return "[Listings] Search Properties Failure" }
func (FilterProperties) Type() string          { return "[Listings] Filter Properties" }
func (FilterPropertiesSuccess) Type() string   { return "[Listings] Filter Properties Success" }
func (FilterPropertiesFailure) Type() string   { return "[Listings] Filter Properties Failure" }
func (LoadPropertyDetail) Type() string        { return "[Listings] Load Property Detail" }
func (LoadPropertyDetailSuccess) Type() string { return "[Listings] Load Property Detail Success" }
func (LoadPropertyDetailFailure) Type() string { return "[Listings] Load Property Detail Failure" }
func (LoadPropertyBlockedDates) Type() string  { return "[Listings] Load Property Blocked Dates" }
func (LoadPropertyBlockedDatesSuccess) Type() string {
	return "[Listings] Load Property Blocked Dates Success"
}
func (LoadPropertyBlockedDatesFailure) Type() string {
	return "[Listings] Load Property Blocked Dates Failure"
}
func (LoadPropertyReviews) Type() string        { return "[Listings] Load Property Reviews" }
func (LoadPropertyReviewsSuccess) Type() string { return "[Listings] Load Property Reviews Success" }
func (LoadPropertyReviewsFailure) Type() string { return "[Listings] Load Property Reviews Failure" }
func (UpdateFilters) Type() string              { return "[Listings] Update Filters" }
func (ClearFilters) Type() string               { return "[Listings] Clear Filters" }
func (ClearListingsError) Type() string         { return "[Listings] Clear Error" }

func reduceListings(s ListingsState, a Action) ListingsState {
	switch a := a.(type) {
	case LoadAllProperties:
		s.Loading = true
		s.Error = ""
	case SearchProperties:
		s.Filters = s.Filters.Merge(a.Filters)
		s.Loading = true
		s.Error = ""
	case FilterProperties:
		s.Filters = s.Filters.Merge(a.Filters)
		s.Loading = true
		s.Error = ""

	// A success in one mode empties the other mode's list.
	case LoadAllPropertiesSuccess:
		s.Properties = nonNil(a.Properties)
		s.TotalProperties = a.Total
		s.SearchResults = []models.PropertySearchResult{}
		s.IsSearchMode = false
		s.Loading = false
		s.Error = ""
	case FilterPropertiesSuccess:
		s.Properties = nonNil(a.Properties)
		s.TotalProperties = len(a.Properties)
		s.SearchResults = []models.PropertySearchResult{}
		s.IsSearchMode = false
		s.Loading = false
		s.Error = ""
	case SearchPropertiesSuccess:
		s.SearchResults = nonNil(a.Results)
		s.Properties = []models.Property{}
		s.TotalProperties = 0
		s.IsSearchMode = true
		s.Loading = false
		s.Error = ""

	case LoadAllPropertiesFailure, SearchPropertiesFailure, FilterPropertiesFailure:
		s.Loading = false
		s.Error = a.(Failed).FailureMessage()

	case LoadPropertyDetail:
		s.LoadingDetail = true
		s.Error = ""
	case LoadPropertyDetailSuccess:
		p := a.Property
		s.SelectedProperty = &p
		s.LoadingDetail = false
		s.Error = ""
	case LoadPropertyDetailFailure:
		s.LoadingDetail = false
		s.Error = a.Error

	case LoadPropertyBlockedDates:
		s.BlockedDates = []string{}
	case LoadPropertyBlockedDatesSuccess:
		s.BlockedDates = nonNil(a.Dates)
	case LoadPropertyReviews:
		s.Reviews = []models.Review{}
		s.ReviewStats = nil
	case LoadPropertyReviewsSuccess:
		s.Reviews = nonNil(a.Reviews)
		s.ReviewStats = a.Stats
	case LoadPropertyBlockedDatesFailure, LoadPropertyReviewsFailure:
		s.Error = a.(Failed).FailureMessage()

	case UpdateFilters:
		s.Filters = s.Filters.Merge(a.Filters)
	case ClearFilters:
		s.Filters = models.DefaultFilters()
	case ClearListingsError:
		s.Error = ""
	}
	return s
}

// QueryAction picks the listings action for f: dates select the quote
// search, no constraint at all loads the catalog page, anything else filters.
func QueryAction(f models.PropertyFilters, page, size int) Action {
	switch {
	case f.HasDates():
		return SearchProperties{Filters: f}
	case !f.HasConstraints():
		if size <= 0 {
			size = models.DefaultPageSize
		}
		return LoadAllProperties{Page: page, Size: size}
	default:
		return FilterProperties{Filters: f}
	}
}

func SelectActiveListingCount(s State) int {
	if s.Listings.IsSearchMode {
		return len(s.Listings.SearchResults)
	}
	return len(s.Listings.Properties)
}

func SelectSelectedProperty(s State) *models.Property { return s.Listings.SelectedProperty }

func SelectFilters(s State) models.PropertyFilters { return s.Listings.Filters }
