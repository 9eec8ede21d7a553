package models

// Review is a guest review of a property.
type Review struct {
	ID            int64          `json:"id"`
	PropertyID    int64          `json:"propertyId"`
	UserID        int64          `json:"userId"`
	ReservationID int64          `json:"reservationId,omitempty"`
	Rating        int            `json:"rating"`
	Comment       string         `json:"comment,omitempty"`
	CreatedAt     *LocalDateTime `json:"createdAt,omitempty"`
}

type ReviewRequest struct {
	PropertyID    int64  `json:"propertyId" validate:"required,gt=0"`
	UserID        int64  `json:"userId" validate:"required,gt=0"`
	ReservationID int64  `json:"reservationId,omitempty"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment,omitempty" validate:"max=2000"`
}

type ReviewUpdateRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

// PropertyReviewStats aggregates the reviews of one property.
type PropertyReviewStats struct {
	PropertyID    int64         `json:"propertyId"`
	AverageRating float64       `json:"averageRating"`
	TotalReviews  int           `json:"totalReviews"`
	Distribution  map[int]int64 `json:"ratingDistribution,omitempty"`
}
