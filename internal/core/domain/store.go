package domain

import "time"

// Store is a rated business. AverageRating and TotalRatings are derived from
// the store's ratings and only ever written by the aggregation path.
type Store struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	OwnerID       *int64    `json:"owner_id"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int64     `json:"total_ratings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID is the store's owner.
func (s *Store) OwnedBy(userID int64) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// ApplyAggregate overwrites the derived rating fields.
func (s *Store) ApplyAggregate(a Aggregate) {
	s.AverageRating = a.Average
	s.TotalRatings = a.Total
}
