package domain

import (
	"time"
	"unicode/utf8"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Rating is one user's score for one store.
type Rating struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	StoreID   int64     `json:"store_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	UserName  string    `json:"user_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateRating checks the score range and comment length.
func ValidateRating(value int, comment *string) error {
	if value < MinRating || value > MaxRating {
		return ErrInvalidRating
	}
	if comment != nil && utf8.RuneCountInString(*comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// Totals is the raw count and sum of a set of ratings.
type Totals struct {
	Count int64
	Sum   int64
}

// Aggregate is the denormalized rating summary cached on a store.
type Aggregate struct {
	Average float64
	Total   int64
}

// Aggregate returns the mean rounded half-up to one decimal. The rounding is
// done in integer tenths so the result is exact for any count.
func (t Totals) Aggregate() Aggregate {
	if t.Count <= 0 {
		return Aggregate{}
	}
	tenths := (t.Sum*20 + t.Count) / (2 * t.Count)
	return Aggregate{Average: float64(tenths) / 10, Total: t.Count}
}

// ComputeAggregate summarizes a list of rating values.
func ComputeAggregate(values []int) Aggregate {
	var t Totals
	for _, v := range values {
		t.Count++
		t.Sum += int64(v)
	}
	return t.Aggregate()
}
