package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinRating        = 1.0
	MaxRating        = 5.0
	MinCommentLength = 5
)

// Review is one user's rating of one product.
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	ProductID uuid.UUID `json:"product_id"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// AverageRating is the arithmetic mean rounded to one decimal, 0 for no ratings.
func AverageRating(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromFloat(r))
	}
	return sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1).InexactFloat64()
}
