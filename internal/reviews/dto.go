package reviews

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitInput is a customer's rating and text for one product.
type SubmitInput struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Title  *string `json:"title,omitempty"`
	Body   string  `json:"body" validate:"required"`
}

type ReviewDTO struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	Rating           int       `json:"rating"`
	Title            *string   `json:"title,omitempty"`
	Body             string    `json:"body"`
	ReviewerName     string    `json:"reviewer_name"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SummaryDTO aggregates published reviews. Average is rounded to one decimal.
type SummaryDTO struct {
	Count        int64           `json:"count"`
	Average      decimal.Decimal `json:"average"`
	Distribution map[int]int64   `json:"distribution"`
}

type ProductReviewsDTO struct {
	Summary    SummaryDTO  `json:"summary"`
	Items      []ReviewDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func newReviewDTO(row reviewRow) ReviewDTO {
	return ReviewDTO{
		ID:               row.ID,
		ProductID:        row.ProductID,
		Rating:           row.Rating,
		Title:            row.Title,
		Body:             row.Body,
		ReviewerName:     reviewerName(row.FirstName, row.LastName),
		VerifiedPurchase: row.VerifiedPurchase,
		IsPublished:      row.IsPublished,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

// reviewerName shows a first name and last initial, "Asha R.".
func reviewerName(first, last string) string {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return "Customer"
	}
	if r, _ := utf8.DecodeRuneInString(last); r != utf8.RuneError {
		return first + " " + string(r) + "."
	}
	return first
}

func buildSummary(counts []ratingCount) SummaryDTO {
	summary := SummaryDTO{Average: decimal.Zero, Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var points int64
	for _, c := range counts {
		summary.Distribution[c.Rating] += c.Count
		summary.Count += c.Count
		points += int64(c.Rating) * c.Count
	}
	if summary.Count > 0 {
		summary.Average = decimal.NewFromInt(points).Div(decimal.NewFromInt(summary.Count)).Round(1)
	}
	return summary
}
