package model

import (
	"math"
	"time"
)

// CreditScore is the singleton snapshot derived from aggregate sale data.
// It is recomputed synchronously after every sale.
type CreditScore struct {
	ID               int64     `json:"id"`
	ShopID           string    `json:"shop_id"`
	Score            int       `json:"score"`
	TotalSales       float64   `json:"total_sales"`
	TransactionCount int       `json:"transaction_count"`
	AvgTransaction   float64   `json:"avg_transaction"`
	DigitalAdoption  float64   `json:"digital_adoption"`
	ActiveDays       int       `json:"active_days"`
	UpdatedAt        time.Time `json:"updated_at"`
	Synced           bool      `json:"synced"`
}

// LoanOffer is the mock loan eligibility gated by the score.
type LoanOffer struct {
	Amount       int    `json:"amount"`
	InterestRate string `json:"interest_rate"`
}

// ComputeScore derives the 0-100 credit score from sale aggregates:
// min(100, floor(totalSales/10 + avgTransaction/2 + transactionCount*5)).
func ComputeScore(totalSales float64, transactionCount int) int {
	avg := 0.0
	if transactionCount > 0 {
		avg = totalSales / float64(transactionCount)
	}
	score := int(math.Floor(totalSales/10 + avg/2 + float64(transactionCount)*5))
	if score > 100 {
		score = 100
	}
	return score
}

// Rating maps a score to its band.
func Rating(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

// LoanEligibility is a step function of the score.
func LoanEligibility(score int) LoanOffer {
	switch {
	case score >= 80:
		return LoanOffer{Amount: 5000, InterestRate: "12%"}
	case score >= 60:
		return LoanOffer{Amount: 3000, InterestRate: "15%"}
	case score >= 40:
		return LoanOffer{Amount: 1500, InterestRate: "18%"}
	default:
		return LoanOffer{Amount: 500, InterestRate: "22%"}
	}
}
