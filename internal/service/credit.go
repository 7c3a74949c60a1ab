package service

import (
	"context"
	"log"

	"township-pos-api/internal/model"
	"township-pos-api/internal/repository"
	"township-pos-api/pkg/apierror"
)

// CreditReport is the snapshot plus its derived rating and loan offer.
type CreditReport struct {
	model.CreditScore
	Rating string          `json:"rating"`
	Loan   model.LoanOffer `json:"loan_eligibility"`
}

// CreditService serves the derived credit snapshot. The snapshot itself
// is maintained by the store on every sale; this only reads and
// decorates it.
type CreditService struct {
	store repository.Store
}

// NewCreditService creates a credit service.
func NewCreditService(store repository.Store) *CreditService {
	return &CreditService{store: store}
}

// Report returns the current snapshot with rating and loan eligibility.
func (s *CreditService) Report(ctx context.Context) (*CreditReport, error) {
	cs, err := s.store.GetCreditScore(ctx)
	if err != nil {
		log.Printf("[CreditService] Report failed: %v", err)
		return nil, apierror.DatabaseError("")
	}

	return &CreditReport{
		CreditScore: *cs,
		Rating:      model.Rating(cs.Score),
		Loan:        model.LoanEligibility(cs.Score),
	}, nil
}
