package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"linkmarket/internal/models"
	"linkmarket/internal/payments"
	"linkmarket/internal/store"
	"linkmarket/internal/util"
)

// SellerService handles seller onboarding against the payment processor's
// connected-account flow.
type SellerService struct {
	store    *store.Store
	payments *payments.Client
	baseURL  string
	logger   *zap.Logger
}

// NewSellerService creates a new seller service
func NewSellerService(store *store.Store, payments *payments.Client, baseURL string) *SellerService {
	return &SellerService{
		store:    store,
		payments: payments,
		baseURL:  baseURL,
		logger:   util.GetLogger(),
	}
}

// OnboardResult carries the new seller plus the processor-hosted onboarding URL
type OnboardResult struct {
	Seller        *models.Seller `json:"seller"`
	OnboardingURL string         `json:"onboarding_url"`
}

// Onboard creates a seller, a connected account at the processor, and an
// onboarding link the seller must visit to start receiving payouts.
func (s *SellerService) Onboard(ctx context.Context, email string) (*OnboardResult, error) {
	ctx, span := util.StartSpan(ctx, "SellerService.Onboard")
	defer span.End()

	if email == "" {
		return nil, &models.ValidationError{Field: "email", Reason: "missing"}
	}

	seller := &models.Seller{Email: email}
	if err := s.store.CreateSeller(ctx, seller); err != nil {
		return nil, fmt.Errorf("failed to create seller: %w", err)
	}

	account, err := s.payments.CreateAccount(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor account: %w", err)
	}
	if err := s.store.UpdateSellerOnboarding(ctx, seller.ID, account.ID, false); err != nil {
		return nil, fmt.Errorf("failed to store processor account: %w", err)
	}
	seller.ProcessorAccountID = account.ID

	returnURL := fmt.Sprintf("%s/sellers/%d/onboarded", s.baseURL, seller.ID)
	link, err := s.payments.CreateAccountLink(ctx, account.ID, returnURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create onboarding link: %w", err)
	}

	s.logger.Info("Seller onboarding started",
		zap.Int64("seller_id", seller.ID),
		zap.String("account_id", account.ID))

	return &OnboardResult{Seller: seller, OnboardingURL: link.URL}, nil
}

// GetSeller retrieves a seller by ID
func (s *SellerService) GetSeller(ctx context.Context, id int64) (*models.Seller, error) {
	return s.store.GetSellerByID(ctx, id)
}

// MarkOnboarded records that the processor confirmed the account can accept
// charges.
func (s *SellerService) MarkOnboarded(ctx context.Context, sellerID int64) error {
	seller, err := s.store.GetSellerByID(ctx, sellerID)
	if err != nil {
		return err
	}
	return s.store.UpdateSellerOnboarding(ctx, seller.ID, seller.ProcessorAccountID, true)
}
