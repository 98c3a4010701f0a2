package memory

import (
	"context"

	"byund.io/internal/merchant"
)

func (s *Store) CreateMerchant(_ context.Context, m *merchant.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.merchantByUser[m.UserID]; ok {
		return merchant.ErrAlreadyExists
	}
	if _, ok := s.merchants[m.ID]; ok {
		return merchant.ErrAlreadyExists
	}
	s.merchants[m.ID] = cloneMerchant(*m)
	s.merchantByUser[m.UserID] = m.ID
	return nil
}

func (s *Store) FindMerchant(_ context.Context, id string) (merchant.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.merchants[id]
	if !ok {
		return merchant.Merchant{}, merchant.ErrNotFound
	}
	return cloneMerchant(m), nil
}

func (s *Store) FindMerchantByUser(ctx context.Context, userID string) (merchant.Merchant, error) {
	s.mu.RLock()
	id, ok := s.merchantByUser[userID]
	s.mu.RUnlock()
	if !ok {
		return merchant.Merchant{}, merchant.ErrNotFound
	}
	return s.FindMerchant(ctx, id)
}

func (s *Store) UpdateMerchant(_ context.Context, id string, fn func(*merchant.Merchant) error) (merchant.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[id]
	if !ok {
		return merchant.Merchant{}, merchant.ErrNotFound
	}
	work := cloneMerchant(m)
	if err := fn(&work); err != nil {
		return merchant.Merchant{}, err
	}
	s.merchants[id] = cloneMerchant(work)
	return work, nil
}

// MerchantIDForUser implements auth.MerchantResolver.
func (s *Store) MerchantIDForUser(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merchantByUser[userID], nil
}

func cloneMerchant(m merchant.Merchant) merchant.Merchant {
	if m.OnboardingCompletedAt != nil {
		at := *m.OnboardingCompletedAt
		m.OnboardingCompletedAt = &at
	}
	return m
}
