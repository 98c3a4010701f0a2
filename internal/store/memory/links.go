package memory

import (
	"context"
	"time"

	"byund.io/internal/merchant"
	"byund.io/internal/paylink"
)

func (s *Store) CreateLink(_ context.Context, l *paylink.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.linkByPublic[l.PublicID]; ok {
		return paylink.ErrDuplicate
	}
	s.links[l.ID] = cloneLink(*l)
	s.linkByPublic[l.PublicID] = l.ID
	return nil
}

func (s *Store) PublicIDExists(_ context.Context, publicID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.linkByPublic[publicID]
	return ok, nil
}

func (s *Store) FindLinkByPublicID(_ context.Context, publicID string) (paylink.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.linkByPublic[publicID]
	if !ok {
		return paylink.Link{}, paylink.ErrNotFound
	}
	return cloneLink(s.links[id]), nil
}

func (s *Store) ListLinks(_ context.Context, merchantID string, env merchant.Environment) ([]paylink.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []paylink.Link{}
	for _, l := range s.links {
		if l.MerchantID == merchantID && l.Environment == env {
			out = append(out, cloneLink(l))
		}
	}
	return out, nil
}

func (s *Store) SetLinkActive(_ context.Context, merchantID, publicID string, env merchant.Environment, active bool, at time.Time) (paylink.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.linkByPublic[publicID]
	if !ok {
		return paylink.Link{}, paylink.ErrNotFound
	}
	l := s.links[id]
	if l.MerchantID != merchantID || l.Environment != env {
		return paylink.Link{}, paylink.ErrNotFound
	}
	l.IsActive = active
	l.UpdatedAt = at
	s.links[id] = l
	return cloneLink(l), nil
}

func (s *Store) CreatePayment(_ context.Context, p *paylink.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[p.LinkID]; !ok {
		return paylink.ErrNotFound
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) FindPayment(_ context.Context, id string) (paylink.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return paylink.Payment{}, paylink.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, id string, fn func(*paylink.Payment) error) (paylink.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return paylink.Payment{}, paylink.ErrNotFound
	}
	if err := fn(&p); err != nil {
		return paylink.Payment{}, err
	}
	s.payments[id] = p
	return p, nil
}

func cloneLink(l paylink.Link) paylink.Link {
	if l.FixedAmountCents != nil {
		v := *l.FixedAmountCents
		l.FixedAmountCents = &v
	}
	return l
}
