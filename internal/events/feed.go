package events

import (
	"context"
	"sync"
	"time"
)

// StatusEvent announces a payment status change.
type StatusEvent struct {
	PaymentID string    `json:"payment_id"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// Feed fans payment status events out to subscribers of that payment
// (SSE clients polling a checkout).
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan StatusEvent
	next int
}

// New returns an empty feed.
func New() *Feed {
	return &Feed{subs: make(map[string]map[int]chan StatusEvent)}
}

// Subscribe registers interest in one payment. The channel is closed when ctx ends.
func (f *Feed) Subscribe(ctx context.Context, paymentID string) <-chan StatusEvent {
	ch := make(chan StatusEvent, 8)

	f.mu.Lock()
	id := f.next
	f.next++
	if f.subs[paymentID] == nil {
		f.subs[paymentID] = make(map[int]chan StatusEvent)
	}
	f.subs[paymentID][id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[paymentID], id)
		if len(f.subs[paymentID]) == 0 {
			delete(f.subs, paymentID)
		}
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to every subscriber of evt.PaymentID.
func (f *Feed) Publish(evt StatusEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs[evt.PaymentID] {
		select {
		case ch <- evt:
		default:
			// Slow subscriber; it can re-read the payment.
		}
	}
}

// Subscribers reports how many listeners a payment has.
func (f *Feed) Subscribers(paymentID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[paymentID])
}
