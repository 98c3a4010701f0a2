package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedDeliversOnlyToMatchingPayment(t *testing.T) {
	f := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := f.Subscribe(ctx, "pay_a")
	b := f.Subscribe(ctx, "pay_b")

	f.Publish(StatusEvent{PaymentID: "pay_a", Status: "SUBMITTED", At: time.Now()})

	select {
	case evt := <-a:
		assert.Equal(t, "SUBMITTED", evt.Status)
	case <-time.After(time.Second):
		t.Fatal("expected event for pay_a")
	}
	select {
	case evt := <-b:
		t.Fatalf("unexpected event for pay_b: %+v", evt)
	default:
	}
}

func TestFeedClosesOnCancel(t *testing.T) {
	f := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Subscribe(ctx, "pay_a")
	require.Equal(t, 1, f.Subscribers("pay_a"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return f.Subscribers("pay_a") == 0 }, time.Second, 10*time.Millisecond)
}

func TestFeedPublishDoesNotBlock(t *testing.T) {
	f := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = f.Subscribe(ctx, "pay_a")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			f.Publish(StatusEvent{PaymentID: "pay_a", Status: "SUBMITTED"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
