package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"byund.io/internal/events"
	"byund.io/internal/paylink"
)

// PaymentEvents streams status changes of one payment as Server-Sent Events.
// The current status is sent first; the stream ends at a terminal status.
func (a *API) PaymentEvents(w http.ResponseWriter, r *http.Request, paymentID string) {
	if a.feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before reading so no transition falls between the two.
	ch := a.feed.Subscribe(ctx, paymentID)
	p, err := a.links.GetPayment(ctx, paymentID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	// Streams outlive the server-wide write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if !writeEvent(w, events.StatusEvent{PaymentID: p.ID, Status: string(p.Status), At: p.UpdatedAt}) {
		return
	}
	flusher.Flush()
	if p.Status.Terminal() {
		return
	}

	heartbeat := time.NewTicker(a.opts.EventsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if !writeEvent(w, evt) {
				return
			}
			flusher.Flush()
			if paylink.Status(evt.Status).Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, evt events.StatusEvent) bool {
	payload, err := json.Marshal(evt)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("event: status\ndata: ")); err != nil {
		return false
	}
	if _, err := w.Write(payload); err != nil {
		return false
	}
	_, err = w.Write([]byte("\n\n"))
	return err == nil
}
