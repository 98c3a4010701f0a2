package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type client struct {
	base string
	http *http.Client
}

func (c *client) call(ctx context.Context, method, path string, body any, headers map[string]string, want int) map[string]any {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			logrus.Fatalf("%s %s: marshal: %v", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		logrus.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.base)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logrus.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != want {
		logrus.Fatalf("%s %s: want %d, got %d: %v", method, path, want, resp.StatusCode, out)
	}
	return out
}

func main() {
	base := strings.TrimRight(os.Getenv("BYUND_SMOKE_BASE_URL"), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		logrus.Fatalf("cookie jar: %v", err)
	}
	c := &client{base: base, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	email := fmt.Sprintf("smoke+%s@byund.test", uuid.NewString()[:8])
	c.call(ctx, http.MethodPost, "/v1/auth/register", map[string]any{"email": email, "password": "smoke-test-password"}, nil, http.StatusCreated)
	c.call(ctx, http.MethodPut, "/v1/onboarding/profile", map[string]any{"public_name": "Smoke Test"}, nil, http.StatusOK)
	c.call(ctx, http.MethodPut, "/v1/onboarding/wallet", map[string]any{"address": "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}, nil, http.StatusOK)
	c.call(ctx, http.MethodPost, "/v1/onboarding/complete", nil, nil, http.StatusOK)

	link := c.call(ctx, http.MethodPost, "/v1/payment-links", map[string]any{
		"name": "Smoke", "mode": "FIXED", "amount": "4.20",
	}, nil, http.StatusCreated)
	publicID, _ := link["public_id"].(string)
	if publicID == "" {
		logrus.Fatalf("link without public_id: %v", link)
	}

	created := c.call(ctx, http.MethodPost, "/v1/public/links/"+publicID+"/payments",
		map[string]any{"amount_usd_cents": 420}, nil, http.StatusCreated)
	payment, _ := created["payment"].(map[string]any)
	paymentID, _ := payment["id"].(string)
	if paymentID == "" {
		logrus.Fatalf("payment without id: %v", created)
	}
	if micros, _ := payment["amount_usdc_micros"].(float64); micros != 4_200_000 {
		logrus.Fatalf("unexpected usdc micros: %v", payment["amount_usdc_micros"])
	}

	status := c.call(ctx, http.MethodGet, "/v1/public/payments/"+paymentID, nil, nil, http.StatusOK)
	if status["status"] != "CREATED" {
		logrus.Fatalf("unexpected status: %v", status["status"])
	}

	key := c.call(ctx, http.MethodPost, "/v1/api-keys", map[string]any{"type": "SECRET", "name": "smoke"}, nil, http.StatusCreated)
	secret, _ := key["plaintext"].(string)
	viaKey := c.call(ctx, http.MethodGet, "/v1/api/payments/"+paymentID, nil,
		map[string]string{"Authorization": "Bearer " + secret}, http.StatusOK)
	if viaKey["id"] != paymentID {
		logrus.Fatalf("api key lookup returned %v", viaKey["id"])
	}

	c.call(ctx, http.MethodPost, "/v1/public/payments/"+paymentID+"/cancel", nil, nil, http.StatusOK)
	c.call(ctx, http.MethodPost, "/v1/public/payments/"+paymentID+"/cancel", nil, nil, http.StatusConflict)

	logrus.WithFields(logrus.Fields{"link": publicID, "payment": paymentID}).Info("checkout smoke test passed")
}
