package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// OriginError rejects a cookie-authenticated write from a foreign page.
type OriginError struct {
	Origin string
}

func (e *OriginError) Error() string {
	if e.Origin == "" {
		return "auth: request origin missing"
	}
	return fmt.Sprintf("auth: origin %q not allowed", e.Origin)
}

// Unwrap maps origin failures to ErrForbidden.
func (e *OriginError) Unwrap() error { return ErrForbidden }

// VerifyOrigin checks Origin (falling back to Referer) on unsafe methods.
// Safe methods always pass. The request host is always an allowed origin.
func VerifyOrigin(r *http.Request, allowed []string) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		ref := r.Header.Get("Referer")
		if ref == "" {
			return &OriginError{}
		}
		u, err := url.Parse(ref)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &OriginError{Origin: ref}
		}
		origin = u.Scheme + "://" + u.Host
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return &OriginError{Origin: origin}
	}
	if strings.EqualFold(u.Host, r.Host) {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimRight(a, "/"), origin) {
			return nil
		}
	}
	return &OriginError{Origin: origin}
}
