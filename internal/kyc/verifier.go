package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Verifier is the external eligibility check consulted once at registration.
// Callers treat a transport failure as "eligible" (fail-open) rather than
// blocking onboarding when the provider is down.
type Verifier interface {
	VerifyEligibility(ctx context.Context, email string) (bool, error)
}

// Client calls an HTTP eligibility provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds an eligibility client with a bounded request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type eligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

// VerifyEligibility asks the provider whether the email may be onboarded.
// Network and provider failures are returned as errors so callers can apply
// their fail-open policy explicitly.
func (c *Client) VerifyEligibility(ctx context.Context, email string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/eligibility?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build eligibility request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("eligibility check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("eligibility provider returned %d", resp.StatusCode)
	}

	var body eligibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode eligibility response: %w", err)
	}
	return body.Eligible, nil
}

// Static always answers with a fixed decision. Used in dev mode and tests.
type Static struct {
	Eligible bool
}

func (s Static) VerifyEligibility(context.Context, string) (bool, error) {
	return s.Eligible, nil
}
