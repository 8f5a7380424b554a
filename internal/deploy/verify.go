package deploy

import (
	"context"
	"fmt"
	"log"
	"time"

	"resty.dev/v3"

	"github.com/fleetlab/twinstack/internal/util/retry"
)

// twinSearchPath is the digital twin API path probed by the smoke check.
const twinSearchPath = "/api/2/search/things"

// Verifier performs the post-convergence smoke check against the digital
// twin HTTP API.
type Verifier struct {
	client   *resty.Client
	baseURL  string
	Attempts int
	Interval time.Duration
}

// NewVerifier creates a verifier for the twin API at baseURL using basic
// auth credentials.
func NewVerifier(baseURL, username, password string, attempts int, interval time.Duration) *Verifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetBasicAuth(username, password)

	return &Verifier{
		client:   client,
		baseURL:  baseURL,
		Attempts: attempts,
		Interval: interval,
	}
}

// Close releases the underlying HTTP client.
func (v *Verifier) Close() error {
	return v.client.Close()
}

// Check probes the twin API until it answers successfully or the attempt
// budget is exhausted. The caller treats an error as a warning: the API may
// still be initializing asynchronously after unit-level convergence.
func (v *Verifier) Check(ctx context.Context) error {
	attempt := 0
	return retry.Do(ctx, func() error {
		attempt++
		resp, err := v.client.R().
			SetContext(ctx).
			Get(v.baseURL + twinSearchPath)
		if err != nil {
			log.Printf("[verify] attempt %d/%d: %v", attempt, v.Attempts, err)
			return fmt.Errorf("twin API not reachable: %w", err)
		}
		if resp.IsError() {
			log.Printf("[verify] attempt %d/%d: HTTP %d", attempt, v.Attempts, resp.StatusCode())
			return fmt.Errorf("twin API returned HTTP %d", resp.StatusCode())
		}
		log.Printf("[verify] twin API answered with HTTP %d", resp.StatusCode())
		return nil
	}, retry.WithMaxAttempts(v.Attempts), retry.WithInterval(v.Interval))
}
