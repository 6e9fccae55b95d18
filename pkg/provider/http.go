package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/ratelimit"
)

// maxResponseBytes bounds how much of a provider response we read.
const maxResponseBytes = 1 << 20

// getJSON performs a rate-limited GET against a provider endpoint and
// decodes the JSON body into target. Failures come back classified:
// transport errors and 429/5xx as transient, 404 as not found, other
// 4xx and undecodable bodies as permanent.
func getJSON(ctx context.Context, p ID, client *http.Client, limiter *ratelimit.Limiter, url string, target any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		providerRequestDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Permanent(p, "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		observeRequest(p, "network_error")
		providerErrorsTotal.WithLabelValues(string(p), string(ClassTransient)).Inc()
		return classifyNetErr(p, err)
	}
	defer resp.Body.Close()

	observeRequest(p, fmt.Sprintf("%d", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		class := ClassifyStatus(resp.StatusCode)
		providerErrorsTotal.WithLabelValues(string(p), string(class)).Inc()
		return &FetchError{
			Provider:   p,
			Class:      class,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		providerErrorsTotal.WithLabelValues(string(p), string(ClassPermanent)).Inc()
		return Permanent(p, "decode response body", err)
	}

	return nil
}
