package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/temp14-service/internal/observability"
)

// maxBodyBytes bounds upstream responses; a met.no compact forecast is well under 1 MiB.
const maxBodyBytes = 8 << 20

// getter performs provider GET requests with the identifying User-Agent header
// and decodes the JSON body. breaker is optional.
type getter struct {
	provider  string
	userAgent string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// getJSON issues a GET to rawURL and decodes the body into out.
// Failures are returned as *NetworkError, *UpstreamStatusError or *DecodeError.
func (g *getter) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	start := time.Now()
	body, err := g.get(ctx, rawURL)
	duration := time.Since(start).Seconds()
	if err != nil {
		status := "error"
		var statusErr *UpstreamStatusError
		if errors.As(err, &statusErr) {
			status = statusLabel(statusErr.Code)
		}
		observability.UpstreamCallsTotal.WithLabelValues(g.provider, status).Inc()
		observability.UpstreamDuration.WithLabelValues(g.provider, status).Observe(duration)
		observability.UpstreamErrorsTotal.WithLabelValues(g.provider, string(CategorizeError(err))).Inc()
		return err
	}
	observability.UpstreamCallsTotal.WithLabelValues(g.provider, "success").Inc()
	observability.UpstreamDuration.WithLabelValues(g.provider, "success").Observe(duration)

	if err := json.Unmarshal(body, out); err != nil {
		decodeErr := &DecodeError{Provider: g.provider, Err: err}
		observability.UpstreamErrorsTotal.WithLabelValues(g.provider, string(ErrorCategoryDecoding)).Inc()
		return decodeErr
	}
	return nil
}

func (g *getter) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", g.provider, err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := g.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamStatusError{Provider: g.provider, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Provider: g.provider, Err: fmt.Errorf("read response body: %w", err)}
	}
	return body, nil
}

// do sends req, through the breaker when one is set. Only transport failures and
// 5xx responses count against the breaker.
func (g *getter) do(req *http.Request) (*http.Response, error) {
	if g.breaker == nil {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, &NetworkError{Provider: g.provider, Err: err}
		}
		return resp, nil
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, &NetworkError{Provider: g.provider, Err: err}
		}
		if resp.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			resp.Body.Close()
			return nil, &UpstreamStatusError{Provider: g.provider, Code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &NetworkError{Provider: g.provider, Err: err}
		}
		return nil, err
	}
	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
