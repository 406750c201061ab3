// Package pagespeed runs audits through a PageSpeed Insights compatible API.
package pagespeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/user/perfwatch/internal/lighthouse"
	"github.com/user/perfwatch/internal/repository"
)

// Client implements repository.AuditRepository over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for endpoint. An empty apiKey sends no key.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Run audits pageURL with the mobile strategy and returns its lighthouse result.
func (c *Client) Run(ctx context.Context, pageURL string) ([]byte, error) {
	var (
		status int
		body   []byte
	)
	rb := requests.URL(c.endpoint).
		Client(c.httpClient).
		Param("url", pageURL).
		Param("category", "performance", "seo").
		Param("strategy", "mobile").
		// Non-2xx bodies carry the reason, so status is checked after reading.
		AddValidator(nil).
		Handle(func(res *http.Response) error {
			status = res.StatusCode
			var err error
			body, err = io.ReadAll(res.Body)
			return err
		})
	if c.apiKey != "" {
		rb.Param("key", c.apiKey)
	}

	if err := rb.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("pagespeed request for %s: %w", pageURL, err)
	}
	if status < 200 || status > 299 {
		return nil, &repository.AuditStatusError{StatusCode: status, Body: string(body)}
	}

	result, ok := lighthouse.ExtractResult(body)
	if !ok {
		return nil, repository.ErrNoAuditData
	}
	return result, nil
}
