package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoAuditData is returned when the audit succeeded but carried no lighthouse result.
var ErrNoAuditData = errors.New("audit response has no lighthouse result")

// AuditStatusError is returned when the audit service answers with a non-2xx status.
type AuditStatusError struct {
	StatusCode int
	Body       string
}

func (e *AuditStatusError) Error() string {
	return fmt.Sprintf("audit request failed with status %d: %s", e.StatusCode, e.Body)
}

// AuditRepository runs a performance audit for one URL.
type AuditRepository interface {
	// Run returns the raw lighthouse result JSON for pageURL.
	Run(ctx context.Context, pageURL string) ([]byte, error)
}
