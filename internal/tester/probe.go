package tester

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Probe is the preflight liveness check run before any operation is submitted
type Probe struct {
	client     *http.Client
	rawHeaders []string
	logger     *zap.Logger
}

// NewProbe creates a liveness probe using the shared client
func NewProbe(client *http.Client, rawHeaders []string, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{
		client:     client,
		rawHeaders: rawHeaders,
		logger:     logger,
	}
}

// IsUp sends a single GET to baseURL and reports whether it answered exactly 200.
// Transport failures are logged with their root cause and reported as false.
func (p *Probe) IsUp(ctx context.Context, baseURL string) bool {
	headers, _ := BuildHeaders(p.rawHeaders)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		p.logger.Error("Exception while checking if server is up", zap.String("url", baseURL), zap.Error(err))
		return false
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("Exception while checking if server is up",
			zap.String("url", baseURL),
			zap.Error(err),
			zap.NamedError("cause", rootCause(err)))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Liveness probe did not answer 200",
			zap.String("url", baseURL),
			zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// rootCause unwraps err down to the innermost error, e.g. the dial error under a
// *url.Error
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
