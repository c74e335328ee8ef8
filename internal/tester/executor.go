package tester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/moamenhredeen/apihacker/internal/models"
	"go.uber.org/zap"
)

// drainLimit bounds how much of a response body is read before closing it
const drainLimit = 1 << 20

// Executor performs one HTTP call per operation. Whatever happens to the call, it
// reports an Outcome and never panics or returns an error to the caller.
type Executor struct {
	client         *http.Client
	requestBuilder *RequestBuilder
	logger         *zap.Logger
}

// NewExecutor creates a new executor
func NewExecutor(client *http.Client, requestBuilder *RequestBuilder, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client:         client,
		requestBuilder: requestBuilder,
		logger:         logger,
	}
}

// Execute builds the plan for op against baseURL and sends it
func (e *Executor) Execute(ctx context.Context, op models.Operation, baseURL string) models.Outcome {
	return e.ExecutePlan(ctx, e.requestBuilder.BuildPlan(op, baseURL))
}

// ExecutePlan sends a single request plan
func (e *Executor) ExecutePlan(ctx context.Context, plan models.RequestPlan) models.Outcome {
	outcome := models.Outcome{
		Method: plan.Method,
		URL:    plan.URL,
	}

	if !IsSupportedMethod(plan.Method) {
		outcome.Kind = models.OutcomeSkipped
		outcome.Error = fmt.Sprintf("unknown method %s for path %s", plan.Method, plan.URL)
		e.logger.Warn(fmt.Sprintf("Unknown method %s for path %s", plan.Method, plan.URL))
		return outcome
	}

	req, err := e.requestBuilder.BuildRequest(ctx, plan)
	if err != nil {
		outcome.Kind = models.OutcomeSkipped
		outcome.Error = err.Error()
		e.logger.Warn("Could not build request",
			zap.String("method", plan.Method),
			zap.String("url", plan.URL),
			zap.Error(err))
		return outcome
	}

	startTime := time.Now()
	resp, err := e.client.Do(req)
	outcome.ResponseTime = time.Since(startTime)
	if err != nil {
		outcome.Kind = models.OutcomeFailed
		outcome.Error = fmt.Sprintf("request failed: %v", err)
		e.logger.Warn("Request failed",
			zap.String("method", plan.Method),
			zap.String("url", plan.URL),
			zap.Error(err))
		return outcome
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	outcome.Kind = models.OutcomeSent
	outcome.StatusCode = resp.StatusCode
	outcome.WWWAuthenticate = resp.Header.Get("WWW-Authenticate")

	e.logger.Debug("Received",
		zap.String("method", plan.Method),
		zap.String("url", plan.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("response_time", outcome.ResponseTime))

	if outcome.Unauthorized() {
		if outcome.WWWAuthenticate != "" {
			e.logger.Warn(fmt.Sprintf("Server wants the WWW-Authenticate header: %s", outcome.WWWAuthenticate),
				zap.String("url", plan.URL))
		}
		e.logger.Warn("HTTP Error code 401, did you provide authentication? Continuing.",
			zap.String("method", plan.Method),
			zap.String("url", plan.URL))
	}

	return outcome
}
