package tester

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/moamenhredeen/apihacker/internal/generator"
	"github.com/moamenhredeen/apihacker/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bodyMethods send the synthesized parameters as a JSON payload. PUT, DELETE and PATCH
// are supported but always go out without a body.
var bodyMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodPost: true,
}

// supportedMethods are the methods the executor will send
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// IsSupportedMethod reports whether requests with this method are sent at all
func IsSupportedMethod(method string) bool {
	return supportedMethods[method]
}

// RequestBuilder builds request plans and HTTP requests from operations
type RequestBuilder struct {
	generator  *generator.Generator
	rawHeaders []string
}

// NewRequestBuilder creates a new request builder
func NewRequestBuilder(gen *generator.Generator, rawHeaders []string) *RequestBuilder {
	if gen == nil {
		gen = generator.NewGenerator()
	}
	return &RequestBuilder{
		generator:  gen,
		rawHeaders: rawHeaders,
	}
}

// BuildPlan derives the concrete request for an operation. It never fails: malformed
// headers are left out and unsupported methods are left to the executor to skip.
func (rb *RequestBuilder) BuildPlan(op models.Operation, baseURL string) models.RequestPlan {
	headers, _ := BuildHeaders(rb.rawHeaders)
	method := op.HTTPMethod()

	plan := models.RequestPlan{
		Method:  method,
		URL:     rb.generator.ResolvePath(baseURL + op.Path),
		Headers: headers,
	}
	if bodyMethods[method] {
		plan.Body = rb.generator.SynthesizeBody(op.Parameters)
	}
	return plan
}

// BuildRequest turns a plan into an *http.Request bound to ctx
func (rb *RequestBuilder) BuildRequest(ctx context.Context, plan models.RequestPlan) (*http.Request, error) {
	var body io.Reader
	if plan.HasBody() {
		payload, err := json.Marshal(plan.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, plan.Method, plan.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range plan.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}
