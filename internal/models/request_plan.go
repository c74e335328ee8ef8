package models

// RequestPlan is the concrete request derived from one Operation for one run.
// It is built fresh for every submission and never mutated afterwards.
type RequestPlan struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    map[string]int // nil when no body is sent
}

// HasBody reports whether the plan carries a JSON payload
func (p RequestPlan) HasBody() bool {
	return p.Body != nil
}
