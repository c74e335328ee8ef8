package models

import "strings"

// Parameter is the part of an OpenAPI parameter the request synthesis cares about
type Parameter struct {
	Name string
	In   string
}

// Operation represents one (path, method) pair declared in an OpenAPI document
type Operation struct {
	Path        string
	Method      string // as declared in the document, e.g. "get"
	OperationID string
	Parameters  []Parameter
}

// HTTPMethod returns the upper-case method name used on the wire
func (o Operation) HTTPMethod() string {
	return strings.ToUpper(o.Method)
}

// PathItem groups the operations declared under a single path template
type PathItem struct {
	Path       string
	Operations []Operation
}

// Specification is the loaded API surface. Paths and the operations under each path
// keep the order they were stored in within the document.
type Specification struct {
	Paths      []PathItem
	ServerURLs []string

	// Warnings collects non-fatal problems found while loading the document
	Warnings []string
}

// TotalOperations counts every operation across all paths
func (s *Specification) TotalOperations() int {
	total := 0
	for _, item := range s.Paths {
		total += len(item.Operations)
	}
	return total
}

// Operations flattens the specification into paths-then-methods order
func (s *Specification) Operations() []Operation {
	ops := make([]Operation, 0, s.TotalOperations())
	for _, item := range s.Paths {
		ops = append(ops, item.Operations...)
	}
	return ops
}

// DefaultServerURL returns the url of the first declared server, or "" if there is none
func (s *Specification) DefaultServerURL() string {
	if len(s.ServerURLs) == 0 {
		return ""
	}
	return s.ServerURLs[0]
}
