package tester

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// UserAgent is sent with every request
const UserAgent = "Mozilla/5.0"

// ErrMalformedHeader marks a raw header that is not of the form "Key: Value"
var ErrMalformedHeader = errors.New("malformed header")

// fixedHeaders are applied after the user headers and always win
var fixedHeaders = [...][2]string{
	{"Content-Type", "application/json"},
	{"Accept", "application/json"},
	{"User-Agent", UserAgent},
}

// BuildHeaders turns raw "Key: Value" strings into a header map and adds the fixed
// headers. Malformed entries are skipped and reported in the returned error; the map
// is usable either way.
func BuildHeaders(raw []string) (map[string]string, error) {
	var result *multierror.Error
	headers := make(map[string]string, len(raw)+len(fixedHeaders))

	for _, header := range raw {
		key, value, found := strings.Cut(header, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			result = multierror.Append(result, fmt.Errorf("%w %q: expected \"Key: Value\"", ErrMalformedHeader, header))
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}

	for _, fixed := range fixedHeaders {
		for key := range headers {
			if strings.EqualFold(key, fixed[0]) {
				delete(headers, key)
			}
		}
		headers[fixed[0]] = fixed[1]
	}

	return headers, result.ErrorOrNil()
}
