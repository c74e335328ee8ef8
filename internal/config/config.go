package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Keys shared by the command flags, the environment and the optional config file
const (
	KeyDelay       = "delay"
	KeyThreads     = "threads"
	KeyProxy       = "proxy"
	KeyTimeout     = "timeout"
	KeyBaseURL     = "base_url"
	KeyOpenAPIFile = "openapi_file"
	KeyHeader      = "header"
	KeyVerify      = "verify"
	KeyNoVerify    = "no-verify"
	KeyOutput      = "output"
	KeyVerbose     = "verbose"
)

// LongDelay is the pacing delay above which a warning is printed
const LongDelay = 60 * time.Second

var (
	// ErrInvalidProxy is returned when the proxy lacks a scheme or a host
	ErrInvalidProxy = errors.New("invalid proxy")
	// ErrMissingBaseURL is returned when neither --base_url nor a server entry is available
	ErrMissingBaseURL = errors.New("no base URL provided and no 'servers' field in OpenAPI file")
)

// RunConfig holds everything a run needs. It is built once and only read afterwards.
type RunConfig struct {
	Delay       time.Duration // pause between two submissions
	Threads     int           // worker pool size
	Proxy       string        // proxy URL for both http and https, "" for none
	Timeout     time.Duration // per-request timeout
	BaseURL     string
	OpenAPIFile string
	Headers     []string // raw "Key: Value" strings
	TLSVerify   bool
	Output      string // summary format: text, json, csv or none
	Verbose     bool
}

// Default returns the configuration used when nothing is specified
func Default() RunConfig {
	return RunConfig{
		Delay:     0,
		Threads:   1,
		Timeout:   5 * time.Second,
		TLSVerify: true,
		Output:    "text",
	}
}

// SetDefaults registers the defaults on a viper instance
func SetDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault(KeyDelay, int(def.Delay/time.Second))
	v.SetDefault(KeyThreads, def.Threads)
	v.SetDefault(KeyTimeout, int(def.Timeout/time.Second))
	v.SetDefault(KeyVerify, def.TLSVerify)
	v.SetDefault(KeyNoVerify, false)
	v.SetDefault(KeyOutput, def.Output)
}

// FromViper builds a RunConfig from flags, environment and config file values.
// Delay and timeout are whole seconds.
func FromViper(v *viper.Viper) RunConfig {
	return RunConfig{
		Delay:       time.Duration(v.GetInt(KeyDelay)) * time.Second,
		Threads:     v.GetInt(KeyThreads),
		Proxy:       v.GetString(KeyProxy),
		Timeout:     time.Duration(v.GetInt(KeyTimeout)) * time.Second,
		BaseURL:     v.GetString(KeyBaseURL),
		OpenAPIFile: v.GetString(KeyOpenAPIFile),
		Headers:     stringList(v.Get(KeyHeader)),
		TLSVerify:   v.GetBool(KeyVerify) && !v.GetBool(KeyNoVerify),
		Output:      v.GetString(KeyOutput),
		Verbose:     v.GetBool(KeyVerbose),
	}
}

// stringList reads a header list without splitting on spaces or commas: a single
// string, e.g. from the environment, is one header
func stringList(value interface{}) []string {
	switch val := value.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []interface{}:
		list := make([]string, 0, len(val))
		for _, item := range val {
			list = append(list, fmt.Sprint(item))
		}
		return list
	default:
		return []string{fmt.Sprint(val)}
	}
}

// ValidateProxy checks that a proxy URL has both a scheme and a host
func ValidateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidProxy, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w %q: scheme and host are required", ErrInvalidProxy, raw)
	}
	return nil
}

// ProxyURL returns the parsed proxy, or nil when none is configured
func (c RunConfig) ProxyURL() (*url.URL, error) {
	if c.Proxy == "" {
		return nil, nil
	}
	if err := ValidateProxy(c.Proxy); err != nil {
		return nil, err
	}
	return url.Parse(c.Proxy)
}

// Validate reports every configuration problem that prevents a run
func (c RunConfig) Validate() error {
	var result *multierror.Error

	if c.Proxy != "" {
		if err := ValidateProxy(c.Proxy); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.BaseURL == "" {
		result = multierror.Append(result, ErrMissingBaseURL)
	}
	if c.Threads < 1 {
		result = multierror.Append(result, fmt.Errorf("threads must be at least 1, got %d", c.Threads))
	}
	if c.Delay < 0 {
		result = multierror.Append(result, fmt.Errorf("delay must not be negative, got %v", c.Delay))
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must not be negative, got %v", c.Timeout))
	}
	switch c.Output {
	case "", "text", "json", "csv", "none":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid output format %q: must be text, json, csv or none", c.Output))
	}

	return result.ErrorOrNil()
}

// Warnings lists settings that are honoured but worth pointing out
func (c RunConfig) Warnings() []string {
	var warnings []string
	if !c.TLSVerify {
		warnings = append(warnings, "SSL verification is disabled.")
	}
	if c.Delay > LongDelay {
		warnings = append(warnings, "Delay between each request is more than 60 seconds.")
	}
	return warnings
}
