package tester

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/moamenhredeen/apihacker/internal/config"
)

// NewClient creates the HTTP client shared by the probe and every worker
func NewClient(cfg config.RunConfig) (*http.Client, error) {
	proxy := http.ProxyFromEnvironment
	proxyURL, err := cfg.ProxyURL()
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		proxy = http.ProxyURL(proxyURL)
	}

	transport := &http.Transport{
		Proxy:               proxy,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: max(cfg.Threads, 1),
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	if !cfg.TLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}, nil
}
