package httpclient

import (
	"errors"
	"net"
	"net/http"
	"time"
)

const maxRedirects = 10

var ErrTooManyRedirects = errors.New("stopped after 10 redirects")

// NewHttpClient builds the client shared by all probes. The per-request
// deadline comes from the caller's context, the transport only bounds
// the individual phases.
func NewHttpClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   min(5*time.Second, timeout),
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   min(5*time.Second, timeout),
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,

		MaxIdleConns:        10000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}
