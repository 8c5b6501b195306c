package poller

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
)

// connection pooling limits; a reporter talks to a single host
const (
	defaultMaxIdleConns        = 4
	defaultMaxIdleConnsPerHost = 2
	defaultMaxConnsPerHost     = 2
	defaultIdleConnTimeout     = 90 * time.Second
)

// Doer sends an HTTP request and returns its response.
//
// [*http.Client] and [*Client] both satisfy Doer. A Doer must return either a
// non-nil response or a non-nil error; a (nil, nil) return is treated as a
// connection that closed without a status line.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP client used to deliver reports.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so the [Dispatcher] can tell a transport timeout apart from its own hard
// timeout. The transport negotiates HTTP/2 when the endpoint supports it and
// is wrapped with OpenTelemetry instrumentation, which is a no-op unless a
// global tracer provider has been installed.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
}

// NewClient creates a new report [Client].
//
// Connection pooling configuration:
//   - MaxIdleConns: 4 total idle connections
//   - MaxIdleConnsPerHost: 2 idle connections per host
//   - MaxConnsPerHost: 2 concurrent connections per host
//   - IdleConnTimeout: 90 seconds before closing idle connections
func NewClient() *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// an error here only means HTTP/2 is already configured; HTTP/1.1 keeps working
	_ = http2.ConfigureTransport(transport)

	return &Client{
		httpClient: &http.Client{
			// no default timeout - the dispatcher applies one per request
			Transport: otelhttp.NewTransport(transport),
		},
		transport: transport,
	}
}

// Do sends req using the pooled transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.transport == nil {
		return
	}
	c.transport.CloseIdleConnections()
}
