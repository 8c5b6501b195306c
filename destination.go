package statusreporter

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jpalmerr/statusreporter/internal/poller"
)

// DefaultEndpoint is the base URL of the hosted status-aggregation service.
const DefaultEndpoint = "https://report.crisp.watch/v1"

// ReportURL builds the URL a reporter posts to.
//
// The service and node IDs are path-escaped, so IDs containing "/" or spaces
// stay within their own path segment. The result always ends with a slash:
//
//	ReportURL("https://report.crisp.watch/v1", "svc", "node 1")
//	// https://report.crisp.watch/v1/report/svc/node%201/
//
// Returns a [*ConfigError] if the endpoint is not an absolute http(s) URL.
func ReportURL(endpoint, serviceID, nodeID string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", configError("endpoint", "is not a valid URL: "+err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", configError("endpoint", "must use http:// or https://")
	}
	if parsed.Host == "" {
		return "", configError("endpoint", "must include a host")
	}

	return strings.TrimRight(endpoint, "/") +
		"/report/" + url.PathEscape(serviceID) +
		"/" + url.PathEscape(nodeID) + "/", nil
}

// requestTemplate computes the static parts of every report request.
func requestTemplate(cfg *reporterConfig) (poller.RequestTemplate, error) {
	target, err := ReportURL(cfg.endpoint, cfg.serviceID, cfg.nodeID)
	if err != nil {
		return poller.RequestTemplate{}, err
	}

	header := make(http.Header, len(cfg.headers)+2)
	for key, values := range cfg.headers {
		header[key] = append([]string(nil), values...)
	}
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("User-Agent", cfg.userAgent)

	return poller.RequestTemplate{
		URL:    target,
		Header: header,
		Token:  cfg.token,
	}, nil
}
