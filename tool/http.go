package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPRequest is what the http/openapi node executors build before
// calling HTTPClient.Do.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// HTTPResponse is the normalized result handed back to the node.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// BlockedHostError is returned when a request targets a host on the SSRF
// block-list; the caller must surface this as a node error without ever
// having issued the underlying network request.
type BlockedHostError struct {
	Host string
}

func (e *BlockedHostError) Error() string {
	return fmt.Sprintf("blocked url: %s resolves to a disallowed network", e.Host)
}

// HTTPClient is a sandboxed HTTP tool: every request is checked against
// the SSRF block-list (loopback, link-local, and private RFC1918/ULA
// ranges, plus the cloud metadata address) before it is issued.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient returns a client whose per-request timeout is bounded by
// the caller's context (no separate client-level timeout).
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{client: &http.Client{}}
}

var blockedCIDRs = mustParseCIDRs(
	"127.0.0.0/8", "::1/128",
	"169.254.0.0/16", "fe80::/10",
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
	"fc00::/7",
	"169.254.169.254/32", // cloud metadata endpoint
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, n)
	}
	return out
}

func isBlockedIP(ip net.IP) bool {
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// checkHost resolves host and blocks the request if any resolved
// address falls in a disallowed range. "localhost" is blocked by name
// too, since some resolvers short-circuit it without a DNS round trip.
func checkHost(host string) error {
	if strings.EqualFold(host, "localhost") {
		return &BlockedHostError{Host: host}
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return &BlockedHostError{Host: host}
		}
		return nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil // unresolvable host fails at the Do() call, not here
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return &BlockedHostError{Host: host}
		}
	}
	return nil
}

// maxResponseBytes caps how much of a response body the tool will read,
// per the output-size-cap safety rule shared by every non-agent
// executor.
const maxResponseBytes = 1 << 20 // 1 MiB

// Do issues req after an SSRF block-list check, and normalizes the
// result. method defaults to GET.
func (c *HTTPClient) Do(ctx context.Context, req HTTPRequest) (HTTPResponse, error) {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)

	parsedHost, _, err := net.SplitHostPort(mustHostFromURL(req.URL))
	if err != nil {
		parsedHost = mustHostFromURL(req.URL)
	}
	if parsedHost != "" {
		if err := checkHost(parsedHost); err != nil {
			return HTTPResponse{}, err
		}
	}

	var body io.Reader
	if req.Body != "" {
		body = bytes.NewBufferString(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("read response body: %w", err)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	return HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    respHeaders,
		Body:       string(respBody),
	}, nil
}

func mustHostFromURL(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx == -1 {
		return ""
	}
	rest := rawURL[idx+3:]
	if slash := strings.IndexByte(rest, '/'); slash != -1 {
		rest = rest[:slash]
	}
	if at := strings.IndexByte(rest, '@'); at != -1 {
		rest = rest[at+1:]
	}
	return rest
}

// deadlineFromTimeout is a small helper node executors use to bound a
// single HTTP call independent of the caller's ambient context deadline.
func deadlineFromTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
