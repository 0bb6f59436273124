package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"hreq/internal/compose"
	"hreq/internal/errdef"
	"hreq/internal/model"
)

const (
	// MaxResponseSize limits response body to 50MB to prevent memory exhaustion
	MaxResponseSize = 50 * 1024 * 1024

	// Default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// Settings holds the transport tuning knobs.
type Settings struct {
	Timeout         time.Duration
	MaxResponseSize int64
	Connect         time.Duration
	ConnKeepAlive   time.Duration
	TLSHandshake    time.Duration
	IdleConn        time.Duration
	MaxIdleConns    int
	MaxHostIdle     int
}

var DefaultSettings = Settings{
	Timeout:         DefaultTimeout,
	MaxResponseSize: MaxResponseSize,
	Connect:         10 * time.Second,
	ConnKeepAlive:   30 * time.Second,
	TLSHandshake:    10 * time.Second,
	IdleConn:        90 * time.Second,
	MaxIdleConns:    100,
	MaxHostIdle:     10,
}

// Client wraps the standard http.Client with additional functionality
type Client struct {
	client  *http.Client
	timeout time.Duration
	maxSize int64
	log     zerolog.Logger
}

// NewClient creates a new HTTP client with default settings
func NewClient(log zerolog.Logger) *Client {
	return NewClientWithSettings(DefaultSettings, nil, log)
}

// NewClientWithSettings creates a client. A nil transport builds one from
// settings with HTTP/2 enabled.
func NewClientWithSettings(settings Settings, transport http.RoundTripper, log zerolog.Logger) *Client {
	if transport == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   settings.Connect,
				KeepAlive: settings.ConnKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout: settings.TLSHandshake,
			IdleConnTimeout:     settings.IdleConn,
			MaxIdleConns:        settings.MaxIdleConns,
			MaxIdleConnsPerHost: settings.MaxHostIdle,
		}
		if err := http2.ConfigureTransport(tr); err != nil {
			log.Warn().Err(err).Msg("http2 disabled")
		}
		transport = tr
	}

	if settings.MaxResponseSize <= 0 {
		settings.MaxResponseSize = MaxResponseSize
	}

	return &Client{
		client:  &http.Client{Transport: transport},
		timeout: settings.Timeout,
		maxSize: settings.MaxResponseSize,
		log:     log,
	}
}

// WithTimeout returns a copy of the client sharing the same transport.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do executes a composed request and returns the response. Non-2xx statuses
// are not errors here; see RaiseForStatus.
func (c *Client) Do(ctx context.Context, req *compose.Request) (*model.Response, error) {
	if err := c.validateURL(req.URL); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if req.HasBody() {
		bodyReader = strings.NewReader(*req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "build request")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	c.log.Debug().
		Str("method", string(req.Method)).
		Str("url", req.URL).
		Bool("body", req.HasBody()).
		Msg("sending request")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "perform request")
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	// Read response body with size limit to prevent memory exhaustion
	limitedReader := io.LimitReader(resp.Body, c.maxSize+1)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "read response body")
	}

	truncated := false
	if int64(len(respBody)) > c.maxSize {
		respBody = respBody[:c.maxSize]
		truncated = true
		c.log.Warn().Int64("limit", c.maxSize).Msg("response body truncated")
	}

	// Convert response headers
	respHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			respHeaders[key] = values[0]
		}
	}

	effectiveURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		effectiveURL = resp.Request.URL.String()
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", duration).
		Int("size", len(respBody)).
		Msg("response received")

	return &model.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    respHeaders,
		Body:       respBody,
		Duration:   duration,
		URL:        effectiveURL,
		Truncated:  truncated,
	}, nil
}

// RaiseForStatus returns an error for any status outside 2xx.
func RaiseForStatus(resp *model.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	class := "Server"
	switch {
	case code < 200:
		class = "Informational"
	case code < 400:
		class = "Redirect"
	case code < 500:
		class = "Client"
	}
	return errdef.New(errdef.CodeHTTP, "%d %s Error: %s for url: %s",
		code, class, reasonPhrase(resp), resp.URL)
}

func reasonPhrase(resp *model.Response) string {
	// Status is "404 Not Found"; fall back to the standard text.
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// validateURL checks what the transport itself would reject and logs risky targets.
func (c *Client) validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errdef.New(errdef.CodeHTTP, "invalid URL: empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errdef.Wrap(errdef.CodeHTTP, err, "invalid URL")
	}

	// Ensure scheme is http or https
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return errdef.New(errdef.CodeHTTP,
			"unsupported URL scheme: %q (only http and https are allowed)", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errdef.New(errdef.CodeHTTP, "URL must have a hostname")
	}

	if scheme == "http" {
		c.log.Debug().Str("url", rawURL).Msg("using insecure HTTP connection")
	}

	lowerHost := strings.ToLower(hostname)
	if lowerHost == "localhost" {
		c.log.Debug().Str("host", hostname).Msg("request to loopback address")
	} else if ip := net.ParseIP(hostname); ip != nil {
		if ip.IsLoopback() {
			c.log.Debug().Str("host", hostname).Msg("request to loopback address")
		} else if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			c.log.Warn().Str("host", hostname).Msg("request to private/internal IP address")
		}
	}

	return nil
}
