// Package upstream fetches the AlertaBlu situation feed and normalizes
// transport failures into the stable error taxonomy served by the API.
package upstream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/blumetech/alertablu-dash/internal/config"
	"github.com/blumetech/alertablu-dash/internal/models"
)

// Client fetches the situation feed. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	url        string
	userAgent  string
	httpClient *http.Client
}

// NewClient builds a feed client from config. When InsecureTLS is set,
// certificate verification is skipped, but the relaxation stays confined to
// the configured upstream host: the client refuses to follow redirects to
// any other host.
func NewClient(cfg config.UpstreamConfig) *Client {
	c := &Client{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	if cfg.InsecureTLS {
		host := hostOf(cfg.URL)
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // scoped to the known upstream host via CheckRedirect
		}
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if req.URL.Host != host {
				return fmt.Errorf("refusing cross-host redirect to %s", req.URL.Host)
			}
			return nil
		}
	}

	return c
}

// Fetch downloads and decodes the current feed. All failures come back as
// *Error; the returned snapshot retains the raw body for pass-through.
func (c *Client) Fetch(ctx context.Context) (*models.FeedSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &Error{Kind: KindInternal, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var snapshot models.FeedSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &Error{Kind: KindInvalidPayload, Err: err}
	}
	if snapshot.Records == nil {
		return nil, &Error{Kind: KindInvalidPayload, Err: errors.New("payload is missing the dados list")}
	}

	snapshot.Raw = body
	return &snapshot, nil
}

func classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: KindConnectionFailed, Err: err}
	}
	return &Error{Kind: KindInternal, Err: err}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
