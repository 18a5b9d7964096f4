// Package dart is a client for the OpenDART (Korean FSS electronic
// disclosure) REST API.
package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bobmcallan/dart-portal/internal/statements"
)

// DefaultBaseURL is the public OpenDART endpoint.
const DefaultBaseURL = "https://opendart.fss.or.kr"

const (
	singleAccountPath = "/api/fnlttSinglAcnt.json"
	corpCodePath      = "/api/corpCode.xml"

	maxJSONBody = 10 << 20
	maxZIPBody  = 64 << 20
)

// Client talks to OpenDART with a single API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. Per-call deadlines come from the context;
// timeout is a backstop on the underlying http.Client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchSingleAccounts calls fnlttSinglAcnt.json for one company and fiscal year.
// A non-000 status is returned in the Filing, not as an error.
func (c *Client) FetchSingleAccounts(ctx context.Context, corpCode string, year int, reportCode string) (*statements.Filing, error) {
	params := url.Values{}
	params.Set("crtfc_key", c.apiKey)
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", reportCode)

	body, err := c.get(ctx, singleAccountPath, params, maxJSONBody)
	if err != nil {
		return nil, err
	}

	var filing statements.Filing
	if err := json.Unmarshal(body, &filing); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &filing, nil
}

// DownloadCorpCodes fetches the corpCode.xml ZIP archive of every registered company.
func (c *Client) DownloadCorpCodes(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("crtfc_key", c.apiKey)

	body, err := c.get(ctx, corpCodePath, params, maxZIPBody)
	if err != nil {
		return nil, err
	}
	if !isZIP(body) {
		return nil, parseErrorResult(body)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach opendart: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opendart returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
