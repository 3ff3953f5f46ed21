// Package ratiosync fetches ratio_config payloads from upstream instances
// and reports where they disagree with the local ratios.
package ratiosync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	"github.com/thalib/uiconf/cmd/uiconf/internal/logging"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratio"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Test result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var ErrInvalidUpstream = errors.New("invalid upstream")

// Upstream is a remote instance serving a ratio_config payload.
type Upstream struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Validate fills in the default endpoint and checks the URL parts.
func (u *Upstream) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUpstream)
	}
	parsed, err := url.Parse(u.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %s: base_url must be an absolute http(s) URL", ErrInvalidUpstream, u.Name)
	}
	if u.Endpoint == "" {
		u.Endpoint = constants.DefaultEndpoint
	}
	if !strings.HasPrefix(u.Endpoint, "/") {
		return fmt.Errorf("%w: %s: endpoint must start with '/'", ErrInvalidUpstream, u.Name)
	}
	return nil
}

// URL returns the full ratio_config URL.
func (u Upstream) URL() string {
	return strings.TrimSuffix(u.BaseURL, "/") + u.Endpoint
}

// ParseUpstream parses "name=baseURL" or "name=baseURL=endpoint".
func ParseUpstream(s string) (Upstream, error) {
	parts := strings.SplitN(s, "=", 3)
	if len(parts) < 2 {
		return Upstream{}, fmt.Errorf("%w: %q, want name=baseURL[=endpoint]", ErrInvalidUpstream, s)
	}
	u := Upstream{Name: parts[0], BaseURL: parts[1]}
	if len(parts) == 3 {
		u.Endpoint = parts[2]
	}
	if err := u.Validate(); err != nil {
		return Upstream{}, err
	}
	return u, nil
}

// TestResult reports whether one upstream could be fetched.
type TestResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of fetching one upstream. Data is nil on failure.
type Result struct {
	Upstream Upstream
	Data     ratio.Config
	Err      error
}

// TestResult summarizes r for API responses.
func (r Result) TestResult() TestResult {
	if r.Err != nil {
		return TestResult{Name: r.Upstream.Name, Status: StatusError, Error: r.Err.Error()}
	}
	return TestResult{Name: r.Upstream.Name, Status: StatusSuccess}
}

// envelope is the response shape served by ratio endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client fetches upstream ratios over HTTP.
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	concurrency int
	logger      *logging.Logger
}

// Options configures a Client. Zero values use the package defaults.
type Options struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	Concurrency int
	Logger      *logging.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	c := &Client{
		httpClient:  opts.HTTPClient,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = constants.RatioSyncTimeout
	}
	if c.concurrency <= 0 {
		c.concurrency = constants.RatioSyncConcurrency
	}
	if c.logger == nil {
		c.logger = logging.GetLogger()
	}
	return c
}

// Fetch retrieves and decodes the ratio_config payload from u.
func (c *Client) Fetch(ctx context.Context, u Upstream) (ratio.Config, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", constants.MIMEApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid response body: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("upstream reported failure: %s", env.Message)
		}
		return nil, fmt.Errorf("upstream reported failure")
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, fmt.Errorf("invalid ratio data: %w", err)
	}

	data := ratio.NewConfig()
	for _, t := range ratio.Types() {
		for model, v := range raw[t] {
			data[t][model] = v
		}
	}
	return data, nil
}

// FetchAll fetches every upstream with bounded concurrency. A failing
// upstream is recorded in its Result and never stops the others.
// Results keep the order of upstreams.
func (c *Client) FetchAll(ctx context.Context, upstreams []Upstream) []Result {
	results := make([]Result, len(upstreams))

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, u := range upstreams {
		g.Go(func() error {
			data, err := c.Fetch(ctx, u)
			if err != nil {
				c.logger.WithFields(map[string]any{
					"upstream": u.Name,
					"url":      u.URL(),
				}).Warnf("Ratio sync fetch failed: %v", err)
			}
			results[i] = Result{Upstream: u, Data: data, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Difference is one model and ratio type where an upstream disagrees with
// the local value. Current is nil when the model has no local value.
type Difference struct {
	Current   *float64           `json:"current"`
	Upstreams map[string]float64 `json:"upstreams"`
}

// Differences maps model -> ratio type -> Difference for every value
// some successful upstream reports differently from local.
func Differences(local ratio.Config, results []Result) map[string]map[string]Difference {
	diffs := map[string]map[string]Difference{}

	for _, t := range ratio.Types() {
		for _, model := range upstreamModels(t, results) {
			current, hasLocal := local[t][model]

			upstreams := map[string]float64{}
			differs := false
			for _, r := range results {
				if r.Err != nil {
					continue
				}
				v, ok := r.Data[t][model]
				if !ok {
					continue
				}
				upstreams[r.Upstream.Name] = v
				if !hasLocal || !floatEqual(v, current) {
					differs = true
				}
			}
			if !differs {
				continue
			}

			d := Difference{Upstreams: upstreams}
			if hasLocal {
				c := current
				d.Current = &c
			}
			if diffs[model] == nil {
				diffs[model] = map[string]Difference{}
			}
			diffs[model][t] = d
		}
	}

	return diffs
}

// upstreamModels returns the sorted model names any successful upstream
// reports for ratio type t.
func upstreamModels(t string, results []Result) []string {
	seen := map[string]bool{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for model := range r.Data[t] {
			seen[model] = true
		}
	}
	models := make([]string, 0, len(seen))
	for model := range seen {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
