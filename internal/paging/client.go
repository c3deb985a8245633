package paging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/subfile"
)

// DefaultTimeout bounds a single getRecords round trip.
const DefaultTimeout = 3 * time.Minute

// JobHandleParam is the query parameter carrying the server job.
const JobHandleParam = "JobHandle"

const maxEnvelopeBytes = 8 << 20

// Result is the outcome of one paging request. Exactly one of Envelope and
// Err is set.
type Result struct {
	Request  Request
	Envelope *Envelope
	Err      error
}

// Client issues getRecords calls for one page.
type Client struct {
	Endpoint   string
	JobHandle  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient creates a client posting to endpoint. A nil httpClient uses
// http.DefaultClient.
func NewClient(endpoint, jobHandle string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		Endpoint:   endpoint,
		JobHandle:  jobHandle,
		HTTPClient: httpClient,
		Timeout:    DefaultTimeout,
	}
}

// RequestPage plans the request for key and, when the plan is valid,
// dispatches it in the background. It returns as soon as the request is on
// its way; the channel then receives exactly one Result. A non-nil error
// means nothing was sent and the channel is nil.
//
// The store is only read here, before RequestPage returns.
func (c *Client) RequestPage(ctx context.Context, key aid.Key, store *subfile.Store) (<-chan Result, error) {
	req, err := Plan(key, store)
	if err != nil {
		return nil, err
	}
	out := make(chan Result, 1)
	go func() {
		env, err := c.Fetch(ctx, req)
		if err != nil {
			log.Printf("paging: %s %s records %d-%d failed: %v", req.RecordName, req.RequestorAidKey, req.From, req.Last(), err)
			out <- Result{Request: req, Err: err}
			return
		}
		out <- Result{Request: req, Envelope: env}
	}()
	return out, nil
}

// Fetch performs one getRecords round trip.
func (c *Client) Fetch(ctx context.Context, req Request) (*Envelope, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target, err := c.requestURL()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode paging request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build paging request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		httpReq.Header.Set("Origin", u.Scheme+"://"+u.Host)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paging request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, fmt.Errorf("read paging response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("paging request: unexpected status %d", resp.StatusCode)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode paging response: %w", err)
	}
	return &env, nil
}

// requestURL appends JobHandle to the endpoint unless it is already there.
func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("paging endpoint %q: %w", c.Endpoint, err)
	}
	if c.JobHandle == "" {
		return u.String(), nil
	}
	q := u.Query()
	if q.Get(JobHandleParam) == "" {
		q.Set(JobHandleParam, c.JobHandle)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
