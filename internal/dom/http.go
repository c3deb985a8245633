package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxPageBytes = 16 << 20

// Load fetches and parses a page.
func Load(ctx context.Context, client *http.Client, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	return do(client, req)
}

// Submit posts the page's form to its action and returns the reply page.
func Submit(ctx context.Context, client *http.Client, p *Page) (*Page, error) {
	action := p.Action()
	if action == "" {
		return nil, fmt.Errorf("submit: page has no form action")
	}
	body := p.FormValues().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if u, err := url.Parse(action); err == nil && u.Host != "" {
		req.Header.Set("Origin", u.Scheme+"://"+u.Host)
	}
	if p.URL != nil {
		req.Header.Set("Referer", p.URL.String())
	}
	return do(client, req)
}

func do(client *http.Client, req *http.Request) (*Page, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return nil, fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL, resp.StatusCode)
	}
	base := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	return Parse(io.LimitReader(resp.Body, maxPageBytes), base)
}
