package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const proxyDocumentPath = "/api/v1/documents/proxy"

// maxDocumentBytes caps document downloads; anything larger than this
// is not a legitimate ID scan or agreement file.
const maxDocumentBytes = 50 << 20

// FetchDocument downloads a public document asset directly, without
// credentials. Used as the first strategy of the file resolver.
func (c *Client) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleHTTPError(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}
	return data, nil
}

// ProxyFetchDocument streams a remote document through the backend's
// authenticated proxy, which attaches server-side credentials and
// sidesteps cross-origin restrictions on the source host.
func (c *Client) ProxyFetchDocument(ctx context.Context, srcURL, filename string) ([]byte, error) {
	vals := url.Values{}
	vals.Set("url", srcURL)
	vals.Set("filename", filename)
	endpoint := fmt.Sprintf("%s?%s", proxyDocumentPath, vals.Encode())

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to proxy-fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleHTTPError(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxied document body: %w", err)
	}
	return data, nil
}
