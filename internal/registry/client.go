// Package registry is a client for the camera registry, the remote service
// that lists building groups, their cameras and the latest still of each.
package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// DefaultBaseURL is the public linecam registry
const DefaultBaseURL = "https://mkt-api.gcu.edu/linecam/api/v1"

// maxImageBytes bounds a single camera still
const maxImageBytes = 16 << 20

// CameraInfo is one camera as listed by the registry
type CameraInfo struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	URL         string `json:"url"`
	UpdatedAt   string `json:"updated_at"` // Parsed by the caller, the registry is not strict about format
}

// Client talks to the registry over HTTP
type Client struct {
	base string
	h    *http.Client
}

// New creates a registry client. A zero timeout leaves requests bounded
// only by their context.
func New(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		h:    &http.Client{Timeout: timeout},
	}
}

// Locations returns the building groups known to the registry
func (c *Client) Locations(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, c.base+"/locations", &out); err != nil {
		return nil, xerrors.Errorf("list registry locations: %w", err)
	}
	return out, nil
}

// Cameras returns the active cameras of one building group
func (c *Client) Cameras(ctx context.Context, building string) ([]CameraInfo, error) {
	q := url.Values{}
	q.Set("includeImages", "true")
	q.Set("includeInactive", "false")
	q.Set("location", building)

	var out []CameraInfo
	if err := c.getJSON(ctx, c.base+"/images?"+q.Encode(), &out); err != nil {
		return nil, xerrors.Errorf("list cameras of %q: %w", building, err)
	}
	return out, nil
}

// FetchImage downloads a camera still
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	resp, err := c.get(ctx, imageURL)
	if err != nil {
		return nil, xerrors.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, xerrors.Errorf("read image: %w", err)
	}
	if len(body) == 0 {
		return nil, xerrors.New("fetch image: empty body")
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	resp, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return xerrors.Errorf("decode response: %w", err)
	}
	return nil
}

// get issues a GET and returns the response only for 2xx statuses
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.h.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, xerrors.Errorf("%s returned %d: %s", u, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}
