// Package detector is the client for the people detector. The detector is
// an opaque HTTP service: it takes a still and returns a person count and,
// optionally, the still annotated with bounding boxes.
package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/xerrors"

	"github.com/campuspulse/occupancy-backend-go/internal/models"
)

// Defaults used when the configuration leaves them unset
const (
	DefaultTimeout    = 30 * time.Second
	DefaultConfidence = 0.15
)

// Result is one detection
type Result struct {
	PeopleCount int
	Annotated   []byte // Nil when the detector returned no annotated image
}

type response struct {
	PeopleCount    *int   `json:"people_count"`
	AnnotatedImage string `json:"annotated_image"`
}

// Detector counts people in a still
type Detector interface {
	Detect(ctx context.Context, image []byte) (Result, error)
}

// Client calls a detector service over HTTP
type Client struct {
	endpoint   string
	confidence float64
	timeout    time.Duration
	h          *http.Client
}

// New creates a detector client. Each Detect call is bounded by timeout.
func New(endpoint string, confidence float64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}
	return &Client{
		endpoint:   endpoint,
		confidence: confidence,
		timeout:    timeout,
		h:          &http.Client{},
	}
}

// Detect posts the still to the detector. Every failure, including a
// timeout and a negative count, wraps models.ErrDetectorFailure.
func (c *Client) Detect(ctx context.Context, image []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Result{}, xerrors.Errorf("parse detector url: %w", models.ErrDetectorFailure)
	}
	q := u.Query()
	q.Set("confidence", strconv.FormatFloat(c.confidence, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(image))
	if err != nil {
		return Result{}, xerrors.Errorf("build detector request: %w", models.ErrDetectorFailure)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.h.Do(req)
	if err != nil {
		return Result{}, xerrors.Errorf("call detector (%v): %w", err, models.ErrDetectorFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, xerrors.Errorf("detector returned %d %q: %w", resp.StatusCode, b, models.ErrDetectorFailure)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, xerrors.Errorf("decode detector response (%v): %w", err, models.ErrDetectorFailure)
	}
	if payload.PeopleCount == nil {
		return Result{}, xerrors.Errorf("detector response without people_count: %w", models.ErrDetectorFailure)
	}
	if *payload.PeopleCount < 0 {
		return Result{}, xerrors.Errorf("detector returned negative count %d: %w", *payload.PeopleCount, models.ErrDetectorFailure)
	}

	result := Result{PeopleCount: *payload.PeopleCount}
	if payload.AnnotatedImage != "" {
		annotated, err := base64.StdEncoding.DecodeString(payload.AnnotatedImage)
		if err != nil {
			return Result{}, xerrors.Errorf("decode annotated image (%v): %w", err, models.ErrDetectorFailure)
		}
		result.Annotated = annotated
	}
	return result, nil
}
