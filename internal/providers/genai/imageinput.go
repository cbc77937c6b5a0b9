package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// imageFetchTimeout bounds remote image downloads on the audit and generation
// paths. The model calls themselves carry a longer timeout.
const imageFetchTimeout = 60 * time.Second

var (
	// ErrEmptyImageRef reports a blank image reference.
	ErrEmptyImageRef = errors.New("genai: image reference is empty")
	// ErrMalformedDataURI reports a data URI without a payload separator.
	ErrMalformedDataURI = errors.New("genai: data uri has no comma separator")
	// ErrInvalidEncoding reports a raw payload that is not valid base64.
	ErrInvalidEncoding = errors.New("genai: image payload is not valid base64")
)

// FetchError reports a failed remote image download.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("genai: fetch %s: http %d", e.URL, e.Status)
	}
	return fmt.Sprintf("genai: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ResolveImageRef normalizes an image reference into a base64 payload suitable
// for an inline-data part. A reference is one of: a remote http(s) URL, a
// data URI, or an already-encoded base64 string.
func (c *Client) ResolveImageRef(ctx context.Context, ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", ErrEmptyImageRef
	}

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return c.fetchAndEncode(ctx, trimmed)
	}

	if strings.HasPrefix(trimmed, "data:") {
		idx := strings.Index(trimmed, ",")
		if idx < 0 {
			return "", ErrMalformedDataURI
		}
		return trimmed[idx+1:], nil
	}

	if _, err := base64.StdEncoding.DecodeString(trimmed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return trimmed, nil
}

func (c *Client) fetchAndEncode(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, imageFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", &FetchError{URL: imageURL, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: imageURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: imageURL, Err: err}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
