// Package client submits questionnaires to a running service over HTTP. It
// implements editor.Submitter so an editing session can drive a remote
// service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/editor"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	gojson "github.com/goccy/go-json"
)

const (
	SubmitPath     = "/questionnaires/new"
	DefaultTimeout = 10 * time.Second

	// maxBody caps how much of an error response is read
	maxBody = 1 << 20
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type Client struct {
	base string
	http *http.Client
}

// New returns a client for the service at baseURL. A nil httpClient gets a
// default one with DefaultTimeout. Redirects are never followed; a 303 is
// the acceptance itself.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	} else {
		copied := *httpClient
		httpClient = &copied
	}
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
	}
}

var _ editor.Submitter = (*Client)(nil)

// Submit posts values form-encoded. A 303 is reported as an acceptance, a
// 422 as a rejection echoing values; any other status is an error.
func (c *Client) Submit(ctx context.Context, values url.Values) (editor.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+SubmitPath, strings.NewReader(values.Encode()))
	if err != nil {
		return editor.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return editor.Response{}, fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusSeeOther:
		location := resp.Header.Get("Location")
		if location == "" {
			return editor.Response{}, fmt.Errorf("%w: %d without location", ErrUnexpectedStatus, resp.StatusCode)
		}
		io.Copy(io.Discard, resp.Body)
		return editor.Response{Redirect: location}, nil

	case http.StatusUnprocessableEntity:
		var body struct {
			Errors errortree.Tree `json:"errors"`
		}
		if err := gojson.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
			return editor.Response{}, fmt.Errorf("decode rejection: %w", err)
		}
		return editor.Response{Errors: body.Errors, Echo: values}, nil

	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return editor.Response{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}
