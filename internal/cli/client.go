package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/convertey/convertey-api/internal/convert"
)

const (
	retryCount       = 3
	retryWaitTime    = 3 * time.Second
	retryMaxWaitTime = 60 * time.Second
)

type fileRequest struct {
	FileData string `json:"fileData"`
	FileType string `json:"fileType,omitempty"`
	Format   string `json:"format"`
	FileName string `json:"fileName"`
}

type fileResponse struct {
	ConvertedData string `json:"convertedData"`
	FileName      string `json:"fileName"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type formatsResponse struct {
	Families []convert.FamilySummary `json:"families"`
}

// client talks to a remote API server. Requests rejected with 429 are
// retried after the advertised Retry-After.
type client struct {
	http *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWaitTime).
		SetRetryMaxWaitTime(retryMaxWaitTime).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp == nil || resp.StatusCode() != http.StatusTooManyRequests {
				return 0, nil
			}
			if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
				if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
					return seconds, nil
				}
			}
			return retryWaitTime, nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})
	return &client{http: c}
}

func (c *client) convert(ctx context.Context, req convert.Request) (*convert.Result, error) {
	var out fileResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fileRequest{
			FileData: base64.StdEncoding.EncodeToString(req.Data),
			FileType: req.MimeType,
			Format:   req.TargetFormat,
			FileName: req.FileName,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/convert/file")
	if err != nil {
		return nil, fmt.Errorf("request conversion: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp.StatusCode(), apiErr)
	}

	data, err := base64.StdEncoding.DecodeString(out.ConvertedData)
	if err != nil {
		return nil, fmt.Errorf("decode converted data: %w", err)
	}
	return &convert.Result{Data: data, FileName: out.FileName}, nil
}

func (c *client) formats(ctx context.Context) ([]convert.FamilySummary, error) {
	var out formatsResponse
	var apiErr errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/formats")
	if err != nil {
		return nil, fmt.Errorf("request formats: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError(resp.StatusCode(), apiErr)
	}
	return out.Families, nil
}

func remoteError(status int, body errorResponse) error {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	if body.Details != "" {
		return fmt.Errorf("server returned %d: %s (%s)", status, msg, body.Details)
	}
	return fmt.Errorf("server returned %d: %s", status, msg)
}
