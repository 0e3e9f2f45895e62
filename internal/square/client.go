/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package square

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const apiVersion = "2024-06-04"

// Client is a narrow Square REST client covering the endpoints Chairside
// drives: gift cards, gift card activities, orders, payments, customers,
// customer custom attributes and locations.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given Square environment.
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   accessToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// do performs one Square API call with bounded exponential-backoff retries.
// Mutating endpoints are always idempotency-keyed by the caller, so retrying
// a 5xx or a network error cannot duplicate a side effect.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "square: marshal request")
		}
	}

	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Square-Version", apiVersion)

		resp, err := c.http.Do(req)
		if err != nil {
			return err // network errors are retriable
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if err := json.Unmarshal(respBody, apiErr); err != nil {
				logrus.Warnf("square: undecodable error body for %s %s: %s", method, path, string(respBody))
			}
			if apiErr.Retriable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return backoff.Permanent(errors.Wrap(err, "square: decode response"))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, policy)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// LogAPIError logs the structured Square error payload when present; other
// errors are logged as-is. Used by callers that treat a failed call as
// "no activity produced" and fall through to the next tier.
func LogAPIError(context string, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail, _ := json.Marshal(apiErr.Errors)
		logrus.Warnf("%s: square error %d: %s", context, apiErr.StatusCode, string(detail))
		return
	}
	logrus.Warnf("%s: %v", context, err)
}
