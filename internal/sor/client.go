// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package sor contains the REST client for the remote system of
// record.
package sor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// The REST surface of the remote service. Each template is filled with
// the instance URL of the current login and the configured API
// version.
const (
	catalogTemplate  = "%s/services/data/%s/sobjects"
	describeTemplate = "%s/services/data/%s/sobjects/%s/describe"
	queryTemplate    = "%s/services/data/%s/query/?q=%s"
	createTemplate   = "%s/services/data/%s/sobjects/%s"
	updateTemplate   = "%s/services/data/%s/sobjects/%s/%s"
)

const requestTimeout = 30 * time.Second

// An HTTPError is a non-2xx response from the remote service. The
// message is "<status> <body>" so that the remote error detail travels
// with the error.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s", e.Status, e.Body)
}

// AsHTTPError returns the error if it represents a remote rejection.
func AsHTTPError(err error) (hErr *HTTPError, ok bool) {
	return hErr, errors.As(err, &hErr)
}

// An AuthError is a rejected login handshake. It is always fatal to
// startup.
type AuthError struct {
	HTTPError
}

// Client is a logged-in API client. It is safe for concurrent use.
type Client struct {
	cfg  *config.SalesforceConfig
	http *http.Client

	mu struct {
		sync.RWMutex
		login *types.LoginData
	}
}

var _ types.SorClient = (*Client)(nil)

// New constructs a Client that has not yet logged in.
func New(cfg *config.SalesforceConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Connect performs the password-grant login handshake. It may be
// called again to replace an expired token.
func (c *Client) Connect(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("username", c.cfg.Username)
	// The security token is appended to the password when the org
	// requires one.
	form.Set("password", c.cfg.Password+c.cfg.SecToken)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.cfg.URI, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		if hErr, ok := AsHTTPError(err); ok {
			return &AuthError{HTTPError: *hErr}
		}
		return errors.Wrap(err, "login request failed")
	}

	login := &types.LoginData{}
	if err := json.Unmarshal([]byte(body), login); err != nil {
		return errors.Wrap(err, "could not decode login response")
	}

	c.mu.Lock()
	c.mu.login = login
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"instance": login.InstanceURL,
		"issued":   login.IssuedAt.Time(),
	}).Info("logged in to remote service")
	return nil
}

// LoginData implements types.SorClient.
func (c *Client) LoginData() *types.LoginData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mu.login
}

// Get performs an authenticated GET. The build callback receives the
// instance URL of the current login and returns the full request URL.
func (c *Client) Get(ctx context.Context, build func(instanceURL string) string) (string, error) {
	return c.send(ctx, http.MethodGet, "", build)
}

// Patch performs an authenticated PATCH with a JSON payload.
func (c *Client) Patch(ctx context.Context, data string, build func(instanceURL string) string) (string, error) {
	return c.send(ctx, http.MethodPatch, data, build)
}

// Post performs an authenticated POST with a JSON payload.
func (c *Client) Post(ctx context.Context, data string, build func(instanceURL string) string) (string, error) {
	return c.send(ctx, http.MethodPost, data, build)
}

func (c *Client) send(
	ctx context.Context, method, data string, build func(string) string,
) (string, error) {
	login := c.LoginData()
	if login == nil {
		return "", errors.New("not logged in")
	}
	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, build(login.InstanceURL), body)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

// do executes the request and returns the response body. Any non-2xx
// status becomes an HTTPError carrying the body.
func (c *Client) do(req *http.Request) (string, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		sorRequestErrors.WithLabelValues(req.Method).Inc()
		return "", errors.Wrap(err, "transport")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		sorRequestErrors.WithLabelValues(req.Method).Inc()
		return "", errors.Wrap(err, "reading response body")
	}
	sorRequestDurations.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	log.WithFields(log.Fields{
		"method": req.Method,
		"status": resp.StatusCode,
		"url":    req.URL.Path,
	}).Trace("remote call")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		sorRequestErrors.WithLabelValues(req.Method).Inc()
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	return string(data), nil
}
