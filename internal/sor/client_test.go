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

package sor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dahateb/crm-sync/internal/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient stands up a fake remote service. The mux already
// contains the login route; the login's instance URL points back at
// the same server so that API templates resolve locally.
func newTestClient(t *testing.T) (*Client, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("grant_type") != "password" ||
			r.FormValue("client_id") != "client" ||
			r.FormValue("client_secret") != "secret" ||
			r.FormValue("username") != "user@example.com" ||
			r.FormValue("password") != "hunter2sectoken" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{
  "access_token": "tok-123",
  "instance_url": %q,
  "id": "https://login.example.com/id/00D/005",
  "token_type": "Bearer",
  "issued_at": "1534723967",
  "signature": "sig"
}`, srv.URL)
	})

	return New(&config.SalesforceConfig{
		URI:          srv.URL + "/oauth2/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Username:     "user@example.com",
		Password:     "hunter2",
		SecToken:     "sectoken",
		APIVersion:   "v46.0",
	}), mux
}

func TestConnect(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, _ := newTestClient(t)
	a.Nil(c.LoginData())

	r.NoError(c.Connect(context.Background()))
	login := c.LoginData()
	r.NotNil(login)
	a.Equal("tok-123", login.AccessToken)
	a.Equal("Bearer", login.TokenType)
	a.EqualValues(1534723967, login.IssuedAt)
}

func TestConnectRejected(t *testing.T) {
	a := assert.New(t)

	c, _ := newTestClient(t)
	c.cfg.Password = "wrong"

	err := c.Connect(context.Background())
	var authErr *AuthError
	if a.ErrorAs(err, &authErr) {
		a.Equal(http.StatusBadRequest, authErr.StatusCode)
		a.Contains(authErr.Error(), "invalid_grant")
		a.Contains(authErr.Error(), "400")
	}
}

func TestNotLoggedIn(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Get(context.Background(), func(instance string) string { return instance })
	assert.ErrorContains(t, err, "not logged in")
}

func TestAuthorizedRequests(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, mux := newTestClient(t)
	var gotAuth, gotContentType, gotBody string
	mux.HandleFunc("/echo", func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		gotContentType = req.Header.Get("Content-Type")
		buf, _ := io.ReadAll(req.Body)
		gotBody = string(buf)
		fmt.Fprint(w, "ok")
	})

	r.NoError(c.Connect(context.Background()))

	body, err := c.Get(context.Background(), func(instance string) string {
		return instance + "/echo"
	})
	r.NoError(err)
	a.Equal("ok", body)
	a.Equal("Bearer tok-123", gotAuth)
	a.Empty(gotContentType)

	_, err = c.Post(context.Background(), `{"name":"x"}`, func(instance string) string {
		return instance + "/echo"
	})
	r.NoError(err)
	a.Equal("application/json", gotContentType)
	a.Equal(`{"name":"x"}`, gotBody)

	_, err = c.Patch(context.Background(), `{"name":"y"}`, func(instance string) string {
		return instance + "/echo"
	})
	r.NoError(err)
	a.Equal(`{"name":"y"}`, gotBody)
}

func TestHTTPErrorShape(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, mux := newTestClient(t)
	mux.HandleFunc("/missing", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `[{"errorCode":"NOT_FOUND"}]`, http.StatusNotFound)
	})
	r.NoError(c.Connect(context.Background()))

	_, err := c.Get(context.Background(), func(instance string) string {
		return instance + "/missing"
	})
	hErr, ok := AsHTTPError(err)
	r.True(ok)
	a.Equal(http.StatusNotFound, hErr.StatusCode)
	a.Contains(hErr.Error(), "404")
	a.Contains(hErr.Error(), "NOT_FOUND")

	// Wrapped errors still unwrap to the remote rejection.
	_, ok = AsHTTPError(errors.Wrap(err, "outer"))
	a.True(ok)

	_, ok = AsHTTPError(errors.New("plain"))
	a.False(ok)
}
