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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
  "salesforce": {
    "uri": "https://login.example.com/services/oauth2/token",
    "client_id": "client",
    "client_secret": "secret",
    "username": "user@example.com",
    "password": "hunter2",
    "sec_token": "token",
    "api_version": "v46.0"
  },
  "db": {"url": "postgres://localhost:5432/mirror"},
  "sync": {"timeout": 5000},
  "server": {"url": "127.0.0.1:8888"}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	cfg, err := Load(writeConfig(t, testConfig))
	r.NoError(err)
	r.NoError(cfg.Preflight())

	a.Equal("https://login.example.com/services/oauth2/token", cfg.Salesforce.URI)
	a.Equal("v46.0", cfg.Salesforce.APIVersion)
	a.Equal("postgres://localhost:5432/mirror", cfg.DB.URL)
	a.Equal(5*time.Second, cfg.Sync.TickInterval())
	a.Equal("127.0.0.1:8888", cfg.Server.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, `{"salesforce": [}`))
	assert.Error(t, err)
}

func TestPreflight(t *testing.T) {
	tcs := []struct {
		name string
		fn   func(*Config)
	}{
		{"salesforce.uri", func(c *Config) { c.Salesforce.URI = "" }},
		{"salesforce.client_id", func(c *Config) { c.Salesforce.ClientID = "" }},
		{"salesforce.client_secret", func(c *Config) { c.Salesforce.ClientSecret = "" }},
		{"salesforce.username", func(c *Config) { c.Salesforce.Username = "" }},
		{"salesforce.password", func(c *Config) { c.Salesforce.Password = "" }},
		{"salesforce.api_version", func(c *Config) { c.Salesforce.APIVersion = "" }},
		{"db.url", func(c *Config) { c.DB.URL = "" }},
		{"sync.timeout", func(c *Config) { c.Sync.Timeout = 0 }},
		{"server.url", func(c *Config) { c.Server.URL = "" }},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, testConfig))
			require.NoError(t, err)
			tc.fn(cfg)
			err = cfg.Preflight()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.name)
			}
		})
	}

	// The security token is optional.
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	cfg.Salesforce.SecToken = ""
	assert.NoError(t, cfg.Preflight())
}

func TestFlags(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	f := &Flags{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Bind(flags)

	r.NoError(flags.Parse([]string{"-c", "other.json", "-i", "-v", "-v"}))
	a.Equal("other.json", f.ConfigPath)
	a.True(f.Interactive)
	a.Equal(2, f.Verbosity)

	f = &Flags{}
	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Bind(flags)
	r.NoError(flags.Parse(nil))
	a.Equal(DefaultPath, f.ConfigPath)
	a.False(f.Interactive)
}
