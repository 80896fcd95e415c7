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

// Package config loads and validates the user-visible configuration
// for running the mirror.
package config

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config.1.json"

// Config is the on-disk JSON configuration.
type Config struct {
	Salesforce SalesforceConfig `json:"salesforce"`
	DB         DBConfig         `json:"db"`
	Sync       SyncConfig       `json:"sync"`
	Server     ServerConfig     `json:"server"`
}

// SalesforceConfig holds the credentials and endpoint for the remote
// system of record.
type SalesforceConfig struct {
	URI          string `json:"uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SecToken     string `json:"sec_token"`
	APIVersion   string `json:"api_version"`
}

// DBConfig holds the mirror database connection string.
type DBConfig struct {
	URL string `json:"url"`
}

// SyncConfig controls the sync supervisor.
type SyncConfig struct {
	// Timeout is the tick interval in milliseconds.
	Timeout uint64 `json:"timeout"`
}

// TickInterval returns the supervisor tick interval.
func (c *SyncConfig) TickInterval() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ServerConfig holds the control-plane bind address.
type ServerConfig struct {
	URL string `json:"url"`
}

// Load reads and decodes the configuration file at path. The result
// has not been preflighted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read configuration file %s", path)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "could not parse configuration file %s", path)
	}
	return cfg, nil
}

// Preflight ensures that all required configuration values are
// present. The security token is the only optional value; an org may
// have disabled it.
func (c *Config) Preflight() error {
	sf := &c.Salesforce
	if sf.URI == "" {
		return errors.New("salesforce.uri unset")
	}
	if sf.ClientID == "" {
		return errors.New("salesforce.client_id unset")
	}
	if sf.ClientSecret == "" {
		return errors.New("salesforce.client_secret unset")
	}
	if sf.Username == "" {
		return errors.New("salesforce.username unset")
	}
	if sf.Password == "" {
		return errors.New("salesforce.password unset")
	}
	if sf.APIVersion == "" {
		return errors.New("salesforce.api_version unset")
	}
	if c.DB.URL == "" {
		return errors.New("db.url unset")
	}
	if c.Sync.Timeout == 0 {
		return errors.New("sync.timeout unset")
	}
	if c.Server.URL == "" {
		return errors.New("server.url unset")
	}
	return nil
}

// Flags is the command-line surface of the binary.
type Flags struct {
	ConfigPath  string
	Interactive bool
	Verbosity   int
}

// Bind registers flags.
func (f *Flags) Bind(flags *pflag.FlagSet) {
	flags.StringVarP(
		&f.ConfigPath,
		"config", "c",
		DefaultPath,
		"the JSON configuration file to load")
	flags.BoolVarP(
		&f.Interactive,
		"interactive", "i",
		false,
		"run the interactive console instead of the API server")
	flags.CountVarP(
		&f.Verbosity,
		"verbose", "v",
		"increase logging verbosity to debug; repeat for trace")
}
