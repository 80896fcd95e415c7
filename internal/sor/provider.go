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

	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/google/wire"
)

// Set is used by Wire.
var Set = wire.NewSet(
	ProvideClient,
	wire.Bind(new(types.SorClient), new(*Client)),
)

// ProvideClient is called by Wire to construct a logged-in client. A
// login failure is fatal to startup.
func ProvideClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	ret := New(&cfg.Salesforce)
	if err := ret.Connect(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}
