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

package rdb

import (
	"context"

	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/dahateb/crm-sync/internal/util/stdpool"
	"github.com/google/wire"
)

// Set is used by Wire.
var Set = wire.NewSet(
	ProvideGateway,
	ProvidePool,
	wire.Bind(new(types.Gateway), new(*Gateway)),
)

// ProvideGateway is called by Wire.
func ProvideGateway(pool *types.Pool) *Gateway {
	return New(pool)
}

// ProvidePool is called by Wire to open the mirror database pool.
func ProvidePool(ctx context.Context, cfg *config.Config) (*types.Pool, func(), error) {
	return stdpool.OpenPgAsMirror(ctx, cfg.DB.URL)
}
