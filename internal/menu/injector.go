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

//go:build wireinject
// +build wireinject

package menu

import (
	"context"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/engine"
	"github.com/dahateb/crm-sync/internal/rdb"
	"github.com/dahateb/crm-sync/internal/setup"
	"github.com/dahateb/crm-sync/internal/sor"
	"github.com/google/wire"
)

// NewFromConfig constructs the console, logging in to the remote
// service and opening the mirror pool along the way.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Menu, func(), error) {
	panic(wire.Build(
		Set,
		bus.Set,
		engine.Set,
		rdb.Set,
		setup.Set,
		sor.Set,
	))
}
