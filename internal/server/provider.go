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

package server

import (
	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/config"
	"github.com/dahateb/crm-sync/internal/engine"
	"github.com/dahateb/crm-sync/internal/setup"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/google/wire"
)

// Set is used by Wire.
var Set = wire.NewSet(ProvideServer)

// ProvideServer is called by Wire to assemble the control plane.
func ProvideServer(
	cfg *config.Config,
	eng *engine.Engine,
	sf types.SorClient,
	set *setup.Setup,
	buses *bus.Buses,
) *Server {
	return New(cfg, eng, sf, set, buses)
}
