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

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dahateb/crm-sync/internal/bus"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/dahateb/crm-sync/internal/util/ndrain"
	log "github.com/sirupsen/logrus"
)

// egressTimeout bounds one egress pass.
const egressTimeout = time.Minute

// egress pushes locally-changed mirror rows back to the remote
// service. The mirror's change trigger queues a notification per
// touched row; each pass drains the queue and pushes the affected
// rows.
type egress struct {
	passState
	sf     types.SorClient
	db     types.Gateway
	events *bus.Bus
}

var _ Worker = (*egress)(nil)

func newEgress(sf types.SorClient, db types.Gateway, events *bus.Bus) *egress {
	return &egress{sf: sf, db: db, events: events}
}

func (w *egress) String() string { return "egress" }

// Timeout implements Worker.
func (w *egress) Timeout() time.Duration { return egressTimeout }

// Start implements Worker. The notification subscription must be live
// before the first pass, or changes made in between would be lost.
func (w *egress) Start(ctx context.Context) error {
	return w.db.ToggleListen(ctx, true)
}

// Stop implements Worker.
func (w *egress) Stop(ctx context.Context) error {
	return w.db.ToggleListen(ctx, false)
}

// Execute implements Worker. A failing table is reported and skipped
// so one rejected batch cannot stall the rest.
func (w *egress) Execute(ctx context.Context) error {
	payloads, err := w.db.DrainNotifications(ctx)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		return nil
	}
	for range payloads {
		w.events.Send(types.NewSyncMessage("triggered new db sync", "", 0))
	}

	groups, skipped := ndrain.Collapse(payloads)
	if skipped > 0 {
		log.Warnf("dropped %d malformed change notifications", skipped)
	}
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.push(ctx, group); err != nil {
			log.WithError(err).Warnf("push of %s failed", group.Table)
			w.events.Send(types.NewSyncMessage(
				fmt.Sprintf("Error: %s", err), group.Table, 0))
		}
	}
	return nil
}

// push sends one table's changed rows to the remote service, records
// the remote ids assigned to newly-created rows, and flags rejected
// rows in place.
func (w *egress) push(ctx context.Context, group ndrain.Group) error {
	recs, err := w.db.RowsByID(ctx, group.Table, group.IDs)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	created, failed := w.sf.PushRecords(ctx, group.Table, recs)
	if err := w.db.UpdateRemoteIDs(ctx, group.Table, created); err != nil {
		return err
	}
	for id, pushErr := range failed {
		if err := w.db.SetErrorState(ctx, group.Table, id, pushErr.Error()); err != nil {
			return err
		}
	}

	pushed := int64(len(recs) - len(failed))
	w.events.Send(types.NewSyncMessage("updated from db", group.Table, pushed))
	egressRows.WithLabelValues(group.Table).Add(float64(pushed))
	return nil
}
