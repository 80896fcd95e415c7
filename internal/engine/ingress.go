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
	log "github.com/sirupsen/logrus"
)

// updateWindow is the trailing modification window each ingress pass
// queries for. It matches the staleness cutoff used to select objects,
// so records modified between passes are never missed.
const updateWindow = time.Minute

// staleMinutes selects objects whose high-water mark is at least this
// old.
const staleMinutes = 1

// ingressTimeout bounds one ingress pass across all objects. Backlogs
// page through many round-trips, so the bound is generous.
const ingressTimeout = 5 * time.Minute

// ingress pulls recently-modified remote records into their mirror
// tables.
type ingress struct {
	passState
	sf     types.SorClient
	db     types.Gateway
	events *bus.Bus
}

var _ Worker = (*ingress)(nil)

func newIngress(sf types.SorClient, db types.Gateway, events *bus.Bus) *ingress {
	return &ingress{sf: sf, db: db, events: events}
}

func (w *ingress) String() string { return "ingress" }

// Timeout implements Worker.
func (w *ingress) Timeout() time.Duration { return ingressTimeout }

// Start implements Worker. Ingress holds nothing between passes.
func (w *ingress) Start(ctx context.Context) error { return nil }

// Stop implements Worker.
func (w *ingress) Stop(ctx context.Context) error { return nil }

// Execute implements Worker. A failing object is reported and skipped
// so one broken mirror cannot stall the rest.
func (w *ingress) Execute(ctx context.Context) error {
	configs, err := w.db.ListSelectedObjects(ctx, staleMinutes)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.pull(ctx, cfg); err != nil {
			log.WithError(err).Warnf("pull of %s failed", cfg.Name)
			w.events.Send(types.NewSyncMessage(
				fmt.Sprintf("Error: %s", err), cfg.DBName, 0))
		}
	}
	return nil
}

// pull fetches one object's delta. The first page is upserted; rows on
// later pages are treated as new. The high-water mark advances only
// after every page of the pass has been applied.
func (w *ingress) pull(ctx context.Context, cfg *types.ObjectConfig) error {
	batch, err := w.sf.QueryUpdatedRecords(ctx, cfg, updateWindow)
	if err != nil {
		return err
	}
	w.events.Send(types.NewSyncMessage(
		fmt.Sprintf("num rows to synch: %d", batch.Len()),
		cfg.DBName, int64(batch.Len())))

	total, err := w.db.UpsertRows(ctx, batch)
	if err != nil {
		return err
	}
	for !batch.Done {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.events.Send(types.NewSyncMessage(
			fmt.Sprintf("Next Path: %s", batch.NextURL), cfg.DBName, 0))
		if batch, err = w.sf.NextRecords(ctx, cfg, batch); err != nil {
			return err
		}
		n, err := w.db.InsertRows(ctx, batch)
		if err != nil {
			return err
		}
		total += n
		w.events.Send(types.NewSyncMessage(
			fmt.Sprintf("Synched %d rows", n), cfg.DBName, n))
	}
	if err := w.db.UpdateLastSyncTime(ctx, cfg.ID); err != nil {
		return err
	}
	w.events.Send(types.NewSyncMessage(
		fmt.Sprintf("Done: %d rows", total), cfg.DBName, total))
	ingressRows.WithLabelValues(cfg.DBName).Add(float64(total))
	return nil
}
