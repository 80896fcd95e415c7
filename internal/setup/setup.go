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

// Package setup drives provisioning: it pairs the remote catalog with
// the mirror ledger and carries out the describe, create, and backfill
// sequence for a chosen object.
//
// Objects are addressed by their position in the most recent listing,
// the way a user picks them from the console menu or the API. The
// listings are therefore cached, and index-based operations refuse to
// run before a listing has assigned the indexes.
package setup

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrCacheNotReady is returned when an index-based operation runs
	// before the listing that assigns the indexes.
	ErrCacheNotReady = errors.New("cache not setup")

	// ErrObjectNotFound is returned when an index does not match any
	// entry of the cached listing.
	ErrObjectNotFound = errors.New("object not found")
)

// A Notify callback receives human-readable provisioning progress.
type Notify func(text string, count int64)

// A RemoteObjectEntry is one row of the remote catalog listing.
type RemoteObjectEntry struct {
	Num           int    `json:"num"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	CustomSetting bool   `json:"custom_setting"`
	Createable    bool   `json:"createable"`
	Synched       bool   `json:"synched"`
}

// A DBObjectEntry is one row of the provisioned-mirror listing.
type DBObjectEntry struct {
	Num       int    `json:"num"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
	NumFields int    `json:"num_fields"`
}

// Setup coordinates provisioning between the remote catalog and the
// mirror database. It is safe for concurrent use.
type Setup struct {
	sf types.SorClient
	db types.Gateway

	mu struct {
		sync.Mutex
		remote []types.SObject
		local  []*types.ObjectConfig
	}
}

// New constructs a Setup over the remote client and the mirror gateway.
func New(sf types.SorClient, db types.Gateway) *Setup {
	return &Setup{sf: sf, db: db}
}

// ListRemoteObjects fetches the mirrorable remote catalog, refreshes
// the index cache, and hands one entry at a time to fn in catalog
// order. Entries already present in the mirror ledger are flagged.
func (s *Setup) ListRemoteObjects(ctx context.Context, fn func(RemoteObjectEntry)) error {
	objects, err := s.sf.ListObjects(ctx)
	if err != nil {
		return err
	}
	entries := make([]RemoteObjectEntry, len(objects))
	for i, o := range objects {
		cfg, err := s.db.GetObjectConfig(ctx, o.Name)
		if err != nil {
			return err
		}
		entries[i] = RemoteObjectEntry{
			Num:           i + 1,
			Name:          o.Name,
			Label:         o.Label,
			CustomSetting: o.CustomSetting,
			Createable:    o.Createable,
			Synched:       cfg != nil,
		}
	}

	s.mu.Lock()
	s.mu.remote = objects
	s.mu.Unlock()

	for _, e := range entries {
		fn(e)
	}
	return nil
}

// ListDBObjects lists the provisioned mirrors with their row counts,
// refreshes the index cache, and hands one entry at a time to fn.
func (s *Setup) ListDBObjects(ctx context.Context, fn func(DBObjectEntry)) error {
	configs, err := s.db.ListSelectedObjects(ctx, -1)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.mu.local = configs
	s.mu.Unlock()

	for i, cfg := range configs {
		fn(DBObjectEntry{
			Num:       i + 1,
			Name:      cfg.Name,
			Count:     cfg.Count,
			NumFields: len(cfg.Fields),
		})
	}
	return nil
}

// RemoteObjectExists reports whether the remote object at the given
// listing index has already been provisioned.
func (s *Setup) RemoteObjectExists(ctx context.Context, index int) (bool, error) {
	sch, err := s.remoteObjectAt(index)
	if err != nil {
		return false, err
	}
	cfg, err := s.db.GetObjectConfig(ctx, sch.Name)
	if err != nil {
		return false, err
	}
	return cfg != nil, nil
}

// ProvisionRemoteObject describes the remote object at the given
// listing index, creates its mirror table, records it in the ledger,
// and backfills every remote record. When installTrigger is set the
// change-notification trigger is installed as well; without it the
// mirror receives remote data but local edits are never pushed back.
// Progress is reported through notify as the backfill pages through
// the object.
func (s *Setup) ProvisionRemoteObject(
	ctx context.Context, index int, installTrigger bool, notify Notify,
) error {
	if notify == nil {
		notify = func(string, int64) {}
	}
	sch, err := s.remoteObjectAt(index)
	if err != nil {
		return err
	}
	notify(fmt.Sprintf("Selected Object: %s", sch.Name), 0)

	desc, err := s.sf.DescribeObject(ctx, sch.Name)
	if err != nil {
		return s.fail(notify, sch.Name, err)
	}
	if err := s.db.CreateObjectTable(ctx, desc); err != nil {
		return s.fail(notify, desc.Name, err)
	}
	if err := s.db.SaveObjectConfig(ctx, desc); err != nil {
		return s.fail(notify, desc.Name, err)
	}
	if installTrigger {
		if err := s.db.AddChangeTrigger(ctx, strings.ToLower(desc.Name)); err != nil {
			return s.fail(notify, desc.Name, err)
		}
	}
	log.Infof("provisioned a mirror table for %s", desc.Name)

	notify(fmt.Sprintf("Sync started for %s", desc.Name), 0)
	batch, err := s.sf.QueryAllRecords(ctx, desc)
	if err != nil {
		return s.fail(notify, desc.Name, err)
	}
	var total int64
	for {
		n, err := s.db.InsertRows(ctx, batch)
		if err != nil {
			return s.fail(notify, desc.Name, err)
		}
		total += n
		notify(fmt.Sprintf("Sync running for %s", desc.Name), total)
		if batch.Done {
			break
		}
		if batch, err = s.sf.NextRecords(ctx, desc, batch); err != nil {
			return s.fail(notify, desc.Name, err)
		}
	}
	notify(fmt.Sprintf("Sync ended for %s", desc.Name), total)
	log.Infof("backfilled %d rows for %s", total, desc.Name)
	return nil
}

// DeleteDBObject destroys the mirror at the given listing index and
// returns the name of the object it mirrored.
func (s *Setup) DeleteDBObject(ctx context.Context, index int) (string, error) {
	cfg, err := s.localObjectAt(index)
	if err != nil {
		return "", err
	}
	if err := s.db.Destroy(ctx, cfg.ID, cfg.DBName); err != nil {
		return "", err
	}

	// The listing indexes shift after a delete.
	s.mu.Lock()
	s.mu.local = nil
	s.mu.Unlock()

	log.Infof("deleted the mirror of %s", cfg.Name)
	return cfg.Name, nil
}

func (s *Setup) fail(notify Notify, name string, err error) error {
	notify(fmt.Sprintf("Error on Object: %s %s", name, err), 0)
	return err
}

func (s *Setup) remoteObjectAt(index int) (*types.SObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.mu.remote) == 0 {
		return nil, ErrCacheNotReady
	}
	if index < 1 || index > len(s.mu.remote) {
		return nil, errors.Wrapf(ErrObjectNotFound, "index %d", index)
	}
	obj := s.mu.remote[index-1]
	return &obj, nil
}

func (s *Setup) localObjectAt(index int) (*types.ObjectConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.mu.local) == 0 {
		return nil, ErrCacheNotReady
	}
	if index < 1 || index > len(s.mu.local) {
		return nil, errors.Wrapf(ErrObjectNotFound, "index %d", index)
	}
	return s.mu.local[index-1], nil
}
