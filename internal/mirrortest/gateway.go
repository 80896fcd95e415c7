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

package mirrortest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
)

// RowError is one recorded SetErrorState call.
type RowError struct {
	ID      int64
	Message string
}

// Gateway is an in-memory types.Gateway backed by maps. Configure the
// exported fields, then hand it to the code under test. The zero value
// is usable.
type Gateway struct {
	mu struct {
		sync.Mutex
		nextID  int64
		configs []*types.ObjectConfig
	}

	// Tables tracks created mirror tables; Triggers the tables that
	// received the change trigger.
	Tables   []string
	Triggers []string
	// Inserted and Upserted record the applied batches by object name.
	Inserted map[string][]*types.PullBatch
	Upserted map[string][]*types.PullBatch
	// Records serves RowsByID, keyed by table name.
	Records map[string][]*types.Record
	// RemoteIDs records UpdateRemoteIDs calls, keyed by table.
	RemoteIDs map[string]map[int64]string
	// Flagged records SetErrorState calls, keyed by table.
	Flagged map[string][]RowError
	// Notifications is drained, and cleared, by DrainNotifications
	// while listening.
	Notifications []string
	Listening     bool
	// Touched records UpdateLastSyncTime calls.
	Touched []int64
	// Destroyed records Destroy calls by table name.
	Destroyed []string

	// Injectable failures.
	CreateTableErr error
	SaveErr        error
	GetErr         error
	ListErr        error
	InsertErr      error
	UpsertErr      error
	RowsErr        error
	ListenErr      error
	DrainErr       error
	DestroyErr     error
}

var _ types.Gateway = (*Gateway)(nil)

// Seed stores a ready-made configuration row, bypassing the
// provisioning sequence.
func (g *Gateway) Seed(cfg *types.ObjectConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cfg.ID == 0 {
		g.mu.nextID++
		cfg.ID = g.mu.nextID
	}
	if cfg.DBName == "" {
		cfg.DBName = strings.ToLower(cfg.Name)
	}
	g.mu.configs = append(g.mu.configs, cfg)
}

// SaveObjectConfig implements types.Gateway.
func (g *Gateway) SaveObjectConfig(ctx context.Context, sch types.ObjectSchema) error {
	if g.SaveErr != nil {
		return g.SaveErr
	}
	g.Seed(&types.ObjectConfig{
		Name:   sch.ObjectName(),
		Fields: sch.FieldList(),
	})
	return nil
}

// GetObjectConfig implements types.Gateway.
func (g *Gateway) GetObjectConfig(
	ctx context.Context, name string,
) (*types.ObjectConfig, error) {
	if g.GetErr != nil {
		return nil, g.GetErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	name = strings.ToLower(name)
	for _, cfg := range g.mu.configs {
		if cfg.DBName == name {
			return cfg, nil
		}
	}
	return nil, nil
}

// ListSelectedObjects implements types.Gateway.
func (g *Gateway) ListSelectedObjects(
	ctx context.Context, intervalMinutes int,
) ([]*types.ObjectConfig, error) {
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*types.ObjectConfig
	cutoff := time.Now().Add(-time.Duration(intervalMinutes) * time.Minute)
	for _, cfg := range g.mu.configs {
		if intervalMinutes < 0 || cfg.LastSyncAt.Before(cutoff) {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// UpdateLastSyncTime implements types.Gateway.
func (g *Gateway) UpdateLastSyncTime(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Touched = append(g.Touched, id)
	for _, cfg := range g.mu.configs {
		if cfg.ID == id {
			cfg.LastSyncAt = time.Now()
		}
	}
	return nil
}

// CreateObjectTable implements types.Gateway.
func (g *Gateway) CreateObjectTable(ctx context.Context, sch types.ObjectSchema) error {
	if g.CreateTableErr != nil {
		return g.CreateTableErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	table := strings.ToLower(sch.ObjectName())
	for _, t := range g.Tables {
		if t == table {
			return errors.Errorf("mirror table %s already exists", table)
		}
	}
	g.Tables = append(g.Tables, table)
	return nil
}

// AddChangeTrigger implements types.Gateway.
func (g *Gateway) AddChangeTrigger(ctx context.Context, table string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Triggers = append(g.Triggers, table)
	return nil
}

// UpsertRows implements types.Gateway.
func (g *Gateway) UpsertRows(ctx context.Context, batch *types.PullBatch) (int64, error) {
	if g.UpsertErr != nil {
		return 0, g.UpsertErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Upserted == nil {
		g.Upserted = make(map[string][]*types.PullBatch)
	}
	g.Upserted[batch.ObjectName] = append(g.Upserted[batch.ObjectName], batch)
	return int64(batch.Len()), nil
}

// InsertRows implements types.Gateway.
func (g *Gateway) InsertRows(ctx context.Context, batch *types.PullBatch) (int64, error) {
	if g.InsertErr != nil {
		return 0, g.InsertErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Inserted == nil {
		g.Inserted = make(map[string][]*types.PullBatch)
	}
	g.Inserted[batch.ObjectName] = append(g.Inserted[batch.ObjectName], batch)
	return int64(batch.Len()), nil
}

// RowsByID implements types.Gateway.
func (g *Gateway) RowsByID(
	ctx context.Context, table string, ids []int64,
) ([]*types.Record, error) {
	if g.RowsErr != nil {
		return nil, g.RowsErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*types.Record
	for _, rec := range g.Records[table] {
		if want[rec.ID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UpdateRemoteIDs implements types.Gateway.
func (g *Gateway) UpdateRemoteIDs(
	ctx context.Context, table string, ids map[int64]string,
) error {
	if len(ids) == 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RemoteIDs == nil {
		g.RemoteIDs = make(map[string]map[int64]string)
	}
	if g.RemoteIDs[table] == nil {
		g.RemoteIDs[table] = make(map[int64]string)
	}
	for id, sfid := range ids {
		g.RemoteIDs[table][id] = sfid
	}
	return nil
}

// SetErrorState implements types.Gateway.
func (g *Gateway) SetErrorState(
	ctx context.Context, table string, id int64, message string,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Flagged == nil {
		g.Flagged = make(map[string][]RowError)
	}
	g.Flagged[table] = append(g.Flagged[table], RowError{ID: id, Message: message})
	return nil
}

// ToggleListen implements types.Gateway.
func (g *Gateway) ToggleListen(ctx context.Context, on bool) error {
	if g.ListenErr != nil {
		return g.ListenErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Listening = on
	return nil
}

// DrainNotifications implements types.Gateway.
func (g *Gateway) DrainNotifications(ctx context.Context) ([]string, error) {
	if g.DrainErr != nil {
		return nil, g.DrainErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.Listening {
		return nil, nil
	}
	out := g.Notifications
	g.Notifications = nil
	return out, nil
}

// Destroy implements types.Gateway.
func (g *Gateway) Destroy(ctx context.Context, id int64, table string) error {
	if g.DestroyErr != nil {
		return g.DestroyErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Destroyed = append(g.Destroyed, table)
	kept := g.mu.configs[:0]
	for _, cfg := range g.mu.configs {
		if cfg.ID != id {
			kept = append(kept, cfg)
		}
	}
	g.mu.configs = kept
	return nil
}
