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
	"fmt"
	"strings"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SaveObjectConfig implements types.Gateway.
func (g *Gateway) SaveObjectConfig(ctx context.Context, sch types.ObjectSchema) error {
	return saveObjectConfig(ctx, g.pool, sch)
}

func saveObjectConfig(ctx context.Context, db types.Querier, sch types.ObjectSchema) error {
	fields, err := json.Marshal(sch.FieldList())
	if err != nil {
		return errors.Wrap(err, "could not encode the field list")
	}
	name := sch.ObjectName()
	_, err = db.Exec(ctx, saveObjectTemplate, name, strings.ToLower(name), string(fields))
	return errors.Wrapf(err, "could not save the configuration for %s", name)
}

// GetObjectConfig implements types.Gateway.
func (g *Gateway) GetObjectConfig(ctx context.Context, name string) (*types.ObjectConfig, error) {
	return getObjectConfig(ctx, g.pool, name)
}

func getObjectConfig(ctx context.Context, db types.Querier, name string) (*types.ObjectConfig, error) {
	cfg, err := scanObjectConfig(db.QueryRow(ctx, getObjectTemplate, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cfg, err
}

// ListSelectedObjects implements types.Gateway.
func (g *Gateway) ListSelectedObjects(
	ctx context.Context, intervalMinutes int,
) ([]*types.ObjectConfig, error) {
	return listSelectedObjects(ctx, g.pool, intervalMinutes)
}

func listSelectedObjects(
	ctx context.Context, db types.Querier, intervalMinutes int,
) ([]*types.ObjectConfig, error) {
	rows, err := db.Query(ctx, selectObjectsTemplate, intervalMinutes)
	if err != nil {
		return nil, errors.Wrap(err, "could not list configured objects")
	}
	defer rows.Close()

	var out []*types.ObjectConfig
	for rows.Next() {
		cfg, err := scanObjectConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	rows.Close()

	for _, cfg := range out {
		if err := db.QueryRow(ctx,
			fmt.Sprintf(countRowsTemplate, cfg.DBName)).Scan(&cfg.Count); err != nil {
			return nil, errors.Wrapf(err, "could not count rows of %s", cfg.DBName)
		}
	}
	log.Tracef("%d configured objects selected at interval %d", len(out), intervalMinutes)
	return out, nil
}

// scanObjectConfig decodes one ledger row. The field list is stored as
// the JSON the remote describe call produced.
func scanObjectConfig(row pgx.Row) (*types.ObjectConfig, error) {
	cfg := &types.ObjectConfig{}
	var fields string
	var lastSync time.Time
	if err := row.Scan(&cfg.ID, &cfg.Name, &cfg.DBName, &fields, &lastSync); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "could not decode a configuration row")
	}
	cfg.LastSyncAt = lastSync
	if err := json.Unmarshal([]byte(fields), &cfg.Fields); err != nil {
		return nil, errors.Wrapf(err, "corrupt field list stored for %s", cfg.Name)
	}
	return cfg, nil
}

// UpdateLastSyncTime implements types.Gateway.
func (g *Gateway) UpdateLastSyncTime(ctx context.Context, id int64) error {
	_, err := g.pool.Exec(ctx, touchSyncTimeTemplate, id)
	return errors.Wrapf(err, "could not advance the high-water mark of config %d", id)
}

// Destroy implements types.Gateway. The mirror table goes first; if
// the drop fails the configuration row survives for a retry.
func (g *Gateway) Destroy(ctx context.Context, id int64, table string) error {
	return destroyObject(ctx, g.pool, id, table)
}

func destroyObject(ctx context.Context, db types.Querier, id int64, table string) error {
	if _, err := db.Exec(ctx, fmt.Sprintf(dropTableTemplate, table)); err != nil {
		return errors.Wrapf(err, "could not drop the mirror table %s", table)
	}
	if _, err := db.Exec(ctx, deleteObjectTemplate, id); err != nil {
		return errors.Wrapf(err, "could not delete the configuration for %s", table)
	}
	log.Infof("destroyed mirror of %s", table)
	return nil
}
