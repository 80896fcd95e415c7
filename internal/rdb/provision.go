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

	"github.com/dahateb/crm-sync/internal/sqlbuild"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CreateObjectTable implements types.Gateway. Alongside one column per
// mirrorable field, every mirror table carries a local serial id, the
// remote id, and the bookkeeping columns consulted by the sync engine.
func (g *Gateway) CreateObjectTable(ctx context.Context, sch types.ObjectSchema) error {
	return createObjectTable(ctx, g.pool, sch)
}

func createObjectTable(ctx context.Context, db types.Querier, sch types.ObjectSchema) error {
	start := time.Now()
	table := strings.ToLower(sch.ObjectName())

	b := sqlbuild.NewCreateTable("salesforce." + table).
		Column("id", "SERIAL PRIMARY KEY").
		Column("sfid", "varchar(18)")
	for _, f := range sch.FieldList() {
		if f.Name == "Id" || f.Kind == "address" {
			continue
		}
		b.Column(f.Name, sqlbuild.MapType(f.Kind, f.Length))
	}
	b.Column("_s_error", "text").
		Column("_s_state", "varchar(20) DEFAULT 'OK'").
		Column("_s_created", "timestamp DEFAULT now()").
		Column("_s_updated", "timestamp")

	if _, err := db.Exec(ctx, b.Build()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateTable {
			return &SchemaExistsError{Table: table}
		}
		return errors.Wrapf(err, "could not create the mirror table for %s", sch.ObjectName())
	}

	provisionDurations.WithLabelValues(table).Observe(time.Since(start).Seconds())
	log.WithFields(log.Fields{
		"object": sch.ObjectName(),
		"table":  table,
		"fields": len(sch.FieldList()),
	}).Info("created mirror table")
	return nil
}

// AddChangeTrigger implements types.Gateway. The trigger function is
// installed by the bootstrap script; this only attaches it to one
// table.
func (g *Gateway) AddChangeTrigger(ctx context.Context, table string) error {
	return addChangeTrigger(ctx, g.pool, table)
}

func addChangeTrigger(ctx context.Context, db types.Querier, table string) error {
	_, err := db.Exec(ctx, fmt.Sprintf(createTriggerTemplate, table))
	return errors.Wrapf(err, "could not attach the change trigger to %s", table)
}
