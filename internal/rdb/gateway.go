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

// Package rdb mediates all access to the mirror database: the
// provisioning ledger in the config schema, the per-object mirror
// tables in the salesforce schema, and the notification channel that
// carries local changes back out.
//
// Mirror table names are produced by provisioning (lowercased remote
// names) and are interpolated into statements directly; everything
// else travels as a placeholder or as a pre-escaped literal.
package rdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/dahateb/crm-sync/internal/sqlbuild"
	"github.com/dahateb/crm-sync/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// A SchemaExistsError is returned when provisioning encounters a
// mirror table that already exists.
type SchemaExistsError struct {
	Table string
}

func (e *SchemaExistsError) Error() string {
	return fmt.Sprintf("mirror table %s already exists", e.Table)
}

// IsSchemaExists returns the error if it reports an existing mirror
// table.
func IsSchemaExists(err error) (exists *SchemaExistsError, ok bool) {
	return exists, errors.As(err, &exists)
}

// Gateway implements types.Gateway over a pgx pool. Writes to mirror
// tables run on a single acquired connection so that the table's
// change-suppression flag is visible to the trigger that would
// otherwise echo the write back out.
type Gateway struct {
	pool *types.Pool

	listen struct {
		sync.Mutex
		conn *pgxpool.Conn // pinned while listening
	}
}

var _ types.Gateway = (*Gateway)(nil)

// New constructs a Gateway over the pool.
func New(pool *types.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// withTableLock brackets fn with the mirror table's change-suppression
// flag. db must be a single connection: the flag is a session setting.
// The flag is cleared even when the surrounding context has been
// canceled, so a pooled connection can never escape with suppression
// still active.
func withTableLock(ctx context.Context, db types.Querier, table string, fn func() error) error {
	if _, err := db.Exec(ctx, sqlbuild.LockFlag(table, true)); err != nil {
		return errors.Wrapf(err, "could not set the change-suppression flag for %s", table)
	}
	defer func() {
		clearCtx := context.WithoutCancel(ctx)
		if _, err := db.Exec(clearCtx, sqlbuild.LockFlag(table, false)); err != nil {
			log.WithError(err).Warnf("could not clear the change-suppression flag for %s", table)
		}
	}()
	return fn()
}
