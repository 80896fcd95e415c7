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

// Package stdpool creates standardized database connection pools.
package stdpool

import (
	"context"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// OpenPgAsMirror opens a connection pool to the mirror database. The
// returned cleanup function closes the pool.
func OpenPgAsMirror(ctx context.Context, connectString string) (*types.Pool, func(), error) {
	cfg, err := pgxpool.ParseConfig(connectString)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not parse %q", connectString)
	}
	// Ensure connection diversity through long-lived loadbalancers.
	cfg.MaxConnLifetime = 10 * time.Minute
	// Keep one spare connection around for the notification listener.
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open the database pool")
	}

	ret := &types.Pool{
		Pool: pool,
		PoolInfo: types.PoolInfo{
			ConnectionString: connectString,
		},
	}
	cancel := func() {
		ret.Close()
		log.Trace("mirror pool closed")
	}

ping:
	if err := ret.Ping(ctx); err != nil {
		if isPgStartupError(err) {
			log.WithError(err).Info("waiting for database to become ready")
			select {
			case <-ctx.Done():
				cancel()
				return nil, nil, ctx.Err()
			case <-time.After(10 * time.Second):
				goto ping
			}
		}
		cancel()
		return nil, nil, errors.Wrap(err, "could not ping the database")
	}

	if err := ret.QueryRow(ctx, "SELECT VERSION();").Scan(&ret.Version); err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "could not query version")
	}
	log.Infof("Version %s.", ret.Version)

	return ret, cancel, nil
}

func isPgStartupError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// The server is up, but not yet accepting connections.
		return pgErr.Code == pgerrcode.CannotConnectNow
	}
	return false
}
