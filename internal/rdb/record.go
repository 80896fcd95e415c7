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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RowsByID implements types.Gateway. Only the columns that are pushable
// to the system of record are selected; the bookkeeping columns stay
// local.
func (g *Gateway) RowsByID(ctx context.Context, table string, ids []int64) ([]*types.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cfg, err := g.GetObjectConfig(ctx, table)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.Errorf("no mirror is configured for table %s", table)
	}

	fields := strings.Join(cfg.DataFieldNames(), ", ")
	rows, err := g.pool.Query(ctx, fmt.Sprintf(rowsByIDTemplate, fields, cfg.DBName), ids)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read rows from %s", table)
	}
	defer rows.Close()

	recs, skipped, err := decodeRecords(rows)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		emptyRecordsSkipped.WithLabelValues(cfg.DBName).Add(float64(skipped))
		log.Debugf("ignored %d empty rows in %s", skipped, table)
	}
	return recs, nil
}

// decodeRecords expects the column layout produced by rowsByIDTemplate:
// the serial id first, the remote id second, data columns after that.
func decodeRecords(rows pgx.Rows) ([]*types.Record, int, error) {
	var recs []*types.Record
	var skipped int
	fds := rows.FieldDescriptions()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, skipped, errors.Wrap(err, "could not decode a mirror row")
		}
		rec := &types.Record{}
		for i, v := range vals {
			switch i {
			case 0:
				id, err := asInt64(v)
				if err != nil {
					return nil, skipped, err
				}
				rec.ID = id
			case 1:
				if s, ok := v.(string); ok {
					rec.SFID = s
				}
			default:
				rec.Fields = append(rec.Fields, types.RecordField{
					Column: fds[i].Name,
					Value:  decodeValue(fds[i].DataTypeOID, v),
				})
			}
		}
		// Rows holding nothing but their serial id carry no payload
		// worth pushing. They do show up: an application INSERT of
		// defaults fires the trigger all the same.
		if rec.Empty() {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	return recs, skipped, errors.Wrap(rows.Err(), "could not read mirror rows")
}

// asInt64 widens the serial id column. The column is declared SERIAL,
// so the driver hands back an int32 today; BIGSERIAL migrations would
// hand back an int64.
func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	default:
		return 0, errors.Errorf("unexpected id column type %T", v)
	}
}

// decodeValue maps a driver value onto the wire representation the
// system of record accepts. Dates must not pick up a time component.
func decodeValue(oid uint32, v interface{}) types.Value {
	switch t := v.(type) {
	case nil:
		return types.NullValue()
	case int32:
		return types.Int32Value(t)
	case int64:
		return types.Int64Value(t)
	case float32:
		return types.Float32Value(t)
	case float64:
		return types.Float64Value(t)
	case bool:
		return types.BoolValue(t)
	case string:
		return types.StringValue(t)
	case time.Time:
		if oid == pgtype.DateOID {
			return types.StringValue(t.Format("2006-01-02"))
		}
		return types.StringValue(t.UTC().Format(time.RFC3339))
	default:
		return types.StringValue(fmt.Sprint(t))
	}
}
