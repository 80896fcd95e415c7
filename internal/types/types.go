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

// Package types contains data types and interfaces that define the
// major functional blocks of code within crm-sync. The goal of placing
// the types into this package is to make it easy to compose
// functionality as the crm-sync project evolves.
package types

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// A Field is a single column of a remote object's describe document.
// The JSON tags follow the remote service's wire names.
type Field struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Length     int    `json:"length"`
	Kind       string `json:"type"`
	Updateable bool   `json:"updateable"`
	Calculated bool   `json:"calculated"`
}

// An SObject is a remote catalog entry for a single object type. The
// Fields slice is only populated when the value originates from a
// describe call.
type SObject struct {
	Name          string  `json:"name"`
	Label         string  `json:"label"`
	Createable    bool    `json:"createable"`
	Updateable    bool    `json:"updateable"`
	Queryable     bool    `json:"queryable"`
	Layoutable    bool    `json:"layoutable"`
	CustomSetting bool    `json:"customSetting"`
	Fields        []Field `json:"fields"`
}

// ObjectName implements ObjectSchema.
func (s *SObject) ObjectName() string { return s.Name }

// FieldList implements ObjectSchema.
func (s *SObject) FieldList() []Field { return s.Fields }

// An ObjectConfig is the stored configuration row of a mirrored
// object, optionally carrying the mirror table's row count when
// produced by a listing.
type ObjectConfig struct {
	ID         int64
	Name       string // remote object name
	DBName     string // lowercased mirror table name
	Fields     []Field
	LastSyncAt time.Time
	Count      int64
}

// ObjectName implements ObjectSchema.
func (c *ObjectConfig) ObjectName() string { return c.Name }

// FieldList implements ObjectSchema.
func (c *ObjectConfig) FieldList() []Field { return c.Fields }

// DataFieldNames returns the lowercased mirror column names whose
// values can be written back to the remote service. The remote id and
// compound address fields never have mirror columns and non-updateable
// fields would be rejected by the remote API, so all three are
// excluded.
func (c *ObjectConfig) DataFieldNames() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if !f.Updateable || f.Name == "Id" || f.Kind == "address" {
			continue
		}
		out = append(out, strings.ToLower(f.Name))
	}
	return out
}

// An ObjectSchema describes a remote object's shape. It is satisfied
// both by the describe document returned from the remote service and
// by the stored mirror configuration, allowing provisioning and sync
// code to operate on either.
type ObjectSchema interface {
	ObjectName() string
	FieldList() []Field
}

var (
	_ ObjectSchema = (*SObject)(nil)
	_ ObjectSchema = (*ObjectConfig)(nil)
)

// A Row is one pre-escaped mirror row extracted from a remote query
// result. Values are SQL literals ready for interpolation: strings are
// wrapped in single quotes with embedded quotes doubled, absent values
// are the literal NULL.
type Row struct {
	Columns []string
	Values  []string
}

// A PullBatch is one page of records pulled from the remote service,
// keyed by remote id and retaining arrival order.
type PullBatch struct {
	ObjectName string // mirror table name
	IDs        []string
	Rows       map[string]Row
	NextURL    string
	Done       bool
}

// Add appends a row to the batch. The last write wins when a remote id
// repeats within a page.
func (b *PullBatch) Add(id string, row Row) {
	if b.Rows == nil {
		b.Rows = make(map[string]Row)
	}
	if _, dup := b.Rows[id]; !dup {
		b.IDs = append(b.IDs, id)
	}
	b.Rows[id] = row
}

// Len returns the number of distinct rows in the batch.
func (b *PullBatch) Len() int { return len(b.IDs) }

// LoginData is the token grant returned by the remote login service.
type LoginData struct {
	AccessToken string     `json:"access_token"`
	InstanceURL string     `json:"instance_url"`
	ID          string     `json:"id"`
	TokenType   string     `json:"token_type"`
	IssuedAt    UnixMillis `json:"issued_at"`
	Signature   string     `json:"signature"`
}

// UnixMillis is a millisecond timestamp that the login service encodes
// as a decimal string. Bare numbers are accepted as well.
type UnixMillis int64

// Time returns the timestamp as a time.Time in UTC.
func (m UnixMillis) Time() time.Time { return time.UnixMilli(int64(m)).UTC() }

// UnmarshalJSON implements json.Unmarshaler.
func (m *UnixMillis) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "cannot parse timestamp %q", s)
	}
	*m = UnixMillis(v)
	return nil
}

// A SorClient talks to the remote system of record. Implementations
// must be safe for concurrent use.
type SorClient interface {
	// ListObjects returns the mirrorable subset of the remote catalog.
	ListObjects(ctx context.Context) ([]SObject, error)

	// DescribeObject returns the full field list for a named object.
	DescribeObject(ctx context.Context, name string) (*SObject, error)

	// QueryAllRecords starts an unfiltered pull of every record of the
	// object, returning the first page.
	QueryAllRecords(ctx context.Context, sch ObjectSchema) (*PullBatch, error)

	// QueryUpdatedRecords starts a pull of records modified within the
	// trailing window, returning the first page.
	QueryUpdatedRecords(ctx context.Context, sch ObjectSchema, window time.Duration) (*PullBatch, error)

	// NextRecords fetches the page following prev. Calling it when
	// prev.Done is set is an error.
	NextRecords(ctx context.Context, sch ObjectSchema, prev *PullBatch) (*PullBatch, error)

	// PushRecords writes locally-changed rows back to the remote
	// service, one call per record. Rows that carry a remote id are
	// updated in place; rows without one are created. The returned
	// maps are keyed by local row id: created holds newly-assigned
	// remote ids, failed holds the per-record errors.
	PushRecords(ctx context.Context, objectName string, recs []*Record) (created map[int64]string, failed map[int64]error)

	// LoginData returns the current token grant, or nil before the
	// first successful login.
	LoginData() *LoginData
}

// A Gateway mediates all access to the mirror database. Implementations
// must be safe for concurrent use.
type Gateway interface {
	// SaveObjectConfig records a newly-provisioned object.
	SaveObjectConfig(ctx context.Context, sch ObjectSchema) error

	// GetObjectConfig looks up a stored configuration by remote or
	// mirror-table name. It returns nil without error when the object
	// has not been provisioned.
	GetObjectConfig(ctx context.Context, name string) (*ObjectConfig, error)

	// ListSelectedObjects returns the configurations whose last sync
	// time is older than the given number of minutes, with mirror row
	// counts attached. A negative interval returns every configuration.
	ListSelectedObjects(ctx context.Context, intervalMinutes int) ([]*ObjectConfig, error)

	// UpdateLastSyncTime advances an object's high-water mark to now.
	UpdateLastSyncTime(ctx context.Context, id int64) error

	// CreateObjectTable creates the mirror table for the schema. A
	// SchemaExistsError is returned when the table already exists.
	CreateObjectTable(ctx context.Context, sch ObjectSchema) error

	// AddChangeTrigger attaches the change-capture trigger to the
	// mirror table.
	AddChangeTrigger(ctx context.Context, table string) error

	// UpsertRows applies a batch by updating rows matched on remote id
	// and inserting the rest. It returns the number of rows written.
	UpsertRows(ctx context.Context, batch *PullBatch) (int64, error)

	// InsertRows inserts every row of the batch without matching.
	InsertRows(ctx context.Context, batch *PullBatch) (int64, error)

	// RowsByID loads mirror rows by local id, decoded for push.
	RowsByID(ctx context.Context, table string, ids []int64) ([]*Record, error)

	// UpdateRemoteIDs stores newly-assigned remote ids, keyed by local
	// row id.
	UpdateRemoteIDs(ctx context.Context, table string, ids map[int64]string) error

	// SetErrorState marks a mirror row that the remote service
	// rejected.
	SetErrorState(ctx context.Context, table string, id int64, message string) error

	// ToggleListen acquires or releases the dedicated notification
	// connection.
	ToggleListen(ctx context.Context, on bool) error

	// DrainNotifications returns the change notifications buffered
	// since the previous call without blocking for new ones.
	DrainNotifications(ctx context.Context) ([]string, error)

	// Destroy drops an object's mirror table and deletes its
	// configuration.
	Destroy(ctx context.Context, id int64, table string) error
}

// Querier is implemented by pgxpool.Pool, pgxpool.Conn, pgxpool.Tx,
// pgx.Conn, and pgx.Tx types. This allows a degree of flexibility in
// defining types that require a database connection.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...interface{}) pgx.Row
}

var (
	_ Querier = (*pgxpool.Conn)(nil)
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (*pgxpool.Tx)(nil)
	_ Querier = (*pgx.Conn)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// PoolInfo describes a database connection pool and what it's
// connected to.
type PoolInfo struct {
	ConnectionString string
	Version          string
}

// Info returns the PoolInfo when embedded.
func (i *PoolInfo) Info() *PoolInfo { return i }

// Pool is an injection point for the connection to the mirror
// database.
type Pool struct {
	*pgxpool.Pool
	PoolInfo
	_ noCopy
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
