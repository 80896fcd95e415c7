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

package setup

import (
	"context"
	"testing"

	"github.com/dahateb/crm-sync/internal/mirrortest"
	"github.com/dahateb/crm-sync/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progress struct {
	text  string
	count int64
}

func collector(got *[]progress) Notify {
	return func(text string, count int64) {
		*got = append(*got, progress{text, count})
	}
}

func accountSchema() *types.SObject {
	return &types.SObject{
		Name:       "Account",
		Label:      "Account",
		Createable: true,
		Queryable:  true,
		Layoutable: true,
		Fields: []types.Field{
			{Name: "Id", Kind: "id", Length: 18},
			{Name: "Name", Kind: "string", Length: 80, Updateable: true},
			{Name: "AnnualRevenue", Kind: "currency", Updateable: true},
		},
	}
}

func catalog() []types.SObject {
	return []types.SObject{
		{Name: "Account", Label: "Account", Createable: true},
		{Name: "Contact", Label: "Contact", Createable: true},
	}
}

func backfillPages() []*types.PullBatch {
	first := &types.PullBatch{ObjectName: "account", NextURL: "/next/1"}
	first.Add("001A", types.Row{Columns: []string{"sfid"}, Values: []string{"'001A'"}})
	first.Add("001B", types.Row{Columns: []string{"sfid"}, Values: []string{"'001B'"}})
	second := &types.PullBatch{ObjectName: "account", Done: true}
	second.Add("001C", types.Row{Columns: []string{"sfid"}, Values: []string{"'001C'"}})
	return []*types.PullBatch{first, second}
}

func TestListRemoteObjects(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{Name: "Account"})
	s := New(&mirrortest.Sor{Objects: catalog()}, db)

	var got []RemoteObjectEntry
	r.NoError(s.ListRemoteObjects(ctx, func(e RemoteObjectEntry) {
		got = append(got, e)
	}))
	r.Len(got, 2)
	a.Equal(RemoteObjectEntry{
		Num: 1, Name: "Account", Label: "Account", Createable: true, Synched: true,
	}, got[0])
	a.Equal(RemoteObjectEntry{
		Num: 2, Name: "Contact", Label: "Contact", Createable: true,
	}, got[1])
}

func TestListDBObjects(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{
		Name:   "Account",
		Count:  5,
		Fields: accountSchema().Fields,
	})
	s := New(&mirrortest.Sor{}, db)

	var got []DBObjectEntry
	r.NoError(s.ListDBObjects(ctx, func(e DBObjectEntry) {
		got = append(got, e)
	}))
	r.Len(got, 1)
	a.Equal(DBObjectEntry{Num: 1, Name: "Account", Count: 5, NumFields: 3}, got[0])
}

func TestProvisionFlow(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	sf := &mirrortest.Sor{
		Objects:   catalog(),
		Described: map[string]*types.SObject{"Account": accountSchema()},
		Pages:     map[string][]*types.PullBatch{"Account": backfillPages()},
	}
	db := &mirrortest.Gateway{}
	s := New(sf, db)

	r.NoError(s.ListRemoteObjects(ctx, func(RemoteObjectEntry) {}))

	var got []progress
	r.NoError(s.ProvisionRemoteObject(ctx, 1, true, collector(&got)))

	a.Equal([]string{"Account"}, sf.DescribeCalls)
	a.Equal([]string{"account"}, db.Tables)
	a.Equal([]string{"account"}, db.Triggers)
	cfg, err := db.GetObjectConfig(ctx, "Account")
	r.NoError(err)
	r.NotNil(cfg)
	a.Len(cfg.Fields, 3)

	// Both pages landed through the backfill path.
	r.Len(db.Inserted["account"], 2)
	a.Nil(db.Upserted["account"])

	a.Equal([]progress{
		{"Selected Object: Account", 0},
		{"Sync started for Account", 0},
		{"Sync running for Account", 2},
		{"Sync running for Account", 3},
		{"Sync ended for Account", 3},
	}, got)
}

func TestProvisionWithoutTrigger(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	sf := &mirrortest.Sor{
		Objects:   catalog(),
		Described: map[string]*types.SObject{"Account": accountSchema()},
		Pages:     map[string][]*types.PullBatch{"Account": backfillPages()},
	}
	db := &mirrortest.Gateway{}
	s := New(sf, db)
	r.NoError(s.ListRemoteObjects(ctx, func(RemoteObjectEntry) {}))

	// The mirror still fills, but no change trigger is installed, so
	// local edits stay local.
	r.NoError(s.ProvisionRemoteObject(ctx, 1, false, nil))
	a.Equal([]string{"account"}, db.Tables)
	a.Empty(db.Triggers)
	r.Len(db.Inserted["account"], 2)
}

func TestProvisionIndexChecks(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	s := New(&mirrortest.Sor{Objects: catalog()}, &mirrortest.Gateway{})

	// Indexes have no meaning before a listing.
	err := s.ProvisionRemoteObject(ctx, 1, true, nil)
	r.ErrorIs(err, ErrCacheNotReady)
	r.EqualError(err, "cache not setup")

	r.NoError(s.ListRemoteObjects(ctx, func(RemoteObjectEntry) {}))
	r.ErrorIs(s.ProvisionRemoteObject(ctx, 3, true, nil), ErrObjectNotFound)
	r.ErrorIs(s.ProvisionRemoteObject(ctx, 0, true, nil), ErrObjectNotFound)
}

func TestProvisionFailureNotifies(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	sf := &mirrortest.Sor{
		Objects:   catalog(),
		Described: map[string]*types.SObject{"Account": accountSchema()},
	}
	db := &mirrortest.Gateway{
		CreateTableErr: errors.New("mirror table account already exists"),
	}
	s := New(sf, db)
	r.NoError(s.ListRemoteObjects(ctx, func(RemoteObjectEntry) {}))

	var got []progress
	err := s.ProvisionRemoteObject(ctx, 1, true, collector(&got))
	r.Error(err)

	last := got[len(got)-1]
	a.Contains(last.text, "Error on Object: Account")
	a.Contains(last.text, "exists")
}

func TestRemoteObjectExists(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{Name: "Account"})
	s := New(&mirrortest.Sor{Objects: catalog()}, db)

	_, err := s.RemoteObjectExists(ctx, 1)
	r.ErrorIs(err, ErrCacheNotReady)

	r.NoError(s.ListRemoteObjects(ctx, func(RemoteObjectEntry) {}))
	exists, err := s.RemoteObjectExists(ctx, 1)
	r.NoError(err)
	a.True(exists)
	exists, err = s.RemoteObjectExists(ctx, 2)
	r.NoError(err)
	a.False(exists)
}

func TestDeleteDBObject(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx := context.Background()

	db := &mirrortest.Gateway{}
	db.Seed(&types.ObjectConfig{Name: "Account"})
	s := New(&mirrortest.Sor{}, db)

	r.NoError(s.ListDBObjects(ctx, func(DBObjectEntry) {}))
	name, err := s.DeleteDBObject(ctx, 1)
	r.NoError(err)
	a.Equal("Account", name)
	a.Equal([]string{"account"}, db.Destroyed)

	// The cached indexes are stale after a delete.
	_, err = s.DeleteDBObject(ctx, 1)
	r.ErrorIs(err, ErrCacheNotReady)
}
