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

package sor

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dahateb/crm-sync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountSchema = &types.SObject{
	Name: "Account",
	Fields: []types.Field{
		{Name: "Id", Kind: "id", Length: 18},
		{Name: "Name", Kind: "string", Length: 255, Updateable: true},
		{Name: "AnnualRevenue", Kind: "currency", Updateable: true},
		{Name: "NumberOfEmployees", Kind: "int", Updateable: true},
		{Name: "IsDeleted", Kind: "boolean"},
		{Name: "BillingAddress", Kind: "address"},
	},
}

func TestListObjects(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, mux := newTestClient(t)
	mux.HandleFunc("/services/data/v46.0/sobjects", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"encoding":"UTF-8","sobjects":[
  {"name":"Account","label":"Account","createable":true,"queryable":true,"layoutable":true,"customSetting":false},
  {"name":"My_Setting__c","label":"My Setting","createable":false,"queryable":true,"layoutable":false,"customSetting":true},
  {"name":"AccountHistory","label":"Account History","createable":false,"queryable":true,"layoutable":false,"customSetting":false},
  {"name":"CaseStatus","label":"Case Status","createable":false,"queryable":true,"layoutable":true,"customSetting":false}
]}`)
	})
	r.NoError(c.Connect(context.Background()))

	objs, err := c.ListObjects(context.Background())
	r.NoError(err)
	r.Len(objs, 2)
	a.Equal("Account", objs[0].Name)
	a.Equal("My_Setting__c", objs[1].Name)
}

func TestDescribeObject(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, mux := newTestClient(t)
	mux.HandleFunc("/services/data/v46.0/sobjects/Account/describe",
		func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprint(w, `{"name":"Account","label":"Account","createable":true,
  "fields":[
    {"name":"Id","label":"Account ID","type":"id","length":18,"updateable":false,"calculated":false},
    {"name":"Name","label":"Account Name","type":"string","length":255,"updateable":true,"calculated":false}
  ]}`)
		})
	r.NoError(c.Connect(context.Background()))

	obj, err := c.DescribeObject(context.Background(), "Account")
	r.NoError(err)
	a.Equal("Account", obj.Name)
	r.Len(obj.Fields, 2)
	a.Equal("id", obj.Fields[0].Kind)
	a.True(obj.Fields[1].Updateable)
}

func TestQueryPagination(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	c, mux := newTestClient(t)
	var firstQuery string
	mux.HandleFunc("/services/data/v46.0/query/", func(w http.ResponseWriter, req *http.Request) {
		firstQuery = req.URL.RawQuery
		fmt.Fprint(w, `{"totalSize":3,"done":false,
  "nextRecordsUrl":"/services/data/v46.0/query/01g000-2000",
  "records":[
    {"attributes":{"type":"Account"},"Id":"001A","Name":"One","AnnualRevenue":10.5,"NumberOfEmployees":3,"IsDeleted":false},
    {"attributes":{"type":"Account"},"Id":"001B","Name":null,"AnnualRevenue":null,"NumberOfEmployees":null,"IsDeleted":true}
  ]}`)
	})
	mux.HandleFunc("/services/data/v46.0/query/01g000-2000", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"totalSize":3,"done":true,
  "records":[
    {"attributes":{"type":"Account"},"Id":"001C","Name":"Three","AnnualRevenue":1,"NumberOfEmployees":0,"IsDeleted":false}
  ]}`)
	})
	r.NoError(c.Connect(context.Background()))

	batch, err := c.QueryUpdatedRecords(context.Background(), accountSchema, time.Minute)
	r.NoError(err)
	a.Contains(firstQuery, "SELECT+Id,Name,AnnualRevenue,NumberOfEmployees,IsDeleted,BillingAddress+FROM+Account")
	a.Contains(firstQuery, "+WHERE+lastmodifieddate>")
	a.False(batch.Done)
	a.Equal("account", batch.ObjectName)
	a.Equal(2, batch.Len())
	a.Equal("/services/data/v46.0/query/01g000-2000", batch.NextURL)

	next, err := c.NextRecords(context.Background(), accountSchema, batch)
	r.NoError(err)
	a.True(next.Done)
	a.Equal([]string{"001C"}, next.IDs)

	_, err = c.NextRecords(context.Background(), accountSchema, next)
	a.ErrorContains(err, "already complete")

	// An unfiltered pull carries no WHERE clause.
	_, err = c.QueryAllRecords(context.Background(), accountSchema)
	r.NoError(err)
	a.NotContains(firstQuery, "WHERE")
}

func TestParseBatch(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	batch, err := parseBatch(accountSchema, `{"done":true,"records":[
  {"Id":"001A","Name":"O'Brien & Co","AnnualRevenue":1000000.5,"NumberOfEmployees":42,"IsDeleted":false,
   "BillingAddress":{"city":"Rome"}},
  {"Id":"001B"},
  {"Name":"no id, dropped"}
]}`)
	r.NoError(err)
	a.True(batch.Done)
	a.Equal([]string{"001A", "001B"}, batch.IDs)

	row := batch.Rows["001A"]
	// The remote id lands in the sfid column; the address column is
	// dropped entirely.
	a.Equal([]string{"sfid", "name", "annualrevenue", "numberofemployees", "isdeleted"},
		row.Columns)
	a.Equal([]string{"'001A'", "'O''Brien & Co'", "1000000.5", "42", "false"},
		row.Values)

	// Missing fields become NULL literals.
	row = batch.Rows["001B"]
	a.Equal([]string{"'001B'", "NULL", "NULL", "NULL", "NULL"}, row.Values)
}

func TestSQLValue(t *testing.T) {
	a := assert.New(t)

	a.Equal("NULL", sqlValue(nil))
	a.Equal("'x'", sqlValue("x"))
	a.Equal("'it''s'", sqlValue("it's"))
	a.Equal("true", sqlValue(true))
	a.Equal("1", sqlValue(float64(1)))
	a.Equal("10.25", sqlValue(10.25))
	a.Equal("NULL", sqlValue(map[string]interface{}{"city": "Rome"}))
}
