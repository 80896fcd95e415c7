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

// Package sqlbuild composes the DDL and DML statements used against
// the mirror database. Mirror writes interpolate pre-escaped literals
// rather than placeholders because each batch row carries its own
// column list.
package sqlbuild

import (
	"fmt"
	"strings"
)

// A CreateTable builder accumulates column definitions.
type CreateTable struct {
	table string
	cols  []string
}

// NewCreateTable returns a builder for the given qualified table name.
func NewCreateTable(table string) *CreateTable {
	return &CreateTable{table: table}
}

// Column adds a column definition. Column names are lowercased to
// match the unquoted identifiers the statements are rendered with.
func (b *CreateTable) Column(name, typ string) *CreateTable {
	b.cols = append(b.cols, strings.ToLower(name)+" "+typ)
	return b
}

// Build renders the CREATE TABLE statement.
func (b *CreateTable) Build() string {
	return "CREATE TABLE " + b.table + " (" + strings.Join(b.cols, ", ") + ")"
}

// An UpdateRow builder accumulates assignments and filters for a
// single-table UPDATE.
type UpdateRow struct {
	table string
	sets  []string
	where []string
}

// NewUpdateRow returns a builder for the given qualified table name.
func NewUpdateRow(table string) *UpdateRow {
	return &UpdateRow{table: table}
}

// Set adds an assignment. The value must already be a rendered SQL
// literal; string values are expected in their quoted, escaped form.
func (b *UpdateRow) Set(column, value string) *UpdateRow {
	b.sets = append(b.sets, strings.ToLower(column)+"="+value)
	return b
}

// Where adds a filter condition. The value is quoted and escaped by
// the builder. Multiple conditions are ANDed.
func (b *UpdateRow) Where(column, op, value string) *UpdateRow {
	b.where = append(b.where,
		column+" "+op+" "+EscapeLiteral("'"+value+"'"))
	return b
}

// Build renders the UPDATE statement. The row-touch timestamp is
// always part of the assignment list so that every update path keeps
// the bookkeeping column fresh.
func (b *UpdateRow) Build() string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(b.sets, ","))
	sb.WriteString(", _s_updated = NOW()")
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	return sb.String()
}

// EscapeLiteral doubles the embedded single quotes of s if and only if
// s is already wrapped in single quotes; any other input passes
// through unchanged. Applying it twice to a quoted literal is not
// idempotent, so values must be escaped exactly once, where they are
// rendered.
func EscapeLiteral(s string) string {
	if len(s) < 2 || !strings.HasPrefix(s, "'") || !strings.HasSuffix(s, "'") {
		return s
	}
	inner := s[1 : len(s)-1]
	return "'" + strings.ReplaceAll(inner, "'", "''") + "'"
}

// LockFlag renders the statement that sets or clears a mirror table's
// change-capture suppression flag. It must run on the same connection
// as the suppressed writes: set_config with is_local false scopes the
// setting to the session.
func LockFlag(table string, on bool) string {
	value := ""
	if on {
		value = "lock"
	}
	return fmt.Sprintf("SELECT set_config('salesforce.%s_lock', '%s', false);", table, value)
}
