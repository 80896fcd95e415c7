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

package types

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// A Value is a scalar decoded from a mirror column. The zero value is
// SQL NULL. Construct non-null values with the typed constructors so
// that the contained type stays within the supported scalar set.
type Value struct {
	v interface{}
}

// NullValue returns the SQL NULL value.
func NullValue() Value { return Value{} }

// Int32Value wraps an int32.
func Int32Value(v int32) Value { return Value{v} }

// Int64Value wraps an int64.
func Int64Value(v int64) Value { return Value{v} }

// Float32Value wraps a float32.
func Float32Value(v float32) Value { return Value{v} }

// Float64Value wraps a float64.
func Float64Value(v float64) Value { return Value{v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{v} }

// StringValue wraps a string. Temporal columns are decoded to their
// ISO-8601 string forms before wrapping.
func StringValue(v string) Value { return Value{v} }

// IsNull returns true for the SQL NULL value.
func (v Value) IsNull() bool { return v.v == nil }

// Interface returns the contained scalar, or nil for NULL.
func (v Value) Interface() interface{} { return v.v }

// MarshalJSON implements json.Marshaler. Scalars are rendered inline
// and NULL becomes the JSON null literal.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// A RecordField pairs a mirror column with its decoded value.
type RecordField struct {
	Column string
	Value  Value
}

// A Record is one mirror row loaded for push to the remote service.
// Fields holds only the data columns; the local id, remote id, and
// bookkeeping columns are not part of the pushed payload.
type Record struct {
	ID     int64
	SFID   string // empty when the row has not been assigned a remote id
	Fields []RecordField
}

// Empty reports whether the record carries nothing worth pushing: no
// remote id and every data column NULL.
func (r *Record) Empty() bool {
	if r.SFID != "" {
		return false
	}
	for _, f := range r.Fields {
		if !f.Value.IsNull() {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler. The data columns are rendered
// as a single object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
