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

package sqlbuild

import "fmt"

// MapType translates a remote field type and declared length into a
// mirror column type. Every input maps to something; unknown remote
// types degrade to varchar so that a catalog addition upstream cannot
// break provisioning.
func MapType(kind string, length int) string {
	switch kind {
	case "id", "string", "picklist":
		switch {
		case length > 255:
			return "text"
		case length > 0:
			return fmt.Sprintf("varchar(%d)", length)
		default:
			return "varchar"
		}
	case "double", "currency", "percent":
		return "double precision"
	case "int":
		return "integer"
	case "datetime":
		return "timestamp"
	case "date":
		return "date"
	case "boolean":
		return "boolean"
	default:
		return "varchar"
	}
}
