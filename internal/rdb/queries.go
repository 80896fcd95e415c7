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

// The statements against the provisioning ledger and the mirror
// tables. %s placeholders carry identifiers that originate inside this
// process; $N placeholders carry user data.
const (
	// $1 remote name, $2 mirror table name, $3 field list as JSON
	saveObjectTemplate = `INSERT INTO config.objects (name, db_name, fields, last_sync_time) VALUES ($1, $2, $3, now())`

	// $1 remote or mirror table name
	getObjectTemplate = `SELECT id, name, db_name, fields, last_sync_time FROM config.objects WHERE db_name = lower($1)`

	// $1 staleness threshold in minutes; negative values select
	// everything
	selectObjectsTemplate = `SELECT id, name, db_name, fields, last_sync_time FROM config.objects WHERE last_sync_time < now() - interval '1 minute' * $1 ORDER BY id`

	// $1 config row id
	touchSyncTimeTemplate = `UPDATE config.objects SET last_sync_time = now() WHERE id = $1`

	// $1 config row id
	deleteObjectTemplate = `DELETE FROM config.objects WHERE id = $1`

	// %[1]s mirror table name
	countRowsTemplate = `SELECT count(*) FROM salesforce.%[1]s`

	// %[1]s mirror table name
	dropTableTemplate = `DROP TABLE salesforce.%[1]s`

	// %[1]s mirror table name
	createTriggerTemplate = `CREATE TRIGGER %[1]s_notify AFTER INSERT OR UPDATE ON salesforce.%[1]s FOR EACH ROW EXECUTE PROCEDURE salesforce.notify_change();`

	// %[1]s mirror table name; $1 error message, $2 row id
	errorStateTemplate = `UPDATE salesforce.%[1]s SET _s_state = 'ERROR', _s_error = $1, _s_updated = now() WHERE id = $2`

	// %[1]s mirror table name; $1 remote id, $2 row id
	remoteIDTemplate = `UPDATE salesforce.%[1]s SET sfid = $1, _s_updated = now() WHERE id = $2`

	// %[1]s select list, %[2]s mirror table name; $1 row id array
	rowsByIDTemplate = `SELECT id, sfid, %[1]s FROM salesforce.%[2]s WHERE id = ANY($1) ORDER BY id`

	listenStmt   = `LISTEN salesforce_data`
	unlistenStmt = `UNLISTEN salesforce_data`
)
