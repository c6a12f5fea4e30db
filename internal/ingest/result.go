// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package ingest moves asset binaries from customer origins into platform
// storage and drives the per-family ingestion workers.
package ingest

// Result is the terminal outcome of one worker run for one asset.
type Result int

const (
	ResultFailed Result = iota
	ResultSuccess
	ResultStorageLimitExceeded
	// ResultQueuedForProcessing means the asset was handed to an external
	// processor (the transcoder) and stays open until its completion event
	// arrives.
	ResultQueuedForProcessing
)

func (r Result) String() string {
	switch r {
	case ResultFailed:
		return "failed"
	case ResultSuccess:
		return "success"
	case ResultStorageLimitExceeded:
		return "storage-limit-exceeded"
	case ResultQueuedForProcessing:
		return "queued-for-processing"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the asset reached a final state in this run.
// Queued-for-processing assets finish later, off the transcode completion
// path.
func (r Result) IsTerminal() bool {
	return r != ResultQueuedForProcessing
}
