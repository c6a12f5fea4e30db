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

package ingest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cardinalhq/mediarunner/internal/assetid"
)

// ExpandDestination expands a working-directory template for an asset.
// Recognised placeholders: {customer}, {space}, {name}.
func ExpandDestination(template string, id assetid.ID) string {
	r := strings.NewReplacer(
		"{customer}", strconv.Itoa(id.Customer),
		"{space}", strconv.Itoa(id.Space),
		"{name}", id.UniqueName(),
	)
	return r.Replace(template)
}

// EnsureDir creates the directory (and parents) if needed. Safe to call for
// a directory that already exists, so re-delivered ingest requests reuse
// the same working directory.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating working directory %s: %w", path, err)
	}
	return nil
}
